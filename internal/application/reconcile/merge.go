package reconcile

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ordersync/backend/internal/domain/order"
)

// mergeLine folds the freshly computed candidate into the existing line and
// returns the merged view plus a change-only field map: a field appears in
// the map only when its value actually differs, so an unchanged re-sync
// writes nothing and causes no audit churn.
//
// Sticky policy: the shipping/delivery timestamps of a line that already
// reached them are never cleared when a later upstream report stops
// carrying them, a package id is never un-set, and the status only moves
// when the candidate carries one the status table recognized.
func mergeLine(existing, candidate *order.OrderLine) (*order.OrderLine, map[string]any) {
	merged := *existing
	fields := make(map[string]any)

	setString := func(col string, dst *string, val string) {
		if *dst != val {
			*dst = val
			fields[col] = val
		}
	}

	setString("order_number", &merged.OrderNumber, pick(candidate.OrderNumber, merged.OrderNumber))
	setString("parent_group_id", &merged.ParentGroupID, pick(candidate.ParentGroupID, merged.ParentGroupID))
	setString("marketplace_sku_id", &merged.MarketplaceSkuID, pick(candidate.MarketplaceSkuID, merged.MarketplaceSkuID))
	setString("sku_code", &merged.SkuCode, pick(candidate.SkuCode, merged.SkuCode))
	setString("spu_id", &merged.SpuID, pick(candidate.SpuID, merged.SpuID))
	setString("currency", &merged.Currency, candidate.Currency)

	if merged.Quantity != candidate.Quantity && candidate.Quantity > 0 {
		merged.Quantity = candidate.Quantity
		fields["quantity"] = candidate.Quantity
	}
	if !merged.UnitPrice.Equal(candidate.UnitPrice) {
		merged.UnitPrice = candidate.UnitPrice
		fields["unit_price"] = candidate.UnitPrice
	}
	if !merged.TotalPrice.Equal(candidate.TotalPrice) {
		merged.TotalPrice = candidate.TotalPrice
		fields["total_price"] = candidate.TotalPrice
	}

	mergeDecimalPtr(&merged.UnitCost, candidate.UnitCost, "unit_cost", fields)
	mergeDecimalPtr(&merged.TotalCost, candidate.TotalCost, "total_cost", fields)
	mergeDecimalPtr(&merged.Profit, candidate.Profit, "profit", fields)
	setString("cost_rule", &merged.CostRule, candidate.CostRule)

	if !uuidPtrEqual(merged.MatchedCatalogID, candidate.MatchedCatalogID) {
		merged.MatchedCatalogID = candidate.MatchedCatalogID
		fields["matched_catalog_id"] = candidate.MatchedCatalogID
	}

	if candidate.Status.IsValid() && merged.Status != candidate.Status {
		merged.Status = candidate.Status
		fields["status"] = candidate.Status
	}

	mergeTimePtr(&merged.OrderTime, candidate.OrderTime, "order_time", fields, false)
	mergeTimePtr(&merged.ShippingTime, candidate.ShippingTime, "shipping_time", fields, true)
	mergeTimePtr(&merged.DeliveryTime, candidate.DeliveryTime, "delivery_time", fields, true)

	if candidate.PackageID != nil && !stringPtrEqual(merged.PackageID, candidate.PackageID) {
		merged.PackageID = candidate.PackageID
		fields["package_id"] = *candidate.PackageID
	}

	if merged.RawRecordID != candidate.RawRecordID {
		merged.RawRecordID = candidate.RawRecordID
		fields["raw_record_id"] = candidate.RawRecordID
	}

	return &merged, fields
}

// pick returns the candidate value unless the upstream stopped reporting
// it, in which case the stored value survives.
func pick(candidate, existing string) string {
	if candidate == "" {
		return existing
	}
	return candidate
}

func mergeDecimalPtr(dst **decimal.Decimal, val *decimal.Decimal, col string, fields map[string]any) {
	if decimalPtrEqual(*dst, val) {
		return
	}
	*dst = val
	if val == nil {
		fields[col] = nil
	} else {
		fields[col] = *val
	}
}

// mergeTimePtr applies a timestamp change. With sticky set, a non-nil
// stored value is kept when the candidate has none.
func mergeTimePtr(dst **time.Time, val *time.Time, col string, fields map[string]any, sticky bool) {
	if val == nil && sticky {
		return
	}
	if timePtrEqual(*dst, val) {
		return
	}
	*dst = val
	if val == nil {
		fields[col] = nil
	} else {
		fields[col] = *val
	}
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
