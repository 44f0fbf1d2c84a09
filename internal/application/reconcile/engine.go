package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ordersync/backend/internal/application/costing"
	"github.com/ordersync/backend/internal/application/mapping"
	"github.com/ordersync/backend/internal/application/matching"
	"github.com/ordersync/backend/internal/domain/catalog"
	"github.com/ordersync/backend/internal/domain/ingest"
	"github.com/ordersync/backend/internal/domain/order"
)

// NormalizedCurrency is the single currency every stored monetary field is
// converted into at write time.
const NormalizedCurrency = "CNY"

// Result reports what one reconciliation did.
type Result struct {
	Line    *order.OrderLine
	Created bool
	Matched bool
}

// Engine combines the field mapper, product matcher, and cost ledger into
// the idempotent raw-item → order-line pipeline. Matching and costing are
// re-run on every upsert, so a line that was un-matchable at first sync
// becomes correctly costed once the catalog and cost data catch up; no
// separate retry mechanism exists or is needed.
type Engine struct {
	rawOrders   ingest.RawOrderRecordRepository
	rawProducts ingest.RawProductRecordRepository
	lines       order.OrderLineRepository
	entries     catalog.CatalogEntryRepository
	mapper      *mapping.FieldMapper
	matcher     *matching.ProductMatcher
	ledger      *costing.CostLedger
	logger      *zap.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(
	rawOrders ingest.RawOrderRecordRepository,
	rawProducts ingest.RawProductRecordRepository,
	lines order.OrderLineRepository,
	entries catalog.CatalogEntryRepository,
	mapper *mapping.FieldMapper,
	matcher *matching.ProductMatcher,
	ledger *costing.CostLedger,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		rawOrders:   rawOrders,
		rawProducts: rawProducts,
		lines:       lines,
		entries:     entries,
		mapper:      mapper,
		matcher:     matcher,
		ledger:      ledger,
		logger:      logger,
	}
}

// ReconcileOrder runs one raw order item through the full pipeline and
// upserts the resulting order line by its idempotency key.
func (e *Engine) ReconcileOrder(ctx context.Context, tenantID uuid.UUID, item json.RawMessage) (*Result, error) {
	normalized, err := e.mapper.MapOrder(item)
	if err != nil {
		return nil, err
	}

	rawRec, err := e.rawOrders.Upsert(ctx, ingest.NewRawOrderRecord(tenantID, normalized.ExternalLineID, string(item)))
	if err != nil {
		return nil, err
	}

	candidate := e.buildLine(tenantID, normalized, rawRec.ID)

	matched, err := e.resolveMatch(ctx, tenantID, candidate, normalized)
	if err != nil {
		return nil, err
	}
	if !matched {
		// A miss is an expected, countable outcome: the line persists with
		// null cost and profit until catalog data catches up.
		e.logger.Info("Order line unmatched",
			zap.String("tenant_id", tenantID.String()),
			zap.String("external_line_id", normalized.ExternalLineID),
			zap.String("sku_code", normalized.SkuCode),
		)
	}

	existing, err := e.findExisting(ctx, tenantID, normalized)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		reported := candidate.Status
		if !reported.IsValid() {
			candidate.Status = order.StatusPending
		}
		err := e.lines.Create(ctx, candidate)
		if err == nil {
			return &Result{Line: candidate, Created: true, Matched: matched}, nil
		}
		if !errors.Is(err, order.ErrDuplicateOrderLine) {
			return nil, err
		}
		// A concurrent sync inserted the line between the lookup and the
		// create; recover through the update path instead of failing the
		// item. The merge must see the status as reported, not the default.
		candidate.Status = reported
		existing, err = e.findExisting(ctx, tenantID, normalized)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, order.ErrDuplicateOrderLine
		}
	}

	merged, fields := mergeLine(existing, candidate)
	if len(fields) > 0 {
		if err := e.lines.UpdateFields(ctx, existing.ID, fields); err != nil {
			return nil, err
		}
	}
	return &Result{Line: merged, Created: false, Matched: matched}, nil
}

// buildLine assembles a fresh order line from normalized fields, before
// matching and costing fill in the financial figures.
func (e *Engine) buildLine(tenantID uuid.UUID, n *mapping.NormalizedOrder, rawRecordID uuid.UUID) *order.OrderLine {
	line := order.NewOrderLine(tenantID, n.ExternalLineID)
	line.OrderNumber = n.OrderNumber
	line.ParentGroupID = n.ParentGroupID
	line.MarketplaceSkuID = n.MarketplaceSkuID
	line.SkuCode = n.SkuCode
	line.SpuID = n.SpuID
	line.Quantity = n.Quantity
	line.Currency = NormalizedCurrency
	line.OrderTime = n.OrderTime
	line.ShippingTime = n.ShippingTime
	line.DeliveryTime = n.DeliveryTime
	line.PackageID = n.PackageID
	line.RawRecordID = rawRecordID

	// The status stays unset unless the upstream reported a code the table
	// knows; mergeLine then keeps the stored status instead of regressing a
	// delivered line to pending on a payload that dropped the field.
	line.Status = ""
	if n.StatusCode != nil {
		if status, ok := order.StatusFromUpstreamCode(*n.StatusCode); ok {
			line.Status = status
		} else {
			e.logger.Warn("Unknown upstream status code",
				zap.String("external_line_id", n.ExternalLineID),
				zap.Int("status_code", *n.StatusCode),
			)
		}
	}

	if n.RawUnitPrice != nil {
		// Informational only; overridden by the catalog's declared price
		// whenever a match exists.
		line.UnitPrice = *n.RawUnitPrice
		line.TotalPrice = n.RawUnitPrice.Mul(decimal.NewFromInt(n.Quantity))
	}
	return line
}

// resolveMatch runs the matcher cascade and, on a hit, prices and costs the
// line. Returns whether a catalog match was found.
func (e *Engine) resolveMatch(ctx context.Context, tenantID uuid.UUID, line *order.OrderLine, n *mapping.NormalizedOrder) (bool, error) {
	entry, err := e.matcher.Match(ctx, tenantID, matching.Candidates{
		MarketplaceSkuID: n.MarketplaceSkuID,
		SkuCode:          n.SkuCode,
		SpuID:            n.SpuID,
	})
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	line.MatchedCatalogID = &entry.ID
	line.UnitPrice = entry.DeclaredUnitPrice
	line.TotalPrice = entry.DeclaredUnitPrice.Mul(decimal.NewFromInt(line.Quantity))

	asOf := time.Now().In(mapping.ReferenceZone)
	if line.OrderTime != nil {
		asOf = *line.OrderTime
	}
	resolution, err := e.ledger.Resolve(ctx, entry.ID, asOf)
	if err != nil {
		return false, err
	}
	if resolution != nil {
		unitCost := resolution.Entry.CostPrice
		totalCost := unitCost.Mul(decimal.NewFromInt(line.Quantity))
		profit := line.TotalPrice.Sub(totalCost)
		line.UnitCost = &unitCost
		line.TotalCost = &totalCost
		line.Profit = &profit
		line.CostRule = string(resolution.Rule)
	}
	return true, nil
}

// findExisting looks up the line by its primary idempotency key, then by
// the composite key, then by the composite key with the order number
// normalized for marketplace prefixes and sub-order suffixes.
func (e *Engine) findExisting(ctx context.Context, tenantID uuid.UUID, n *mapping.NormalizedOrder) (*order.OrderLine, error) {
	existing, err := e.lines.FindByExternalLineID(ctx, tenantID, n.ExternalLineID)
	if err != nil || existing != nil {
		return existing, err
	}
	if n.OrderNumber == "" {
		return nil, nil
	}

	existing, err = e.lines.FindByComposite(ctx, tenantID, n.OrderNumber, n.SkuCode, n.SpuID)
	if err != nil || existing != nil {
		return existing, err
	}

	if normalized := matching.NormalizeOrderNumber(n.OrderNumber); normalized != n.OrderNumber {
		return e.lines.FindByComposite(ctx, tenantID, normalized, n.SkuCode, n.SpuID)
	}
	return nil, nil
}
