package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReferenceZone is the fixed UTC+8 offset all upstream timestamps are
// normalized into for storage.
var ReferenceZone = time.FixedZone("UTC+8", 8*3600)

// millisecondThreshold separates second- from millisecond-resolution epoch
// values. Anything above it is treated as milliseconds (covers dates past
// 2286 in seconds, which the upstream never produces).
const millisecondThreshold = int64(1e12)

// MappingError reports a malformed upstream payload. It is recovered
// locally: individual unparsable fields map to nil, and only a payload that
// is not a JSON object at all produces a MappingError.
type MappingError struct {
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping error: %s", e.Reason)
}

// NormalizedOrder is the field set extracted from one raw order item.
// Pointer fields are nil when the upstream omitted or mangled the value;
// they are never coerced to zero values that could pass for real data.
type NormalizedOrder struct {
	ExternalLineID   string
	OrderNumber      string
	ParentGroupID    string
	MarketplaceSkuID string
	SkuCode          string
	SpuID            string
	Quantity         int64
	RawUnitPrice     *decimal.Decimal
	Currency         string
	StatusCode       *int
	OrderTime        *time.Time
	ShippingTime     *time.Time
	DeliveryTime     *time.Time
	PackageID        *string
}

// NormalizedProduct is the field set extracted from one raw product item.
type NormalizedProduct struct {
	ExternalProductID string
	SkuCode           string
	SpuID             string
	SkcID             string
	DeclaredUnitPrice *decimal.Decimal
	SupplyPrice       *decimal.Decimal
	Currency          string
	IsActive          bool
}

// FieldMapper translates heterogeneous upstream JSON into normalized field
// sets. It is a pure transform: no I/O, safe to re-run on stored payloads.
type FieldMapper struct{}

// NewFieldMapper creates a FieldMapper.
func NewFieldMapper() *FieldMapper {
	return &FieldMapper{}
}

// MapOrder maps one raw order item.
func (m *FieldMapper) MapOrder(payload []byte) (*NormalizedOrder, error) {
	raw, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}

	out := &NormalizedOrder{
		ExternalLineID:   lookupString(raw, orderAliases["external_line_id"]),
		OrderNumber:      lookupString(raw, orderAliases["order_number"]),
		ParentGroupID:    lookupString(raw, orderAliases["parent_group_id"]),
		MarketplaceSkuID: lookupString(raw, orderAliases["marketplace_sku"]),
		SkuCode:          lookupString(raw, orderAliases["sku_code"]),
		SpuID:            lookupString(raw, orderAliases["spu_id"]),
		RawUnitPrice:     lookupMoney(raw, orderAliases["unit_price"]),
		Currency:         lookupString(raw, orderAliases["currency"]),
		StatusCode:       lookupInt(raw, orderAliases["status"]),
		OrderTime:        lookupEpoch(raw, orderAliases["order_time"]),
		ShippingTime:     lookupEpoch(raw, orderAliases["shipping_time"]),
		DeliveryTime:     lookupEpoch(raw, orderAliases["delivery_time"]),
	}

	if qty := lookupInt(raw, orderAliases["quantity"]); qty != nil {
		out.Quantity = int64(*qty)
	}
	if pkg := lookupString(raw, orderAliases["package_id"]); pkg != "" {
		out.PackageID = &pkg
	}
	if out.ExternalLineID == "" {
		return nil, &MappingError{Reason: "order item has no external line id"}
	}
	return out, nil
}

// MapProduct maps one raw product item.
func (m *FieldMapper) MapProduct(payload []byte) (*NormalizedProduct, error) {
	raw, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}

	out := &NormalizedProduct{
		ExternalProductID: lookupString(raw, productAliases["external_product_id"]),
		SkuCode:           lookupString(raw, productAliases["sku_code"]),
		SpuID:             lookupString(raw, productAliases["spu_id"]),
		SkcID:             lookupString(raw, productAliases["skc_id"]),
		DeclaredUnitPrice: lookupMoney(raw, productAliases["unit_price"]),
		SupplyPrice:       lookupMoney(raw, productAliases["supply_price"]),
		Currency:          lookupString(raw, productAliases["currency"]),
		IsActive:          true,
	}

	if active := lookupBool(raw, productAliases["is_active"]); active != nil {
		out.IsActive = *active
	}
	if out.ExternalProductID == "" && out.SkuCode == "" {
		return nil, &MappingError{Reason: "product item has no identifier"}
	}
	return out, nil
}

func decodeObject(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &MappingError{Reason: "payload is not a JSON object"}
	}
	return raw, nil
}

// lookup walks the alias list and returns the first present value. Aliases
// may contain dotted paths; a missing level anywhere yields not-found.
func lookup(raw map[string]any, aliases []string) (any, bool) {
	for _, alias := range aliases {
		cur := any(raw)
		found := true
		for _, part := range strings.Split(alias, ".") {
			obj, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			cur, ok = obj[part]
			if !ok || cur == nil {
				found = false
				break
			}
		}
		if found {
			return cur, true
		}
	}
	return nil, false
}

func lookupString(raw map[string]any, aliases []string) string {
	v, ok := lookup(raw, aliases)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

// lookupMoney is the safe amount parser. The platform reports amounts as
// integer cents, so whole numbers are shifted down to yuan; a value that
// already carries a decimal point is taken verbatim. Unparsable input
// yields nil, never zero, so absent cost data cannot be mistaken for free
// goods.
func lookupMoney(raw map[string]any, aliases []string) *decimal.Decimal {
	v, ok := lookup(raw, aliases)
	if !ok {
		return nil
	}
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = strings.TrimSpace(n)
		if s == "" {
			return nil
		}
	default:
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	if !strings.Contains(s, ".") {
		d = d.Shift(-2)
	}
	return &d
}

func lookupInt(raw map[string]any, aliases []string) *int {
	v, ok := lookup(raw, aliases)
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil
		}
		out := int(i)
		return &out
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil
		}
		return &i
	default:
		return nil
	}
}

func lookupBool(raw map[string]any, aliases []string) *bool {
	v, ok := lookup(raw, aliases)
	if !ok {
		return nil
	}
	switch b := v.(type) {
	case bool:
		return &b
	case json.Number:
		// Upstream status flags: 0 = active/on sale.
		i, err := b.Int64()
		if err != nil {
			return nil
		}
		out := i == 0
		return &out
	default:
		return nil
	}
}

// lookupEpoch accepts second- and millisecond-resolution epoch integers and
// normalizes them into ReferenceZone. A parse failure yields nil, not now.
func lookupEpoch(raw map[string]any, aliases []string) *time.Time {
	v, ok := lookup(raw, aliases)
	if !ok {
		return nil
	}
	var epoch int64
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil
		}
		epoch = i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil
		}
		epoch = i
	default:
		return nil
	}
	if epoch <= 0 {
		return nil
	}
	var t time.Time
	if epoch > millisecondThreshold {
		t = time.UnixMilli(epoch)
	} else {
		t = time.Unix(epoch, 0)
	}
	t = t.In(ReferenceZone)
	return &t
}
