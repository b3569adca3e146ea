package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type Addon struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type LineItem struct {
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	SelectedAddons []Addon         `json:"selectedAddons,omitempty"`
}

// Subtotal is quantity × (unit price + addon prices).
func (li LineItem) Subtotal() decimal.Decimal {
	unit := li.UnitPrice
	for _, a := range li.SelectedAddons {
		unit = unit.Add(a.Price)
	}
	return unit.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// LineItems is stored as one JSON document on the order row.
// Scan and Value are the only encode/decode path for it.
type LineItems []LineItem

func (items LineItems) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range items {
		sum = sum.Add(li.Subtotal())
	}
	return sum
}

func (items LineItems) Value() (driver.Value, error) {
	if items == nil {
		items = LineItems{}
	}
	b, err := json.Marshal([]LineItem(items))
	if err != nil {
		return nil, fmt.Errorf("encode line items: %w", err)
	}
	return b, nil
}

func (items *LineItems) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*items = LineItems{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("decode line items: unsupported type %T", src)
	}
	var out []LineItem
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode line items: %w", err)
	}
	if out == nil {
		out = []LineItem{}
	}
	*items = out
	return nil
}
