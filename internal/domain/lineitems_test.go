package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineItems_ScanAcceptsDriverRepresentations(t *testing.T) {
	raw := `[{"name":"Margherita","quantity":2,"unitPrice":"12.5","selectedAddons":[{"name":"Basil","price":"1"}]}]`

	for _, src := range []any{raw, []byte(raw)} {
		var items LineItems
		require.NoError(t, items.Scan(src))
		require.Len(t, items, 1)
		assert.Equal(t, "Margherita", items[0].Name)
		assert.True(t, decimal.RequireFromString("27").Equal(items.Subtotal()))
	}
}

func TestLineItems_ScanNullAndValueOfNil(t *testing.T) {
	var items LineItems
	require.NoError(t, items.Scan(nil))
	assert.NotNil(t, items)
	assert.Empty(t, items)

	v, err := LineItems(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}

func TestLineItems_ScanRejectsGarbage(t *testing.T) {
	var items LineItems
	assert.Error(t, items.Scan(42))
	assert.Error(t, items.Scan("{not json"))
}
