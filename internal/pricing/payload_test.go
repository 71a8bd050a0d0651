package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIDs() PayloadIDs {
	return PayloadIDs{StoreID: "store-1", SessionID: "sess-1", DeviceID: "dev-1"}
}

func TestBuildPayload_ResolvesEntryIDs(t *testing.T) {
	p := testProduct()
	sel := Selection{
		VariantID: "large",
		Addons:    map[string]AddonChoice{"cheese": {Selected: true, Quantity: 2}},
	}

	pl := BuildPayload(p, sel, 3, testIDs())

	assert.Equal(t, "margherita", pl.ProductID)
	assert.Equal(t, "pizzas", pl.CategoryID)
	assert.Equal(t, "large", pl.VariantID)
	assert.Equal(t, 3, pl.Quantity)
	require.Len(t, pl.Pricing, 2)

	// The variant line carries the entry id, not the raw variant id, and
	// always quantity 1.
	assert.Equal(t, PayloadLine{PricingEntryID: "pe-large", Quantity: 1}, pl.Pricing[0])
	assert.Equal(t, PayloadLine{PricingEntryID: "pe-cheese-large", Quantity: 2}, pl.Pricing[1])
}

func TestBuildPayload_RawIDFallback(t *testing.T) {
	p := testProduct()
	sel := Selection{
		VariantID: "medium",
		Addons:    map[string]AddonChoice{"olives": {Selected: true, Quantity: 1}},
	}

	pl := BuildPayload(p, sel, 1, testIDs())

	require.Len(t, pl.Pricing, 2)
	// No entries exist for medium or olives; the raw ids are sent.
	assert.Equal(t, "medium", pl.Pricing[0].PricingEntryID)
	assert.Equal(t, "olives", pl.Pricing[1].PricingEntryID)
}

func TestBuildPayload_SkipsDeselectedAddons(t *testing.T) {
	p := testProduct()
	sel := Selection{
		VariantID: "large",
		Addons: map[string]AddonChoice{
			"cheese": {Selected: false, Quantity: 1},
			"olives": {Selected: true, Quantity: 0},
		},
	}

	pl := BuildPayload(p, sel, 1, testIDs())

	require.Len(t, pl.Pricing, 1)
	assert.Equal(t, "pe-large", pl.Pricing[0].PricingEntryID)
}

func TestValidatePayload_Valid(t *testing.T) {
	p := testProduct()
	pl := BuildPayload(p, Selection{VariantID: "large"}, 1, testIDs())

	valid, problems := ValidatePayload(pl)
	assert.True(t, valid)
	assert.Empty(t, problems)
}

func TestValidatePayload_ZeroQuantity(t *testing.T) {
	p := testProduct()
	pl := BuildPayload(p, Selection{VariantID: "large"}, 0, testIDs())

	valid, problems := ValidatePayload(pl)
	assert.False(t, valid)
	assert.Contains(t, problems, "quantity must be greater than 0")
}

func TestValidatePayload_MissingEverything(t *testing.T) {
	valid, problems := ValidatePayload(Payload{})

	assert.False(t, valid)
	assert.Contains(t, problems, "product is required")
	assert.Contains(t, problems, "store is required")
	assert.Contains(t, problems, "a variant must be selected")
	assert.Contains(t, problems, "at least one pricing line is required")
}
