// Package pricing computes advisory prices for in-progress product
// configurations and translates selections into the payload shape the
// commerce API expects.
//
// Every price computed here is a preview. The commerce API recomputes the
// authoritative price at add-to-cart and summary-refresh time; the local
// figure only exists so the configuration flow has an immediate number to
// show.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-storefront/internal/domain/catalog"
)

// AddonChoice is the selection state of a single addon.
type AddonChoice struct {
	Selected bool
	Quantity int
}

// Selection is the in-progress configuration of one product: the chosen
// variant and the addon choices keyed by addon id.
type Selection struct {
	VariantID string
	Addons    map[string]AddonChoice
}

// UnitPrice resolves the preview price of one unit for the given selection.
//
// Resolution order: the product base price; then a variant-scoped pricing
// entry overrides it (falling back to the variant's intrinsic price when no
// entry exists); then each selected addon adds its variant-contextual entry
// price (or intrinsic price) times its quantity.
func UnitPrice(p *catalog.Product, sel Selection) decimal.Decimal {
	price := p.BasePrice

	if sel.VariantID != "" {
		if entry, ok := p.VariantEntry(sel.VariantID); ok {
			price = entry.Price
		} else if v, ok := p.FindVariant(sel.VariantID); ok {
			price = v.Price
		}
	}

	for addonID, choice := range sel.Addons {
		if !choice.Selected || choice.Quantity <= 0 {
			continue
		}
		addonPrice := decimal.Zero
		if entry, ok := p.AddonEntry(addonID, sel.VariantID); ok {
			addonPrice = entry.Price
		} else if a, ok := p.FindAddon(addonID); ok {
			addonPrice = a.Price
		}
		qty := decimal.NewFromInt(int64(choice.Quantity))
		price = price.Add(addonPrice.Mul(qty))
	}

	return price
}

// LineTotal multiplies the unit price by the line quantity, rounded to two
// decimal places.
func LineTotal(p *catalog.Product, sel Selection, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	unit := UnitPrice(p, sel)
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
