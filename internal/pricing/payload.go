package pricing

import "github.com/xenking/pizza-storefront/internal/domain/catalog"

// PayloadLine is one (pricing entry, quantity) pair in an add-to-cart
// request. The id is always a concrete pricing-entry id when the catalog
// defines one; raw variant/addon ids are only sent as a fallback.
type PayloadLine struct {
	PricingEntryID string `json:"pricingEntryId"`
	Quantity       int    `json:"quantity"`
}

// PayloadIDs carries the request-scoped identifiers an add-to-cart payload
// needs beyond the selection itself.
type PayloadIDs struct {
	StoreID   string
	SessionID string
	DeviceID  string
}

// Payload is the wire shape the commerce API expects for add-to-cart.
type Payload struct {
	ProductID  string        `json:"productId"`
	CategoryID string        `json:"categoryId"`
	StoreID    string        `json:"storeId"`
	SessionID  string        `json:"sessionId"`
	DeviceID   string        `json:"deviceId"`
	VariantID  string        `json:"variantId"`
	Quantity   int           `json:"quantity"`
	Pricing    []PayloadLine `json:"pricing"`
}

// BuildPayload converts a selection into the commerce API payload, using the
// same entry-overrides-intrinsic resolution as UnitPrice so the ids sent
// upstream always match the prices previewed locally.
func BuildPayload(p *catalog.Product, sel Selection, quantity int, ids PayloadIDs) Payload {
	lines := make([]PayloadLine, 0, 1+len(sel.Addons))

	if sel.VariantID != "" {
		entryID := sel.VariantID
		if entry, ok := p.VariantEntry(sel.VariantID); ok {
			entryID = entry.ID
		}
		lines = append(lines, PayloadLine{PricingEntryID: entryID, Quantity: 1})
	}

	for addonID, choice := range sel.Addons {
		if !choice.Selected || choice.Quantity <= 0 {
			continue
		}
		entryID := addonID
		if entry, ok := p.AddonEntry(addonID, sel.VariantID); ok {
			entryID = entry.ID
		}
		lines = append(lines, PayloadLine{PricingEntryID: entryID, Quantity: choice.Quantity})
	}

	return Payload{
		ProductID:  p.ID,
		CategoryID: p.CategoryID,
		StoreID:    ids.StoreID,
		SessionID:  ids.SessionID,
		DeviceID:   ids.DeviceID,
		VariantID:  sel.VariantID,
		Quantity:   quantity,
		Pricing:    lines,
	}
}

// ValidatePayload checks an add-to-cart payload before submission. It
// returns false and a list of human-readable problems instead of an error
// so the caller decides how to surface them.
func ValidatePayload(pl Payload) (bool, []string) {
	var errs []string
	if pl.ProductID == "" {
		errs = append(errs, "product is required")
	}
	if pl.CategoryID == "" {
		errs = append(errs, "category is required")
	}
	if pl.StoreID == "" {
		errs = append(errs, "store is required")
	}
	if pl.SessionID == "" {
		errs = append(errs, "session is required")
	}
	if pl.VariantID == "" {
		errs = append(errs, "a variant must be selected")
	}
	if pl.Quantity <= 0 {
		errs = append(errs, "quantity must be greater than 0")
	}
	if len(pl.Pricing) == 0 {
		errs = append(errs, "at least one pricing line is required")
	}
	return len(errs) == 0, errs
}
