package catalog

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// DeliveryType enumerates the fulfillment modes for an order.
type DeliveryType string

const (
	DeliveryDineIn   DeliveryType = "dineIn"
	DeliveryPickup   DeliveryType = "pickup"
	DeliveryDelivery DeliveryType = "delivery"
)

// ParseDeliveryType validates a raw string against the known delivery types.
func ParseDeliveryType(s string) (DeliveryType, error) {
	switch DeliveryType(s) {
	case DeliveryDineIn, DeliveryPickup, DeliveryDelivery:
		return DeliveryType(s), nil
	default:
		return "", errors.Errorf("unknown delivery type: %q", s)
	}
}

// EntryType enumerates the contexts a pricing entry can be scoped to.
type EntryType string

const (
	EntryVariant    EntryType = "variant"
	EntryAddon      EntryType = "addon"
	EntryAddonGroup EntryType = "addonGroup"
)

// PricingEntry is a catalog-defined price record scoped to a specific
// variant, addon, or addon-group context. When an entry exists for a
// selection, its price takes precedence over the selection's intrinsic
// price field.
type PricingEntry struct {
	ID        string
	Type      EntryType
	RefID     string
	VariantID string
	Price     decimal.Decimal
	Visible   bool
}

// Variant is a single choice within a variant group (e.g. size "Large").
type Variant struct {
	ID      string
	GroupID string
	Name    string
	Price   decimal.Decimal
}

// VariantGroup is a set of mutually exclusive variants. The primary group
// drives base pricing (e.g. size); at most one variant per group may be
// selected.
type VariantGroup struct {
	ID       string
	Name     string
	Primary  bool
	Required bool
	Variants []Variant
}

// Addon is an optional extra with an intrinsic price and a quantity cap.
// A MaxQuantity of zero means no cap.
type Addon struct {
	ID          string
	GroupID     string
	Name        string
	Price       decimal.Decimal
	MaxQuantity int
}

// AddonGroup constrains how many addons from the group may be selected.
type AddonGroup struct {
	ID        string
	Name      string
	MinSelect int
	MaxSelect int
	Addons    []Addon
}

// Product is a catalog item with its variant/addon structure, contextual
// pricing entries, and delivery-type restrictions.
type Product struct {
	ID            string
	CategoryID    string
	Name          string
	Description   string
	BasePrice     decimal.Decimal
	VariantGroups []VariantGroup
	AddonGroups   []AddonGroup
	Pricing       []PricingEntry

	// DeliveryTypes lists the fulfillment modes the product may be ordered
	// under. Empty means unrestricted.
	DeliveryTypes []DeliveryType
}

// AllowsDelivery reports whether the product can be ordered under the given
// delivery type. Products with no declared restriction allow every type.
func (p *Product) AllowsDelivery(dt DeliveryType) bool {
	if len(p.DeliveryTypes) == 0 {
		return true
	}
	for _, t := range p.DeliveryTypes {
		if t == dt {
			return true
		}
	}
	return false
}

// VariantEntry returns the pricing entry scoped to the given variant, if one
// exists and is visible.
func (p *Product) VariantEntry(variantID string) (*PricingEntry, bool) {
	for i := range p.Pricing {
		e := &p.Pricing[i]
		if e.Type == EntryVariant && e.RefID == variantID && e.Visible {
			return e, true
		}
	}
	return nil, false
}

// AddonEntry returns the pricing entry for the given addon in the context of
// the given variant. Addon prices can legitimately differ per selected
// variant, so the variant id participates in the match.
func (p *Product) AddonEntry(addonID, variantID string) (*PricingEntry, bool) {
	for i := range p.Pricing {
		e := &p.Pricing[i]
		if e.Type == EntryAddon && e.RefID == addonID && e.VariantID == variantID && e.Visible {
			return e, true
		}
	}
	return nil, false
}

// PrimaryVariantGroup returns the group marked primary, falling back to the
// first group when none is marked.
func (p *Product) PrimaryVariantGroup() (*VariantGroup, bool) {
	for i := range p.VariantGroups {
		if p.VariantGroups[i].Primary {
			return &p.VariantGroups[i], true
		}
	}
	if len(p.VariantGroups) > 0 {
		return &p.VariantGroups[0], true
	}
	return nil, false
}

// FindVariant locates a variant by id across all groups.
func (p *Product) FindVariant(variantID string) (*Variant, bool) {
	for gi := range p.VariantGroups {
		for vi := range p.VariantGroups[gi].Variants {
			if p.VariantGroups[gi].Variants[vi].ID == variantID {
				return &p.VariantGroups[gi].Variants[vi], true
			}
		}
	}
	return nil, false
}

// FindAddon locates an addon by id across all groups.
func (p *Product) FindAddon(addonID string) (*Addon, bool) {
	for gi := range p.AddonGroups {
		for ai := range p.AddonGroups[gi].Addons {
			if p.AddonGroups[gi].Addons[ai].ID == addonID {
				return &p.AddonGroups[gi].Addons[ai], true
			}
		}
	}
	return nil, false
}
