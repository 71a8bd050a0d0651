package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-storefront/internal/domain/catalog"
)

// PricingLine is one (pricing entry, quantity) pair on a cart line, as
// confirmed by the commerce API.
type PricingLine struct {
	PricingEntryID string `json:"pricingEntryId"`
	Quantity       int    `json:"quantity"`
}

// Item is a single line in the cart: a product+variant combination with its
// selected addon pricing lines. Lines are created by the commerce API; the
// store only mirrors them.
type Item struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"itemId"`
	VariantID string          `json:"variantId"`
	Pricing   []PricingLine   `json:"pricing"`
	Quantity  int             `json:"quantity"`
	SessionID string          `json:"sessionId"`
	DeviceID  string          `json:"deviceId"`
	StoreID   string          `json:"storeId"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Charge is a single billing line in the summary with its value before and
// after discounts.
type Charge struct {
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	AfterDiscount  decimal.Decimal `json:"afterDiscount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// Summary is the server-computed billing snapshot for the current cart.
// It is a read-only projection: the service never derives a grand total
// locally.
type Summary struct {
	ItemTotal      decimal.Decimal `json:"itemTotal"`
	PackingCharge  decimal.Decimal `json:"packingCharge"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	Tax            decimal.Decimal `json:"tax"`
	Charges        []Charge        `json:"charges"`
	Discount       decimal.Decimal `json:"discount"`
	GrandTotal     decimal.Decimal `json:"grandTotal"`
}

// Prefs is the persisted subset of store state. Cart items are deliberately
// excluded: the commerce API is the source of truth for cart contents and
// items are refetched on every session.
type Prefs struct {
	DeliveryType      catalog.DeliveryType `json:"deliveryType"`
	SelectedAddressID string               `json:"selectedAddressId"`
	DiscountIDs       []string             `json:"discountIds"`
}
