package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-storefront/internal/domain/cart"
	"github.com/xenking/pizza-storefront/internal/domain/catalog"
	"github.com/xenking/pizza-storefront/internal/pricing"
)

// Discount is a coupon/offer record as the commerce API reports it. The
// service only tracks which discount ids are applied; eligibility and
// amounts are always recomputed upstream.
type Discount struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	AmountType  string          `json:"amountType"` // "fixed" or "percentage"
	Amount      decimal.Decimal `json:"amount"`
	MaxDiscount decimal.Decimal `json:"maxDiscount"`
	Description string          `json:"description"`
}

// StoreLocation is a physical store returned by the store locator.
type StoreLocation struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsOpen    bool    `json:"isOpen"`
}

// SummaryRequest asks the commerce API to price the current cart.
type SummaryRequest struct {
	CartIDs      []string             `json:"cartIds"`
	DeliveryType catalog.DeliveryType `json:"deliveryType"`
	AddressID    string               `json:"addressId,omitempty"`
	DiscountIDs  []string             `json:"discountIds,omitempty"`
	StoreID      string               `json:"storeId"`
}

// OrderRequest creates an order from the current cart.
type OrderRequest struct {
	DeviceID     string               `json:"deviceId"`
	SessionID    string               `json:"sessionId"`
	StoreID      string               `json:"storeId"`
	CartIDs      []string             `json:"cartIds"`
	DeliveryType catalog.DeliveryType `json:"deliveryType"`
	AddressID    string               `json:"addressId,omitempty"`
	DiscountIDs  []string             `json:"discountIds,omitempty"`
}

// Order is a confirmed order.
type Order struct {
	ID         string          `json:"id"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
	Status     string          `json:"status"`
}

// productDTO mirrors the commerce API's product detail payload.
type productDTO struct {
	ID            string          `json:"id"`
	CategoryID    string          `json:"categoryId"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	BasePrice     decimal.Decimal `json:"basePrice"`
	DeliveryTypes []string        `json:"availableDeliveryTypes"`
	VariantGroups []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Primary  bool   `json:"isPrimary"`
		Required bool   `json:"isRequired"`
		Variants []struct {
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Price decimal.Decimal `json:"price"`
		} `json:"variants"`
	} `json:"variantGroups"`
	AddonGroups []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		MinSelect int    `json:"minSelect"`
		MaxSelect int    `json:"maxSelect"`
		Addons    []struct {
			ID          string          `json:"id"`
			Name        string          `json:"name"`
			Price       decimal.Decimal `json:"price"`
			MaxQuantity int             `json:"maxQuantity"`
		} `json:"addons"`
	} `json:"addonGroups"`
	Pricing []struct {
		ID        string          `json:"id"`
		Type      string          `json:"type"`
		RefID     string          `json:"refId"`
		VariantID string          `json:"variantId"`
		Price     decimal.Decimal `json:"price"`
		Visible   bool            `json:"visible"`
	} `json:"pricing"`
}

func (d *productDTO) toDomain() *catalog.Product {
	p := &catalog.Product{
		ID:          d.ID,
		CategoryID:  d.CategoryID,
		Name:        d.Name,
		Description: d.Description,
		BasePrice:   d.BasePrice,
	}
	for _, t := range d.DeliveryTypes {
		if dt, err := catalog.ParseDeliveryType(t); err == nil {
			p.DeliveryTypes = append(p.DeliveryTypes, dt)
		}
	}
	for _, g := range d.VariantGroups {
		group := catalog.VariantGroup{ID: g.ID, Name: g.Name, Primary: g.Primary, Required: g.Required}
		for _, v := range g.Variants {
			group.Variants = append(group.Variants, catalog.Variant{
				ID: v.ID, GroupID: g.ID, Name: v.Name, Price: v.Price,
			})
		}
		p.VariantGroups = append(p.VariantGroups, group)
	}
	for _, g := range d.AddonGroups {
		group := catalog.AddonGroup{ID: g.ID, Name: g.Name, MinSelect: g.MinSelect, MaxSelect: g.MaxSelect}
		for _, a := range g.Addons {
			group.Addons = append(group.Addons, catalog.Addon{
				ID: a.ID, GroupID: g.ID, Name: a.Name, Price: a.Price, MaxQuantity: a.MaxQuantity,
			})
		}
		p.AddonGroups = append(p.AddonGroups, group)
	}
	for _, e := range d.Pricing {
		p.Pricing = append(p.Pricing, catalog.PricingEntry{
			ID: e.ID, Type: catalog.EntryType(e.Type), RefID: e.RefID,
			VariantID: e.VariantID, Price: e.Price, Visible: e.Visible,
		})
	}
	return p
}

// ListProducts returns the catalog for a store.
func (c *Client) ListProducts(ctx context.Context, storeID string) ([]*catalog.Product, error) {
	var dtos []productDTO
	err := c.do(ctx, http.MethodGet, "/products?storeId="+url.QueryEscape(storeID), nil, &dtos, http.StatusOK)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	out := make([]*catalog.Product, len(dtos))
	for i := range dtos {
		out[i] = dtos[i].toDomain()
	}
	return out, nil
}

// GetProduct returns a single product's full detail.
func (c *Client) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	var dto productDTO
	err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &dto, http.StatusOK)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	return dto.toDomain(), nil
}

// GetCart returns the authoritative cart contents for a device.
func (c *Client) GetCart(ctx context.Context, deviceID string) ([]cart.Item, error) {
	var items []cart.Item
	err := c.do(ctx, http.MethodGet, "/cart?deviceId="+url.QueryEscape(deviceID), nil, &items, http.StatusOK)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return items, nil
}

// AddCartItem submits an add-to-cart payload. The commerce API computes the
// authoritative price and returns the confirmed line.
func (c *Client) AddCartItem(ctx context.Context, pl pricing.Payload) (*cart.Item, error) {
	var item cart.Item
	err := c.do(ctx, http.MethodPost, "/cart/items", pl, &item, http.StatusCreated)
	if err != nil {
		return nil, errors.Wrap(err, "add cart item")
	}
	return &item, nil
}

// UpdateCartItem changes a line's quantity and returns the updated line.
func (c *Client) UpdateCartItem(ctx context.Context, id string, quantity int) (*cart.Item, error) {
	body := map[string]int{"quantity": quantity}
	var item cart.Item
	err := c.do(ctx, http.MethodPatch, "/cart/items/"+url.PathEscape(id), body, &item, http.StatusOK)
	if err != nil {
		return nil, errors.Wrap(err, "update cart item")
	}
	return &item, nil
}

// RemoveCartItem deletes a line.
func (c *Client) RemoveCartItem(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(id), nil, nil, http.StatusOK); err != nil {
		return errors.Wrap(err, "remove cart item")
	}
	return nil
}

// GetSummary asks the commerce API for the priced billing snapshot.
func (c *Client) GetSummary(ctx context.Context, req SummaryRequest) (*cart.Summary, error) {
	var sum cart.Summary
	if err := c.do(ctx, http.MethodPost, "/cart/summary", req, &sum, http.StatusOK); err != nil {
		return nil, errors.Wrap(err, "get summary")
	}
	return &sum, nil
}

// ListDiscounts returns the discounts available at a store.
func (c *Client) ListDiscounts(ctx context.Context, storeID string) ([]Discount, error) {
	var out []Discount
	err := c.do(ctx, http.MethodGet, "/discounts?storeId="+url.QueryEscape(storeID), nil, &out, http.StatusOK)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	return out, nil
}

// FindDiscountByCode resolves a discount code to its record.
func (c *Client) FindDiscountByCode(ctx context.Context, storeID, code string) (*Discount, error) {
	var out Discount
	path := "/discounts/lookup?storeId=" + url.QueryEscape(storeID) + "&code=" + url.QueryEscape(code)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, errors.Wrap(err, "find discount")
	}
	return &out, nil
}

// CreateOrder places an order from the current cart.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &out, http.StatusCreated); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return &out, nil
}

// ListStores returns the store locator entries.
func (c *Client) ListStores(ctx context.Context) ([]StoreLocation, error) {
	var out []StoreLocation
	if err := c.do(ctx, http.MethodGet, "/stores", nil, &out, http.StatusOK); err != nil {
		return nil, errors.Wrap(err, "list stores")
	}
	return out, nil
}

// Ping checks upstream reachability for the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "upstream unreachable")
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Errorf("upstream unhealthy: %d", resp.StatusCode)
	}
	return nil
}
