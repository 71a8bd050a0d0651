//go:build integration

package integration

import (
	"net/http"
	"testing"
)

type configResponse struct {
	State     string   `json:"state"`
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	Total     string   `json:"total"`
	Problems  []string `json:"problems"`
}

func TestConfigure_CommitAddsToCart(t *testing.T) {
	device := "it-configure-commit"

	resp, env := doReq(t, http.MethodPost, "/configure/open", device,
		map[string]string{"productId": "margherita"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cfg := decodeData[configResponse](t, env)
	if cfg.State != "open" {
		t.Fatalf("state: got %q, want open", cfg.State)
	}
	// The primary group's first variant is auto-selected: medium at 10.00.
	if cfg.Total != "10.00" {
		t.Errorf("total after open: got %q, want 10.00", cfg.Total)
	}

	// The large variant carries a visible pricing entry at 13.00 that
	// overrides its intrinsic 14.00.
	_, env = doReq(t, http.MethodPost, "/configure/variant", device,
		map[string]string{"groupId": "size", "variantId": "large"})
	cfg = decodeData[configResponse](t, env)
	if cfg.Total != "13.00" {
		t.Errorf("total after variant: got %q, want 13.00", cfg.Total)
	}

	resp, env = doReq(t, http.MethodPost, "/configure/commit", device, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	item := decodeData[struct {
		ID        string `json:"id"`
		ItemID    string `json:"itemId"`
		VariantID string `json:"variantId"`
	}](t, env)
	if item.ItemID != "margherita" || item.VariantID != "large" {
		t.Errorf("committed line: %+v", item)
	}

	// The session closed and the line shows up in the refetched cart.
	_, env = doReq(t, http.MethodGet, "/configure/", device, nil)
	cfg = decodeData[configResponse](t, env)
	if cfg.State != "closed" {
		t.Errorf("state after commit: got %q, want closed", cfg.State)
	}

	_, env = doReq(t, http.MethodGet, "/cart", device, nil)
	c := decodeData[cartResponse](t, env)
	if len(c.Items) != 1 || c.Items[0].ID != item.ID {
		t.Errorf("cart after commit: %+v", c.Items)
	}
}

func TestConfigure_OpenUnknownProduct(t *testing.T) {
	resp, env := doReq(t, http.MethodPost, "/configure/open", "it-configure-miss",
		map[string]string{"productId": "calzone"})

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if env.ErrorMessage != "product not found" {
		t.Errorf("error message: got %q", env.ErrorMessage)
	}
}

func TestConfigure_MutationWithoutSession(t *testing.T) {
	resp, _ := doReq(t, http.MethodPost, "/configure/quantity", "it-configure-noop",
		map[string]int{"quantity": 2})

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	resp, env := doReq(t, http.MethodPost, "/checkout", "it-checkout-empty", nil)

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if env.ErrorMessage != "cart is empty" {
		t.Errorf("error message: got %q", env.ErrorMessage)
	}
}

func TestCheckout_DeliveryRequiresAddress(t *testing.T) {
	device := "it-checkout-noaddr"

	addLineViaConfigure(t, device)
	doReq(t, http.MethodPut, "/cart/delivery-type", device,
		map[string]string{"deliveryType": "delivery"})

	resp, env := doReq(t, http.MethodPost, "/checkout", device, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if env.ErrorMessage != "select a delivery address" {
		t.Errorf("error message: got %q", env.ErrorMessage)
	}
}

func TestCheckout_PlacesOrderAndClearsCart(t *testing.T) {
	device := "it-checkout-ok"

	addLineViaConfigure(t, device)

	resp, env := doReq(t, http.MethodPost, "/checkout", device, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeData[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, env)
	if order.ID == "" {
		t.Error("order has no id")
	}
	if order.Status != "confirmed" {
		t.Errorf("status: got %q, want confirmed", order.Status)
	}

	_, env = doReq(t, http.MethodGet, "/cart", device, nil)
	c := decodeData[cartResponse](t, env)
	if len(c.Items) != 0 {
		t.Errorf("cart after checkout: got %d items, want 0", len(c.Items))
	}
}

// addLineViaConfigure drives the configure flow end to end so the device has
// one committed line in its cart.
func addLineViaConfigure(t *testing.T, device string) {
	t.Helper()

	resp, _ := doReq(t, http.MethodPost, "/configure/open", device,
		map[string]string{"productId": "margherita"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("open: expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doReq(t, http.MethodPost, "/configure/commit", device, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("commit: expected 201, got %d", resp.StatusCode)
	}
}
