package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-storefront/internal/domain/cart"
	"github.com/xenking/pizza-storefront/internal/domain/catalog"
	"github.com/xenking/pizza-storefront/internal/validation"
)

// cartView is the full cart snapshot returned by GET /cart.
type cartView struct {
	Items             []cart.Item          `json:"items"`
	DeliveryType      catalog.DeliveryType `json:"deliveryType"`
	SelectedAddressID string               `json:"selectedAddressId,omitempty"`
	DiscountIDs       []string             `json:"discountIds"`
	Summary           *cart.Summary        `json:"summary,omitempty"`
}

func (h *Handler) cartView(s *cart.Store) cartView {
	return cartView{
		Items:             s.Items(),
		DeliveryType:      s.DeliveryType(),
		SelectedAddressID: s.SelectedAddressID(),
		DiscountIDs:       s.DiscountIDs(),
		Summary:           s.Summary(),
	}
}

// getCart refetches the authoritative cart contents from the commerce API,
// replaces the local item list, and returns the full snapshot.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}

	items, err := h.commerce.GetCart(r.Context(), device)
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	s.SetItems(items)
	h.refresher(device, h.storeID(r), s).Request()

	respond(w, http.StatusOK, h.cartView(s))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}
	for _, id := range s.ItemIDs() {
		if err := h.commerce.RemoveCartItem(r.Context(), id); err != nil {
			h.upstreamError(w, r, err)
			return
		}
	}
	s.ClearCart()
	h.savePrefs(r.Context(), device)
	respond(w, http.StatusOK, h.cartView(s))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}
	lineID := chi.URLParam(r, "lineID")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity < 1 {
		respondErr(w, http.StatusBadRequest, "quantity must be greater than 0")
		return
	}

	item, err := h.commerce.UpdateCartItem(r.Context(), lineID, req.Quantity)
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}

	if !s.UpdateItem(lineID, func(it *cart.Item) { *it = *item }) {
		s.AddItem(*item)
	}
	h.refresher(device, h.storeID(r), s).Request()

	respond(w, http.StatusOK, item)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}
	lineID := chi.URLParam(r, "lineID")

	if err := h.commerce.RemoveCartItem(r.Context(), lineID); err != nil {
		h.upstreamError(w, r, err)
		return
	}
	s.RemoveItem(lineID)
	h.refresher(device, h.storeID(r), s).Request()

	respond(w, http.StatusOK, h.cartView(s))
}

func (h *Handler) setDeliveryType(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}

	var req struct {
		DeliveryType string `json:"deliveryType"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	dt, err := catalog.ParseDeliveryType(req.DeliveryType)
	if err != nil {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.SetDeliveryType(dt)
	h.savePrefs(r.Context(), device)
	h.refresher(device, h.storeID(r), s).Request()

	respond(w, http.StatusOK, h.cartView(s))
}

// validationView reports which cart lines are orderable under the current
// delivery type.
type validationView struct {
	OK      bool        `json:"ok"`
	Valid   []cart.Item `json:"valid"`
	Invalid []cart.Item `json:"invalid"`
}

func (h *Handler) validateCart(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}

	res, err := h.checker.Check(r.Context(), device, s.Items(), s.DeliveryType())
	if err != nil {
		if errors.Is(err, validation.ErrSuperseded) {
			respondErr(w, http.StatusConflict, "a newer validation is in progress")
			return
		}
		h.internalError(w, r, err)
		return
	}

	respond(w, http.StatusOK, validationView{
		OK:      res.OK(),
		Valid:   res.Valid,
		Invalid: res.Invalid,
	})
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.store(w, r)
	if !ok {
		return
	}
	sum := s.Summary()
	if sum == nil {
		// No snapshot yet: expose zero totals rather than a 404 so clients
		// render an empty bill instead of an error state.
		sum = &cart.Summary{
			ItemTotal:  decimal.Zero,
			GrandTotal: decimal.Zero,
		}
	}
	respond(w, http.StatusOK, sum)
}

// refreshSummary fetches the priced summary synchronously. This is the
// manual retry path for when a debounced background refresh failed.
func (h *Handler) refreshSummary(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}
	sum, err := h.refresher(device, h.storeID(r), s).RefreshNow(r.Context())
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	if sum == nil {
		sum = &cart.Summary{ItemTotal: decimal.Zero, GrandTotal: decimal.Zero}
	}
	respond(w, http.StatusOK, sum)
}
