package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// applyDiscount resolves a promo code to a discount and records it on the
// cart. The bloom prefilter rejects obviously bogus codes before the
// upstream lookup; false positives fall through and get the same "invalid
// code" answer from the commerce API.
func (h *Handler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" {
		respondErr(w, http.StatusBadRequest, "discount code is required")
		return
	}

	if !h.prefilter.MayContain(req.Code) {
		respondErr(w, http.StatusNotFound, "invalid discount code")
		return
	}

	d, err := h.commerce.FindDiscountByCode(r.Context(), h.storeID(r), req.Code)
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}

	s.AddDiscount(d.ID)
	h.savePrefs(r.Context(), device)
	h.refresher(device, h.storeID(r), s).Request()

	respond(w, http.StatusOK, d)
}

func (h *Handler) removeDiscount(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "discountID")

	s.RemoveDiscount(id)
	h.savePrefs(r.Context(), device)
	h.refresher(device, h.storeID(r), s).Request()

	respond(w, http.StatusOK, h.cartView(s))
}
