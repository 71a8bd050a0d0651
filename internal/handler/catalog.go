package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/pizza-storefront/internal/domain/catalog"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.commerce.ListProducts(r.Context(), h.storeID(r))
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	p, err := h.commerce.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondErr(w, http.StatusNotFound, "product not found")
			return
		}
		h.upstreamError(w, r, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.commerce.ListStores(r.Context())
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	respond(w, http.StatusOK, stores)
}
