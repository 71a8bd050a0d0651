package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/pizza-storefront/internal/domain/catalog"
	"github.com/xenking/pizza-storefront/internal/upstream"
)

// checkout validates the cart against the current delivery type, places the
// order upstream, and clears the local cart on success.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}

	ids := s.ItemIDs()
	if len(ids) == 0 {
		respondErr(w, http.StatusUnprocessableEntity, "cart is empty")
		return
	}

	dt := s.DeliveryType()
	if dt == catalog.DeliveryDelivery && s.SelectedAddressID() == "" {
		respondErr(w, http.StatusUnprocessableEntity, "select a delivery address")
		return
	}

	// The checker is fail-open: metadata gaps never block checkout, but a
	// line the catalog positively excludes for this delivery type does.
	res, err := h.checker.Check(r.Context(), device, s.Items(), dt)
	if err == nil && !res.OK() {
		respond(w, http.StatusUnprocessableEntity, validationView{
			OK:      false,
			Valid:   res.Valid,
			Invalid: res.Invalid,
		})
		return
	}

	sid := sessionID(r)
	if sid == "" {
		sid = uuid.NewString()
	}

	order, err := h.commerce.CreateOrder(r.Context(), upstream.OrderRequest{
		DeviceID:     device,
		SessionID:    sid,
		StoreID:      h.storeID(r),
		CartIDs:      ids,
		DeliveryType: dt,
		AddressID:    s.SelectedAddressID(),
		DiscountIDs:  s.DiscountIDs(),
	})
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}

	s.ClearCart()
	h.savePrefs(r.Context(), device)
	zctx.From(r.Context()).Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("device_id", device))

	respond(w, http.StatusCreated, order)
}
