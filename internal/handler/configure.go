package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-storefront/internal/domain/catalog"
	"github.com/xenking/pizza-storefront/internal/pricing"
	"github.com/xenking/pizza-storefront/internal/session"
)

// configView is the configuration session snapshot returned after every
// mutation, so clients can render without a follow-up GET.
type configView struct {
	State     string          `json:"state"`
	ProductID string          `json:"productId,omitempty"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
	Problems  []string        `json:"problems,omitempty"`
}

func configViewOf(s *session.Session) configView {
	v := configView{
		State:     s.State().String(),
		ProductID: s.ProductID(),
		Quantity:  s.Quantity(),
		Total:     s.Total(),
	}
	if s.State() == session.StateOpen {
		v.Problems = s.Validate()
	}
	return v
}

// sessionError maps configuration state machine errors to HTTP statuses.
func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotOpen), errors.Is(err, session.ErrNotLoading):
		respondErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrUnknownVariant), errors.Is(err, session.ErrUnknownAddon),
		errors.Is(err, session.ErrProductMismatch):
		respondErr(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondErr(w, http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) getConfiguration(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}
	respond(w, http.StatusOK, configViewOf(h.configSession(device)))
}

// openConfiguration starts configuring a product: the session transitions to
// loading, the product detail is fetched, and on success the session opens
// with the primary variant auto-selected.
func (h *Handler) openConfiguration(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}

	var req struct {
		ProductID string `json:"productId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondErr(w, http.StatusBadRequest, "product id is required")
		return
	}

	s := h.configSession(device)
	s.Open(req.ProductID)

	p, err := h.commerce.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		s.Close()
		if errors.Is(err, catalog.ErrNotFound) {
			respondErr(w, http.StatusNotFound, "product not found")
			return
		}
		h.upstreamError(w, r, err)
		return
	}
	if err := s.SetProduct(p); err != nil {
		sessionError(w, err)
		return
	}

	respond(w, http.StatusOK, configViewOf(s))
}

func (h *Handler) selectVariant(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}
	var req struct {
		GroupID   string `json:"groupId"`
		VariantID string `json:"variantId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := h.configSession(device)
	if err := s.SelectVariant(req.GroupID, req.VariantID); err != nil {
		sessionError(w, err)
		return
	}
	respond(w, http.StatusOK, configViewOf(s))
}

func (h *Handler) toggleAddon(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}
	var req struct {
		AddonID string `json:"addonId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := h.configSession(device)
	if err := s.ToggleAddon(req.AddonID); err != nil {
		sessionError(w, err)
		return
	}
	respond(w, http.StatusOK, configViewOf(s))
}

func (h *Handler) setAddonQuantity(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}
	var req struct {
		AddonID  string `json:"addonId"`
		Quantity int    `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := h.configSession(device)
	if err := s.SetAddonQuantity(req.AddonID, req.Quantity); err != nil {
		sessionError(w, err)
		return
	}
	respond(w, http.StatusOK, configViewOf(s))
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := h.configSession(device)
	if err := s.SetQuantity(req.Quantity); err != nil {
		sessionError(w, err)
		return
	}
	respond(w, http.StatusOK, configViewOf(s))
}

// commitConfiguration validates the current configuration, submits it to the
// commerce API, mirrors the confirmed line into the cart store, and closes
// the session.
func (h *Handler) commitConfiguration(w http.ResponseWriter, r *http.Request) {
	store, device, ok := h.store(w, r)
	if !ok {
		return
	}

	s := h.configSession(device)
	if problems := s.Validate(); len(problems) > 0 {
		respond(w, http.StatusUnprocessableEntity, validationProblems{Problems: problems})
		return
	}

	sid := sessionID(r)
	if sid == "" {
		sid = uuid.NewString()
	}
	pl, err := s.Payload(pricing.PayloadIDs{
		StoreID:   h.storeID(r),
		SessionID: sid,
		DeviceID:  device,
	})
	if err != nil {
		sessionError(w, err)
		return
	}
	if valid, problems := pricing.ValidatePayload(pl); !valid {
		respond(w, http.StatusUnprocessableEntity, validationProblems{Problems: problems})
		return
	}

	item, err := h.commerce.AddCartItem(r.Context(), pl)
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}

	store.AddItem(*item)
	s.Close()
	h.refresher(device, h.storeID(r), store).Request()

	respond(w, http.StatusCreated, item)
}

func (h *Handler) closeConfiguration(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}
	s := h.configSession(device)
	s.Close()
	respond(w, http.StatusOK, configViewOf(s))
}

type validationProblems struct {
	Problems []string `json:"problems"`
}
