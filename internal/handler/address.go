package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/pizza-storefront/internal/domain/address"
	"github.com/xenking/pizza-storefront/internal/domain/catalog"
)

// addressView is the JSON shape for a saved address.
type addressView struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Phone     string        `json:"phone"`
	Line1     string        `json:"line1"`
	Line2     string        `json:"line2,omitempty"`
	City      string        `json:"city"`
	Pincode   string        `json:"pincode"`
	Latitude  float64       `json:"latitude,omitempty"`
	Longitude float64       `json:"longitude,omitempty"`
	Label     address.Label `json:"label"`
	IsDefault bool          `json:"isDefault"`
}

func toAddressView(a address.Address) addressView {
	return addressView{
		ID:        a.ID,
		Name:      a.Name,
		Phone:     a.Phone,
		Line1:     a.Line1,
		Line2:     a.Line2,
		City:      a.City,
		Pincode:   a.Pincode,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		Label:     a.Label,
		IsDefault: a.IsDefault,
	}
}

type addressRequest struct {
	Name      string        `json:"name"`
	Phone     string        `json:"phone"`
	Line1     string        `json:"line1"`
	Line2     string        `json:"line2"`
	City      string        `json:"city"`
	Pincode   string        `json:"pincode"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Label     address.Label `json:"label"`
}

func (req addressRequest) validate() []string {
	var errs []string
	if req.Name == "" {
		errs = append(errs, "name is required")
	}
	if req.Phone == "" {
		errs = append(errs, "phone is required")
	}
	if req.Line1 == "" {
		errs = append(errs, "address line is required")
	}
	if req.City == "" {
		errs = append(errs, "city is required")
	}
	if req.Pincode == "" {
		errs = append(errs, "pincode is required")
	}
	switch req.Label {
	case "", address.LabelHome, address.LabelWork, address.LabelOther:
	default:
		errs = append(errs, "label must be home, work, or other")
	}
	return errs
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}
	list, err := h.addresses.List(r.Context(), device)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	views := make([]addressView, len(list))
	for i, a := range list {
		views[i] = toAddressView(a)
	}
	respond(w, http.StatusOK, views)
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}
	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		respond(w, http.StatusUnprocessableEntity, validationProblems{Problems: errs})
		return
	}
	if req.Label == "" {
		req.Label = address.LabelOther
	}

	a := address.Address{
		ID:        uuid.NewString(),
		DeviceID:  device,
		Name:      req.Name,
		Phone:     req.Phone,
		Line1:     req.Line1,
		Line2:     req.Line2,
		City:      req.City,
		Pincode:   req.Pincode,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Label:     req.Label,
	}
	if err := h.addresses.Create(r.Context(), &a); err != nil {
		h.internalError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toAddressView(a))
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}
	id := chi.URLParam(r, "addressID")

	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		respond(w, http.StatusUnprocessableEntity, validationProblems{Problems: errs})
		return
	}
	if req.Label == "" {
		req.Label = address.LabelOther
	}

	existing, err := h.addresses.Get(r.Context(), device, id)
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			respondErr(w, http.StatusNotFound, "address not found")
			return
		}
		h.internalError(w, r, err)
		return
	}

	existing.Name = req.Name
	existing.Phone = req.Phone
	existing.Line1 = req.Line1
	existing.Line2 = req.Line2
	existing.City = req.City
	existing.Pincode = req.Pincode
	existing.Latitude = req.Latitude
	existing.Longitude = req.Longitude
	existing.Label = req.Label

	if err := h.addresses.Update(r.Context(), existing); err != nil {
		h.internalError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toAddressView(*existing))
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "addressID")

	if err := h.addresses.Delete(r.Context(), device, id); err != nil {
		if errors.Is(err, address.ErrNotFound) {
			respondErr(w, http.StatusNotFound, "address not found")
			return
		}
		h.internalError(w, r, err)
		return
	}

	// Deleting the selected address clears the selection.
	if s.SelectedAddressID() == id {
		s.SetSelectedAddress("")
		h.savePrefs(r.Context(), device)
	}

	respond(w, http.StatusOK, nil)
}

func (h *Handler) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		respondErr(w, http.StatusBadRequest, "device id header is required")
		return
	}
	id := chi.URLParam(r, "addressID")

	if err := h.addresses.SetDefault(r.Context(), device, id); err != nil {
		if errors.Is(err, address.ErrNotFound) {
			respondErr(w, http.StatusNotFound, "address not found")
			return
		}
		h.internalError(w, r, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

// selectAddress records which saved address the order goes to. Selecting an
// address switches the cart to delivery.
func (h *Handler) selectAddress(w http.ResponseWriter, r *http.Request) {
	s, device, ok := h.store(w, r)
	if !ok {
		return
	}

	var req struct {
		AddressID string `json:"addressId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AddressID == "" {
		respondErr(w, http.StatusBadRequest, "address id is required")
		return
	}

	if _, err := h.addresses.Get(r.Context(), device, req.AddressID); err != nil {
		if errors.Is(err, address.ErrNotFound) {
			respondErr(w, http.StatusNotFound, "address not found")
			return
		}
		h.internalError(w, r, err)
		return
	}

	s.SetDeliveryType(catalog.DeliveryDelivery)
	s.SetSelectedAddress(req.AddressID)
	h.savePrefs(r.Context(), device)
	h.refresher(device, h.storeID(r), s).Request()

	respond(w, http.StatusOK, h.cartView(s))
}
