package v1

import (
	"net/http"

	"skincare-client/internal/domain"
	"skincare-client/internal/store"
)

type AddressHandler struct {
	addresses *store.AddressStore
	cart      *store.CartStore
}

func NewAddressHandler(addresses *store.AddressStore, cart *store.CartStore) *AddressHandler {
	return &AddressHandler{addresses: addresses, cart: cart}
}

func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.addresses.Snapshot())
}

func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.AddressInput
	if !decode(w, r, &in) {
		return
	}
	if err := h.addresses.Create(r.Context(), in); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.addresses.Snapshot())
}

func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.addresses.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.addresses.Snapshot())
}

type selectReq struct {
	AddressID int64 `json:"id_direccion"`
}

func (h *AddressHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if !decode(w, r, &req) {
		return
	}
	if err := h.addresses.Select(req.AddressID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.addresses.Snapshot())
}

// Shipping quotes the current cart to the selected address.
func (h *AddressHandler) Shipping(w http.ResponseWriter, r *http.Request) {
	if _, err := h.addresses.CalculateShipping(r.Context(), h.cart.Items()); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.addresses.Snapshot())
}

func (h *AddressHandler) Provinces(w http.ResponseWriter, r *http.Request) {
	provinces, err := h.addresses.Provinces(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, provinces)
}

func (h *AddressHandler) Localities(w http.ResponseWriter, r *http.Request) {
	provinceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	localities, err := h.addresses.Localities(r.Context(), provinceID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, localities)
}
