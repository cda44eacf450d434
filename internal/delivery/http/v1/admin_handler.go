package v1

import (
	"net/http"

	"skincare-client/internal/domain"
	"skincare-client/internal/store"
)

type AdminHandler struct {
	admin *store.AdminService
}

func NewAdminHandler(admin *store.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// UpdateProduct applies a stock and/or price patch.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch domain.ProductPatch
	if !decode(w, r, &patch) {
		return
	}
	if patch.Stock == nil && patch.Price == nil {
		writeStoreError(w, r, &domain.ValidationError{Fields: map[string]string{"stock": "nothing to update"}})
		return
	}

	if patch.Stock != nil {
		if err := h.admin.UpdateStock(r.Context(), id, *patch.Stock); err != nil {
			writeStoreError(w, r, err)
			return
		}
	}
	if patch.Price != nil {
		if err := h.admin.UpdatePrice(r.Context(), id, *patch.Price); err != nil {
			writeStoreError(w, r, err)
			return
		}
	}
	writeOK(w, map[string]int64{"id_producto": id})
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.admin.Orders(r.Context(), r.URL.Query().Get("estado"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, orders)
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.OrderStatusPatch
	if !decode(w, r, &req) {
		return
	}
	if err := h.admin.UpdateOrderStatus(r.Context(), id, req.Status); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"id_orden": id, "estado": req.Status})
}

func (h *AdminHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	writeOK(w, domain.OrderStatuses)
}

func (h *AdminHandler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.PurgeProducts(); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, nil)
}
