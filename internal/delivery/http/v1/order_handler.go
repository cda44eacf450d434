package v1

import (
	"net/http"

	"skincare-client/internal/store"
)

type OrderHandler struct {
	orders *store.OrdersStore
}

func NewOrderHandler(orders *store.OrdersStore) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Load(r.Context()); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.orders.Orders())
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.Order(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, order)
}

// Checkout places the order and hands back the payment URL for the UI to redirect to.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	result, err := h.orders.Checkout(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, result)
}
