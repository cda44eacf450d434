package v1

import (
	"net/http"

	"skincare-client/internal/domain"
	"skincare-client/internal/store"
)

type CartHandler struct {
	cart *store.CartStore
}

func NewCartHandler(cart *store.CartStore) *CartHandler {
	return &CartHandler{cart: cart}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.cart.Snapshot())
}

// Reload forces an authoritative reload from the backend.
func (h *CartHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Load(r.Context()); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.cart.Snapshot())
}

func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req domain.CartMutation
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := h.cart.AddToCart(r.Context(), req.ProductID, req.Quantity); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.cart.Snapshot())
}

type quantityReq struct {
	Quantity int `json:"cantidad"`
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	var req quantityReq
	if !decode(w, r, &req) {
		return
	}
	if err := h.cart.UpdateQuantity(r.Context(), productID, req.Quantity); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.cart.Snapshot())
}

func (h *CartHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	if err := h.cart.RemoveFromCart(r.Context(), productID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.cart.Snapshot())
}

type stockCheckResp struct {
	Items  []domain.LineItem `json:"detalles"`
	Issues []domain.LineItem `json:"issues"`
}

func (h *CartHandler) CheckStock(w http.ResponseWriter, r *http.Request) {
	checked, err := h.cart.CheckStock(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	issues := domain.StockIssues(checked)
	if issues == nil {
		issues = []domain.LineItem{}
	}
	writeOK(w, stockCheckResp{Items: checked, Issues: issues})
}

// Adjust re-checks live stock and clamps every line that exceeds it.
func (h *CartHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	checked, err := h.cart.CheckStock(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if err := h.cart.AdjustCartQuantities(r.Context(), checked); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.cart.Snapshot())
}

func (h *CartHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.cart.Open()
	writeOK(w, h.cart.Snapshot())
}

func (h *CartHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.cart.Close()
	writeOK(w, h.cart.Snapshot())
}
