package v1

import (
	"net/http"

	"skincare-client/internal/domain"
	"skincare-client/internal/store"
)

type FavoriteHandler struct {
	favorites *store.FavoritesStore
}

func NewFavoriteHandler(favorites *store.FavoritesStore) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

type favoritesResp struct {
	Items    []domain.Favorite `json:"items"`
	Updating bool              `json:"loading"`
	Error    string            `json:"error,omitempty"`
}

func (h *FavoriteHandler) snapshot() favoritesResp {
	return favoritesResp{Items: h.favorites.Items(), Updating: h.favorites.Loading(), Error: h.favorites.Err()}
}

func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	writeOK(w, h.snapshot())
}

// Add takes the product summary the UI already has so the card renders before hydration.
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	var summary domain.Product
	if !decode(w, r, &summary) {
		return
	}
	if summary.ID == 0 {
		writeStoreError(w, r, &domain.ValidationError{Fields: map[string]string{"id_producto": "product is required"}})
		return
	}
	if err := h.favorites.Add(r.Context(), summary); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.snapshot())
}

func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	if err := h.favorites.Remove(r.Context(), productID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, h.snapshot())
}

func (h *FavoriteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	var summary domain.Product
	if !decode(w, r, &summary) {
		return
	}
	summary.ID = productID

	on, err := h.favorites.Toggle(r.Context(), summary)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeOK(w, map[string]bool{"favorite": on})
}

func (h *FavoriteHandler) Status(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	writeOK(w, map[string]bool{
		"favorite": h.favorites.IsProductFavorite(productID),
		"updating": h.favorites.IsUpdating(productID),
	})
}
