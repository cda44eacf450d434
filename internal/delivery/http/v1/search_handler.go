package v1

import (
	"net/http"

	"skincare-client/internal/domain"
	"skincare-client/internal/store"
	"skincare-client/pkg/utils"
)

type SearchHandler struct {
	search *store.SearchStore
}

func NewSearchHandler(search *store.SearchStore) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchMeta struct {
	Query string `json:"query"`
	Total int    `json:"total"`
}

// Search runs the query through the shared store, so a newer request
// supersedes this one and it answers 409.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := utils.ParseInt(r.URL.Query().Get("limit"), 0)

	products, err := h.search.Search(r.Context(), query)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	total := len(products)
	if products == nil {
		products = []domain.Product{}
	}
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}

	utils.WriteJSON(w, http.StatusOK, domain.Response{
		Success: true,
		Data:    products,
		Meta:    searchMeta{Query: h.search.Query(), Total: total},
	})
}
