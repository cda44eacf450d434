package domain

// Favorite is one product id in the user's favorites set.
// Product holds either the summary supplied on add or the hydrated detail.
type Favorite struct {
	ProductID int64    `json:"id_producto"`
	Product   *Product `json:"producto,omitempty"`
}

// FavoriteMutation is the body of POST and DELETE /favorites.
type FavoriteMutation struct {
	ProductID int64 `json:"id_producto"`
}
