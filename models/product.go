package models

// Product is a sellable item. AuthorID links to the user who prepares it;
// that chain (order item -> product -> author) backs pickup verification and
// the restaurant-location fallback.
type Product struct {
	ID       int64   `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Price    float64 `db:"price" json:"price"`
	Stock    int     `db:"stock" json:"stock"`
	AuthorID int64   `db:"author_id" json:"author_id"`
	Lat      float64 `db:"lat" json:"lat"`
	Lng      float64 `db:"lng" json:"lng"`
}
