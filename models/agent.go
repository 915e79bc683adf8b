package models

// DeliveryAgent represents a courier who can claim confirmed orders.
// The active/rejected/history order sets live in join tables owned by this
// aggregate and are mutated only through the dispatch coordinator.
type DeliveryAgent struct {
	ID            int64   `db:"id" json:"id"`
	UserID        int64   `db:"user_id" json:"user_id"`
	VehicleType   string  `db:"vehicle_type" json:"vehicle_type"`
	VehicleNumber string  `db:"vehicle_number" json:"vehicle_number"`
	IsAvailable   bool    `db:"is_available" json:"is_available"`
	IsVerified    bool    `db:"is_verified" json:"is_verified"`
	Lat           float64 `db:"lat" json:"lat"`
	Lng           float64 `db:"lng" json:"lng"`
	RatingSum     float64 `db:"rating_sum" json:"-"`
	RatingCount   int64   `db:"rating_count" json:"rating_count"`
}

// Rating returns the average rating, or 0 when unrated.
func (a *DeliveryAgent) Rating() float64 {
	if a.RatingCount == 0 {
		return 0
	}
	return a.RatingSum / float64(a.RatingCount)
}

// CanDispatch reports whether the agent may see or claim orders.
func (a *DeliveryAgent) CanDispatch() bool {
	return a.IsVerified && a.IsAvailable
}
