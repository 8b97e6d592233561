package requests

// ReorderRequest lists every image of a gallery in its new order.
type ReorderRequest struct {
	ImageIDs []string `json:"imageIds" binding:"required,min=1,dive,required"`
}

// MoveRequest moves one image to a zero-based position.
type MoveRequest struct {
	Position *int `json:"position" binding:"required,min=0"`
}

// ReconciliationQuery filters the reconciliation log.
type ReconciliationQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}
