package dto

// PaginationResponse reports how many items were returned and the limit applied, if any
type PaginationResponse struct {
	Count int `json:"count"`
	Limit int `json:"limit,omitempty"`
}
