package call

// ListCallsRequest captures the query parameters of the call listing
type ListCallsRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=ringing in_progress completed failed"`
	From     string `query:"from" validate:"omitempty,phone"`
	Tag      string `query:"tag" validate:"omitempty,max=64"`
	Search   string `query:"search" validate:"omitempty,max=128"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// RateCallRequest sets the operator rating
type RateCallRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// UpdateNotesRequest replaces the operator notes
type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=10000"`
}

// UpdateTagsRequest replaces the tag list
type UpdateTagsRequest struct {
	Tags []string `json:"tags" validate:"required,max=32,dive,min=1,max=64"`
}
