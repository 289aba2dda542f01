package space

// Filter narrows the space list. Type accepts UI categories and backend types.
type Filter struct {
	Type     string `json:"type" validate:"omitempty,max=64"`
	Activity string `json:"activity" validate:"omitempty,max=64"`
	Query    string `json:"q" validate:"omitempty,max=200"`
}

// AvailabilityRequest selects a day for a space.
type AvailabilityRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// ResolveResponse is returned by the resolve endpoint.
type ResolveResponse struct {
	Key     string `json:"key"`
	SpaceID int64  `json:"space_id"`
}
