package model

import "time"

// SortField selects the ordering key for query operations.
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByAmount    SortField = "amount"
	// SortByPrice is accepted but not yet implemented; queries fall back
	// to insertion order. TODO: rank by effective price once quotes carry
	// a normalized unit price.
	SortByPrice SortField = "price"
)

// SortDirection is asc or desc; desc is the default.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Page is the pagination envelope shared by every query operation.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalize clamps page/limit to sane values.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset returns the number of records to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// RequestFilter narrows queryRequests. Zero values mean "no constraint".
type RequestFilter struct {
	UserAddress string
	FromToken   string
	ToToken     string
	ChainID     int64
	Status      RequestStatus
	From        time.Time
	To          time.Time

	Sort Sort
	Page Page
}

// OrderFilter narrows queryOrders with the same contract shape.
type OrderFilter struct {
	UserAddress string
	FromToken   string
	ToToken     string
	ChainID     int64
	Status      OrderStatus
	From        time.Time
	To          time.Time

	Sort Sort
	Page Page
}

// Sort pairs a field with a direction.
type Sort struct {
	Field     SortField
	Direction SortDirection
}
