package domain

import "time"

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusActive    Status = "active"
	StatusClosed    Status = "closed"
	StatusConverted Status = "converted"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusClosed, StatusConverted, StatusRejected:
		return true
	}
	return false
}

// Lead is a requester's interest in a listed property.
// At most one lead per (UserID, PropertyID) may be active.
type Lead struct {
	ID             string    `json:"_id"`
	ListedByUserID string    `json:"listed_by_user_id"`
	UserID         string    `json:"user_id"`
	PropertyID     string    `json:"property_id"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
