package domain

import (
	"strings"
	"time"
)

// Binding is the push-notification device currently linked to a user. One per user;
// each customer or partner login overwrites it.
type Binding struct {
	UserID      string
	DeviceToken string
	DeviceID    string
	UpdatedAt   time.Time
}

// Details is what the client reports about its device at login.
type Details struct {
	DeviceToken string `json:"device_token"`
	DeviceID    string `json:"device_id"`
}

// Empty reports whether the client sent nothing to bind.
func (d Details) Empty() bool {
	return strings.TrimSpace(d.DeviceToken) == "" && strings.TrimSpace(d.DeviceID) == ""
}
