package domain

import "time"

// AuditLog represents one recorded security or business event.
type AuditLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"` // JSON object
	CreatedAt time.Time `json:"created_at"`
}
