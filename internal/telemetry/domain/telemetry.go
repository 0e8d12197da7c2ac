package domain

import "time"

// Event types emitted by the services.
const (
	EventLogin         = "login"
	EventLoginFailed   = "login_failed"
	EventPINVerified   = "pin_verified"
	EventLeadGenerated = "lead_generated"
	EventLeadConflict  = "lead_conflict"
	EventLeadStatus    = "lead_status_changed"
	EventHTTPRequest   = "http_request"
)

// Event is one telemetry record. It is serialized as JSON onto the telemetry topic.
type Event struct {
	UserID    string            `json:"user_id,omitempty"`
	EventType string            `json:"event_type"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewEvent returns an event stamped with the current time.
func NewEvent(source, eventType, userID string, metadata map[string]string) *Event {
	return &Event{
		UserID:    userID,
		EventType: eventType,
		Source:    source,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}
