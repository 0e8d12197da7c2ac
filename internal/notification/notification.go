// Package notification publishes push-notification requests for downstream delivery.
package notification

import (
	"context"
	"time"
)

// Kind names the notification template.
type Kind string

// KindLeadGenerated tells a listing owner that someone is interested in their property.
const KindLeadGenerated Kind = "lead_generated"

// Message is a push-notification request. DeviceToken targets the recipient's bound device.
type Message struct {
	Kind            Kind              `json:"kind"`
	RecipientUserID string            `json:"recipient_user_id"`
	DeviceToken     string            `json:"device_token"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Data            map[string]string `json:"data,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Publisher hands messages to the delivery pipeline.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// Noop drops every message.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, *Message) error { return nil }
