// Package event defines the booking lifecycle notifications and the ways to
// publish them. Consumers (notifications, chat) live outside this service.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	TypeBookingCreated       Type = "booking.created"
	TypeBookingStatusChanged Type = "booking.status_changed"
)

// Event is implemented by every payload.
type Event interface {
	EventType() Type
}

type BookingCreated struct {
	BookingID      string    `json:"booking_id"`
	ClientID       string    `json:"client_id"`
	ProfessionalID string    `json:"professional_id"`
	SlotID         string    `json:"slot_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (BookingCreated) EventType() Type { return TypeBookingCreated }

type BookingStatusChanged struct {
	BookingID  string    `json:"booking_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (BookingStatusChanged) EventType() Type { return TypeBookingStatusChanged }

// Envelope is the wire form shared by all publishers.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps e in an Envelope and marshals it.
func Encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload failed: %w", e.EventType(), err)
	}
	return json.Marshal(Envelope{Type: e.EventType(), Payload: payload})
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
