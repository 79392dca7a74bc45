// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

import (
	"time"

	"github.com/iliyamo/school-event-seating/internal/model"
)

// RegistrationQueue is the durable queue every registration event goes to.
const RegistrationQueue = "seating.registrations"

// Event types carried in RegistrationEvent.Type.
const (
	EventRegistrationCreated = "registration.created"
	EventRegistrationRemoved = "registration.removed"
)

// RegistrationEvent is published after a registration is committed or
// removed.  It carries enough for the ticket log and for notification
// consumers without querying the primary database.
type RegistrationEvent struct {
	Type           string   `json:"type"`
	RegistrationID string   `json:"registration_id"`
	ParentName     string   `json:"parent_name,omitempty"`
	ChildName      string   `json:"child_name"`
	ChildClass     string   `json:"child_class"`
	SeatLabels     []string `json:"seats"`
	OccurredAt     string   `json:"occurred_at"`
}

// NewRegistrationEvent builds an event of the given type for reg and seats.
func NewRegistrationEvent(typ string, reg model.Registration, seats []model.Seat, at time.Time) RegistrationEvent {
	labels := make([]string, 0, len(seats))
	for _, s := range seats {
		labels = append(labels, s.Label())
	}
	return RegistrationEvent{
		Type:           typ,
		RegistrationID: reg.ID,
		ParentName:     reg.ParentName,
		ChildName:      reg.ChildName,
		ChildClass:     reg.ChildClass,
		SeatLabels:     labels,
		OccurredAt:     at.UTC().Format(time.RFC3339),
	}
}
