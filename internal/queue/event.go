// Package queue carries booking status changes over RabbitMQ: a publisher
// used by the booking service and a consumer that appends each event to an
// audit log file.
package queue

import (
	"time"

	"github.com/iliyamo/rental-booking/internal/booking"
)

// StatusChangedEvent is the wire payload of the booking.status_changed
// queue. From is empty for a newly submitted application.
type StatusChangedEvent struct {
	BookingID  uint64 `json:"booking_id"`
	PropertyID uint64 `json:"property_id"`
	TenantID   uint64 `json:"tenant_id"`
	From       string `json:"from,omitempty"`
	To         string `json:"to"`
	Event      string `json:"event,omitempty"`
	ActorID    uint64 `json:"actor_id"`
	ActorRole  string `json:"actor_role"`
	PaymentID  uint64 `json:"payment_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// EventFromChange converts a committed transition to its wire form.
func EventFromChange(ch booking.StatusChange) StatusChangedEvent {
	return StatusChangedEvent{
		BookingID:  ch.BookingID,
		PropertyID: ch.PropertyID,
		TenantID:   ch.TenantID,
		From:       string(ch.From),
		To:         string(ch.To),
		Event:      string(ch.Event),
		ActorID:    ch.ActorID,
		ActorRole:  string(ch.ActorRole),
		PaymentID:  ch.PaymentID,
		OccurredAt: ch.OccurredAt.UTC().Format(time.RFC3339),
	}
}
