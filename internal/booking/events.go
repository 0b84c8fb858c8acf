package booking

import (
	"context"
	"time"

	"github.com/iliyamo/rental-booking/internal/model"
)

// StatusChange describes a committed booking transition.
type StatusChange struct {
	BookingID  uint64              `json:"booking_id"`
	PropertyID uint64              `json:"property_id"`
	TenantID   uint64              `json:"tenant_id"`
	From       model.BookingStatus `json:"from"`
	To         model.BookingStatus `json:"to"`
	Event      Event               `json:"event"`
	ActorID    uint64              `json:"actor_id"`
	ActorRole  model.Role          `json:"actor_role"`
	PaymentID  uint64              `json:"payment_id,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// Publisher receives status changes after they are committed. A publish
// failure never undoes the transition.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, ch StatusChange) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChanged(context.Context, StatusChange) error { return nil }
