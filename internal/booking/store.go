package booking

import (
	"context"

	"github.com/iliyamo/rental-booking/internal/model"
)

// Store is the persistence layer the service runs against. Writes happen
// only inside WithinTx; reads outside a transaction see committed state.
type Store interface {
	// WithinTx runs fn in a transaction, committing if fn returns nil and
	// rolling back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	ListBookingsByTenant(ctx context.Context, tenantID uint64) ([]*model.Booking, error)
	ListBookingsByOwner(ctx context.Context, ownerID uint64) ([]*model.Booking, error)
	ListBookings(ctx context.Context) ([]*model.Booking, error)

	GetPayment(ctx context.Context, id uint64) (*model.Payment, error)
	ListPaymentsByBooking(ctx context.Context, bookingID uint64) ([]*model.Payment, error)
	ListPaymentsByTenant(ctx context.Context, tenantID uint64) ([]*model.Payment, error)
	ListPaymentsByOwner(ctx context.Context, ownerID uint64) ([]*model.Payment, error)
	ListPayments(ctx context.Context) ([]*model.Payment, error)
}

// Tx is a unit of work. LockBooking and LockPayment take an exclusive row
// lock held until the transaction ends, serializing transitions on the
// same record.
type Tx interface {
	LockBooking(ctx context.Context, id uint64) (*model.Booking, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	UpdateBooking(ctx context.Context, b *model.Booking) error

	PaymentRefExists(ctx context.Context, ref string) (bool, error)
	InsertPayment(ctx context.Context, p *model.Payment) error
	LockPayment(ctx context.Context, id uint64) (*model.Payment, error)
	UpdatePayment(ctx context.Context, p *model.Payment) error
}

// Directory resolves the external user and property collaborators.
type Directory interface {
	GetUser(ctx context.Context, id uint64) (model.User, error)
	GetProperty(ctx context.Context, id uint64) (model.Property, error)
}
