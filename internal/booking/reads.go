package booking

import (
	"context"

	"github.com/iliyamo/rental-booking/internal/apperr"
	"github.com/iliyamo/rental-booking/internal/authz"
	"github.com/iliyamo/rental-booking/internal/model"
)

// GetBooking returns a booking visible to actor: its tenant, the owner of
// its property, or an administrator.
func (s *Service) GetBooking(ctx context.Context, actor authz.Actor, id uint64) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

// BookingPayments lists the payments of a booking visible to actor.
func (s *Service) BookingPayments(ctx context.Context, actor authz.Actor, bookingID uint64) ([]*model.Payment, error) {
	if _, err := s.GetBooking(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	return s.store.ListPaymentsByBooking(ctx, bookingID)
}

// ListBookings returns the bookings in actor's scope: a tenant's own, those
// on an owner's properties, or every booking for an administrator.
func (s *Service) ListBookings(ctx context.Context, actor authz.Actor) ([]*model.Booking, error) {
	if err := s.authorizeSelf(ctx, actor); err != nil {
		return nil, err
	}
	switch actor.Role {
	case model.RoleTenant:
		return s.store.ListBookingsByTenant(ctx, actor.ID)
	case model.RoleOwner:
		return s.store.ListBookingsByOwner(ctx, actor.ID)
	default:
		return s.store.ListBookings(ctx)
	}
}

// ListPayments mirrors ListBookings for payments.
func (s *Service) ListPayments(ctx context.Context, actor authz.Actor) ([]*model.Payment, error) {
	if err := s.authorizeSelf(ctx, actor); err != nil {
		return nil, err
	}
	switch actor.Role {
	case model.RoleTenant:
		return s.store.ListPaymentsByTenant(ctx, actor.ID)
	case model.RoleOwner:
		return s.store.ListPaymentsByOwner(ctx, actor.ID)
	default:
		return s.store.ListPayments(ctx)
	}
}

func (s *Service) authorizeView(ctx context.Context, actor authz.Actor, b *model.Booking) error {
	prop, err := s.dir.GetProperty(ctx, b.PropertyID)
	if err != nil {
		return apperr.Wrap(err, apperr.KindInternal, "load property %d", b.PropertyID)
	}
	return s.gate.Authorize(ctx, actor, authz.ViewBooking, authz.Subject{TenantID: b.TenantID, OwnerID: prop.OwnerID})
}

// authorizeSelf checks the actor is an active user holding its role; the
// actor is trivially a party of its own scope.
func (s *Service) authorizeSelf(ctx context.Context, actor authz.Actor) error {
	return s.gate.Authorize(ctx, actor, authz.ViewBooking, authz.Subject{TenantID: actor.ID, OwnerID: actor.ID})
}
