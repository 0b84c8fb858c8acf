// Package authz decides which actor may trigger which booking transition.
// A decision combines the actor's role with an identity check against the
// booking: tenants act only on their own bookings, owners only on bookings
// for properties they own.
package authz

import (
	"context"
	"errors"

	"github.com/iliyamo/rental-booking/internal/apperr"
	"github.com/iliyamo/rental-booking/internal/model"
)

// Action names an operation guarded by the gate.
type Action string

const (
	SubmitApplication   Action = "submit_application"
	ApproveApplication  Action = "approve_application"
	RejectApplication   Action = "reject_application"
	SubmitLeaseTerms    Action = "submit_lease_terms"
	ApproveLease        Action = "approve_lease"
	RejectLease         Action = "reject_lease"
	PresentAgreement    Action = "present_agreement"
	ApproveAgreement    Action = "approve_agreement"
	DeclineAgreement    Action = "decline_agreement"
	RecordPayment       Action = "record_payment"
	ForceReject         Action = "force_reject"
	ForceTerminate      Action = "force_terminate"
	UpdatePaymentStatus Action = "update_payment_status"
	ViewBooking         Action = "view_booking"
)

// binding says which booking party the actor must be.
type binding int

const (
	asTenant binding = iota + 1
	asOwner
	asAnyone
)

var permissions = map[model.Role]map[Action]binding{
	model.RoleTenant: {
		SubmitApplication: asTenant,
		SubmitLeaseTerms:  asTenant,
		PresentAgreement:  asTenant,
		ApproveAgreement:  asTenant,
		DeclineAgreement:  asTenant,
		RecordPayment:     asTenant,
		ViewBooking:       asTenant,
	},
	model.RoleOwner: {
		ApproveApplication: asOwner,
		RejectApplication:  asOwner,
		ApproveLease:       asOwner,
		RejectLease:        asOwner,
		ViewBooking:        asOwner,
	},
	model.RoleAdmin: {
		ForceReject:         asAnyone,
		ForceTerminate:      asAnyone,
		UpdatePaymentStatus: asAnyone,
		ViewBooking:         asAnyone,
	},
}

// Allowed reports whether role may perform action at all, ignoring identity.
func Allowed(role model.Role, action Action) bool {
	_, ok := permissions[role][action]
	return ok
}

// Actor is the authenticated caller.
type Actor struct {
	ID   uint64
	Role model.Role
}

// Subject identifies the parties of the booking an action targets.
type Subject struct {
	TenantID uint64
	OwnerID  uint64
}

// UserLookup resolves user records.
type UserLookup interface {
	GetUser(ctx context.Context, id uint64) (model.User, error)
}

// Gate authorizes actors against the user directory.
type Gate struct {
	users UserLookup
}

func NewGate(users UserLookup) *Gate { return &Gate{users: users} }

// Authorize returns nil when actor may perform action on subject. The actor
// must exist, be Active, hold the role it claims and, for tenant and owner
// actions, be the matching party of the booking.
func (g *Gate) Authorize(ctx context.Context, actor Actor, action Action, subject Subject) error {
	u, err := g.users.GetUser(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Authorization("unknown user %d", actor.ID)
		}
		return apperr.Wrap(err, apperr.KindInternal, "load user %d", actor.ID)
	}
	if !u.Active() {
		return apperr.Authorization("user %d is %s", u.ID, u.ApprovalStatus)
	}
	if u.Role != actor.Role {
		return apperr.Authorization("user %d does not hold role %s", u.ID, actor.Role)
	}
	b, ok := permissions[actor.Role][action]
	if !ok {
		return apperr.Authorization("role %s may not %s", actor.Role, action)
	}
	switch b {
	case asTenant:
		if subject.TenantID != actor.ID {
			return apperr.Authorization("user %d is not the tenant of this booking", actor.ID)
		}
	case asOwner:
		if subject.OwnerID != actor.ID {
			return apperr.Authorization("user %d does not own this property", actor.ID)
		}
	}
	return nil
}
