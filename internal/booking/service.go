// Package booking implements the rental booking lifecycle: the state
// machine, its authorization checks and the payments recorded alongside
// transitions.
package booking

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/rental-booking/internal/apperr"
	"github.com/iliyamo/rental-booking/internal/authz"
	"github.com/iliyamo/rental-booking/internal/lease"
	"github.com/iliyamo/rental-booking/internal/ledger"
	"github.com/iliyamo/rental-booking/internal/model"
)

// Service executes booking operations. Every transition locks the booking
// row, re-reads its persisted status, authorizes the actor and applies the
// change in one transaction.
type Service struct {
	store  Store
	dir    Directory
	gate   *authz.Gate
	ledger *ledger.Ledger
	pub    Publisher
	log    *zap.Logger
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

func WithPublisher(p Publisher) Option { return func(s *Service) { s.pub = p } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store Store, dir Directory, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		dir:    dir,
		gate:   authz.NewGate(dir),
		ledger: l,
		pub:    NopPublisher{},
		log:    zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Tariff exposes the ledger's utility rates.
func (s *Service) Tariff() ledger.Tariff { return s.ledger.Tariff() }

// SubmitApplication creates a booking in Pending Owner Approval.
func (s *Service) SubmitApplication(ctx context.Context, actor authz.Actor, propertyID uint64, details model.ApplicantDetails) (*model.Booking, error) {
	if err := s.gate.Authorize(ctx, actor, authz.SubmitApplication, authz.Subject{TenantID: actor.ID}); err != nil {
		return nil, err
	}
	if err := ValidateApplicant(details); err != nil {
		return nil, err
	}
	prop, err := s.dir.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !prop.AcceptingApplications() {
		return nil, apperr.NotFound("property %d is not accepting applications", propertyID)
	}
	now := s.now()
	b := &model.Booking{
		PropertyID: propertyID,
		TenantID:   actor.ID,
		Applicant:  details,
		Status:     model.StatusPendingOwnerApproval,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.WithinTx(ctx, func(tx Tx) error {
		return tx.InsertBooking(ctx, b)
	}); err != nil {
		return nil, err
	}
	s.committed(ctx, StatusChange{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		TenantID:   b.TenantID,
		To:         b.Status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		OccurredAt: now,
	})
	return b, nil
}

// OwnerApprove accepts a pending application.
func (s *Service) OwnerApprove(ctx context.Context, actor authz.Actor, id uint64) (*model.Booking, error) {
	return s.transition(ctx, actor, id, authz.ApproveApplication, EventOwnerApprove, nil)
}

// OwnerReject declines a pending application. reason is required.
func (s *Service) OwnerReject(ctx context.Context, actor authz.Actor, id uint64, reason string) (*model.Booking, error) {
	return s.transition(ctx, actor, id, authz.RejectApplication, EventOwnerReject, withReason(reason, true))
}

// SubmitLeaseTerms records the tenant's proposal and derives the end date.
func (s *Service) SubmitLeaseTerms(ctx context.Context, actor authz.Actor, id uint64, terms LeaseTerms) (*model.Booking, error) {
	return s.transition(ctx, actor, id, authz.SubmitLeaseTerms, EventSubmitLeaseTerms, func(_ context.Context, _ Tx, _ model.Property, b *model.Booking) error {
		if terms.StartDate.IsZero() {
			return apperr.Validation("lease start date is required")
		}
		start := truncateDay(terms.StartDate)
		if start.Before(truncateDay(s.now())) {
			return apperr.Validation("lease start date %s is in the past", start.Format(time.DateOnly))
		}
		duration := strings.TrimSpace(terms.Duration)
		end, err := lease.EndDate(start, duration)
		if err != nil {
			return err
		}
		b.LeaseDuration = &duration
		b.LeaseStartDate = &start
		b.LeaseEndDate = &end
		b.AdditionalTerms = optional(terms.AdditionalTerms)
		return nil
	})
}

// OwnerApproveLease accepts submitted lease terms.
func (s *Service) OwnerApproveLease(ctx context.Context, actor authz.Actor, id uint64) (*model.Booking, error) {
	return s.transition(ctx, actor, id, authz.ApproveLease, EventOwnerApproveLease, nil)
}

// OwnerRejectLease declines submitted lease terms, ending the booking.
func (s *Service) OwnerRejectLease(ctx context.Context, actor authz.Actor, id uint64, reason string) (*model.Booking, error) {
	return s.transition(ctx, actor, id, authz.RejectLease, EventOwnerRejectLease, withReason(reason, true))
}

// PresentAgreement moves approved lease terms to Agreement Pending.
func (s *Service) PresentAgreement(ctx context.Context, actor authz.Actor, id uint64) (*model.Booking, error) {
	return s.transition(ctx, actor, id, authz.PresentAgreement, EventPresentAgreement, nil)
}

// ApproveAgreement signs the agreement and stamps AgreementDate.
func (s *Service) ApproveAgreement(ctx context.Context, actor authz.Actor, id uint64) (*model.Booking, error) {
	return s.transition(ctx, actor, id, authz.ApproveAgreement, EventApproveAgreement, func(_ context.Context, _ Tx, _ model.Property, b *model.Booking) error {
		now := s.now()
		b.AgreementDate = &now
		return nil
	})
}

// DeclineAgreement ends the booking in Agreement Declined. reason is optional.
func (s *Service) DeclineAgreement(ctx context.Context, actor authz.Actor, id uint64, reason string) (*model.Booking, error) {
	return s.transition(ctx, actor, id, authz.DeclineAgreement, EventDeclineAgreement, withReason(reason, false))
}

// AdminReject force-rejects a booking that has not yet been paid for. A
// signed agreement is voided, so AgreementDate is cleared.
func (s *Service) AdminReject(ctx context.Context, actor authz.Actor, id uint64, reason string) (*model.Booking, error) {
	setReason := withReason(reason, true)
	return s.transition(ctx, actor, id, authz.ForceReject, EventAdminReject, func(ctx context.Context, tx Tx, prop model.Property, b *model.Booking) error {
		if err := setReason(ctx, tx, prop, b); err != nil {
			return err
		}
		b.AgreementDate = nil
		return nil
	})
}

// AdminTerminate ends a paid or active tenancy.
func (s *Service) AdminTerminate(ctx context.Context, actor authz.Actor, id uint64, reason string) (*model.Booking, error) {
	b, err := s.transition(ctx, actor, id, authz.ForceTerminate, EventAdminTerminate, nil)
	if err == nil && strings.TrimSpace(reason) != "" {
		s.log.Info("booking terminated", zap.Uint64("booking_id", b.ID), zap.String("reason", strings.TrimSpace(reason)))
	}
	return b, err
}

func withReason(reason string, required bool) mutation {
	return func(_ context.Context, _ Tx, _ model.Property, b *model.Booking) error {
		r := optional(reason)
		if r == nil && required {
			return apperr.Validation("a reason is required")
		}
		b.RejectionReason = r
		return nil
	}
}

// DepositRequest carries a security deposit payment.
type DepositRequest struct {
	BookingID      uint64
	Amount         decimal.Decimal
	Method         model.PaymentMethod
	TransactionRef string
}

// RentRequest carries a monthly rent payment. DueDate defaults to today.
type RentRequest struct {
	BookingID        uint64
	ElectricityUnits decimal.Decimal
	Method           model.PaymentMethod
	TransactionRef   string
	DueDate          *time.Time
}

// PaymentResult is the payment written together with the booking it moved.
type PaymentResult struct {
	Payment *model.Payment `json:"payment"`
	Booking *model.Booking `json:"booking"`
}

// RecordSecurityDeposit writes a Completed security deposit and moves the
// booking to Payment Completed in the same transaction.
func (s *Service) RecordSecurityDeposit(ctx context.Context, actor authz.Actor, req DepositRequest) (*PaymentResult, error) {
	var p *model.Payment
	b, err := s.transition(ctx, actor, req.BookingID, authz.RecordPayment, EventDepositPaid, func(ctx context.Context, tx Tx, prop model.Property, b *model.Booking) error {
		if err := s.ledger.CheckDeposit(prop.Deposit, req.Amount); err != nil {
			return err
		}
		var err error
		p, err = s.ledger.CreateDeposit(ctx, tx, b.ID, req.Amount, req.Method, req.TransactionRef)
		return err
	}, withPayment(&p))
	if err != nil {
		return nil, s.settlementFailed(ctx, err)
	}
	s.logPayment(p)
	return &PaymentResult{Payment: p, Booking: b}, nil
}

// RecordMonthlyRent writes a Completed monthly rent payment and activates
// the booking if it is not already Active.
func (s *Service) RecordMonthlyRent(ctx context.Context, actor authz.Actor, req RentRequest) (*PaymentResult, error) {
	var p *model.Payment
	b, err := s.transition(ctx, actor, req.BookingID, authz.RecordPayment, EventRentPaid, func(ctx context.Context, tx Tx, prop model.Property, b *model.Booking) error {
		var err error
		p, err = s.ledger.CreateMonthlyRent(ctx, tx, b.ID, prop.Rent, req.ElectricityUnits, req.Method, req.TransactionRef, req.DueDate)
		return err
	}, withPayment(&p))
	if err != nil {
		return nil, s.settlementFailed(ctx, err)
	}
	s.logPayment(p)
	return &PaymentResult{Payment: p, Booking: b}, nil
}

func (s *Service) logPayment(p *model.Payment) {
	s.log.Info("payment recorded",
		zap.Uint64("payment_id", p.ID),
		zap.Uint64("booking_id", p.BookingID),
		zap.String("transaction_ref", p.TransactionRef),
		zap.String("amount", p.Amount.StringFixed(2)),
		zap.String("type", string(p.Type)))
}

// settlementFailed records a gateway failure as a Failed payment, outside
// the rolled back transaction, and converts it to an internal error.
func (s *Service) settlementFailed(ctx context.Context, err error) error {
	se, ok := ledger.AsSettlementError(err)
	if !ok {
		return err
	}
	failed := se.Payment
	if werr := s.store.WithinTx(ctx, func(tx Tx) error {
		return tx.InsertPayment(ctx, failed)
	}); werr != nil {
		s.log.Error("record failed payment", zap.String("transaction_ref", failed.TransactionRef), zap.Error(werr))
	} else {
		s.log.Warn("payment settlement failed",
			zap.Uint64("payment_id", failed.ID),
			zap.Uint64("booking_id", failed.BookingID),
			zap.String("transaction_ref", failed.TransactionRef),
			zap.Error(se.Err))
	}
	return &apperr.Error{Kind: apperr.KindInternal, Message: "payment settlement failed", Err: se}
}

// UpdatePaymentStatus lets an administrator advance a payment's status.
func (s *Service) UpdatePaymentStatus(ctx context.Context, actor authz.Actor, paymentID uint64, status model.PaymentStatus) (*model.Payment, error) {
	if err := s.gate.Authorize(ctx, actor, authz.UpdatePaymentStatus, authz.Subject{}); err != nil {
		return nil, err
	}
	var out *model.Payment
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		p, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		from := p.Status
		if err := ledger.AdvanceStatus(p, status, s.now()); err != nil {
			return err
		}
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		s.log.Info("payment status updated",
			zap.Uint64("payment_id", p.ID),
			zap.String("from", string(from)),
			zap.String("to", string(p.Status)),
			zap.Uint64("actor_id", actor.ID))
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type mutation func(ctx context.Context, tx Tx, prop model.Property, b *model.Booking) error

type transitionOption func(*StatusChange)

func withPayment(p **model.Payment) transitionOption {
	return func(ch *StatusChange) {
		if *p != nil {
			ch.PaymentID = (*p).ID
		}
	}
}

// transition is the single write path for existing bookings: lock, load the
// property, authorize, check the edge, mutate, persist.
func (s *Service) transition(ctx context.Context, actor authz.Actor, id uint64, action authz.Action, ev Event, mutate mutation, opts ...transitionOption) (*model.Booking, error) {
	var (
		out    *model.Booking
		change StatusChange
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		cur, err := tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		prop, err := s.dir.GetProperty(ctx, cur.PropertyID)
		if err != nil {
			return err
		}
		if err := s.gate.Authorize(ctx, actor, action, authz.Subject{TenantID: cur.TenantID, OwnerID: prop.OwnerID}); err != nil {
			return err
		}
		to, err := Next(cur.Status, ev)
		if err != nil {
			return err
		}
		next := cur.Clone()
		next.Status = to
		if mutate != nil {
			if err := mutate(ctx, tx, prop, next); err != nil {
				return err
			}
		}
		next.UpdatedAt = s.now()
		if err := tx.UpdateBooking(ctx, next); err != nil {
			return err
		}
		out = next
		change = StatusChange{
			BookingID:  next.ID,
			PropertyID: next.PropertyID,
			TenantID:   next.TenantID,
			From:       cur.Status,
			To:         to,
			Event:      ev,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			OccurredAt: next.UpdatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(&change)
	}
	s.committed(ctx, change)
	return out, nil
}

func (s *Service) committed(ctx context.Context, ch StatusChange) {
	fields := []zap.Field{
		zap.Uint64("booking_id", ch.BookingID),
		zap.String("from", string(ch.From)),
		zap.String("to", string(ch.To)),
		zap.Uint64("actor_id", ch.ActorID),
		zap.String("actor_role", string(ch.ActorRole)),
	}
	if ch.PaymentID != 0 {
		fields = append(fields, zap.Uint64("payment_id", ch.PaymentID))
	}
	s.log.Info("booking transition", fields...)
	if err := s.pub.PublishStatusChanged(ctx, ch); err != nil {
		s.log.Warn("publish status change", zap.Uint64("booking_id", ch.BookingID), zap.Error(err))
	}
}
