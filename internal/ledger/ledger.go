// Package ledger records payments against bookings and computes the monthly
// rent breakdown. Payments are append-only: once written, only their status
// may advance.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-booking/internal/apperr"
	"github.com/iliyamo/rental-booking/internal/model"
)

// Tariff holds the configured utility rates applied to monthly rent.
type Tariff struct {
	UnitRate      decimal.Decimal `json:"electricity_unit_rate"`
	WaterCharge   decimal.Decimal `json:"water_charge"`
	GarbageCharge decimal.Decimal `json:"garbage_charge"`
}

// DefaultTariff is used when no tariff is configured.
var DefaultTariff = Tariff{
	UnitRate:      decimal.NewFromInt(12),
	WaterCharge:   decimal.NewFromInt(1500),
	GarbageCharge: decimal.NewFromInt(500),
}

// Writer is the slice of a persistence transaction the ledger needs.
type Writer interface {
	PaymentRefExists(ctx context.Context, ref string) (bool, error)
	InsertPayment(ctx context.Context, p *model.Payment) error
}

// Ledger creates payment records. It is safe for concurrent use.
type Ledger struct {
	tariff    Tariff
	tolerance decimal.Decimal
	gateway   Gateway
	timeout   time.Duration
	now       func() time.Time
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithGateway replaces the simulated settlement gateway.
func WithGateway(g Gateway) Option { return func(l *Ledger) { l.gateway = g } }

// WithGatewayTimeout bounds every settlement call.
func WithGatewayTimeout(d time.Duration) Option { return func(l *Ledger) { l.timeout = d } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// New returns a Ledger applying tariff and accepting deposits that differ from
// the property's deposit by at most tolerance.
func New(tariff Tariff, tolerance decimal.Decimal, opts ...Option) *Ledger {
	l := &Ledger{
		tariff:    tariff,
		tolerance: tolerance.Abs(),
		gateway:   SimulatedGateway{},
		timeout:   10 * time.Second,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Tariff returns the configured rates.
func (l *Ledger) Tariff() Tariff { return l.tariff }

// ComputeBreakdown splits a monthly rent payment into its components.
// Units may be fractional; rounding to two places happens only on the
// computed electricity amount and the total.
func ComputeBreakdown(rent, units decimal.Decimal, t Tariff) (model.Breakdown, error) {
	if rent.IsNegative() {
		return model.Breakdown{}, apperr.Validation("rent must not be negative")
	}
	if units.IsNegative() {
		return model.Breakdown{}, apperr.Validation("electricity units must not be negative")
	}
	electricity := units.Mul(t.UnitRate).Round(2)
	total := rent.Add(electricity).Add(t.WaterCharge).Add(t.GarbageCharge).Round(2)
	return model.Breakdown{
		Rent:             rent.Round(2),
		ElectricityUnits: units,
		UnitRate:         t.UnitRate,
		Electricity:      electricity,
		Water:            t.WaterCharge.Round(2),
		Garbage:          t.GarbageCharge.Round(2),
		Total:            total,
	}, nil
}

// CheckDeposit verifies amount against the property's recorded deposit.
func (l *Ledger) CheckDeposit(expected, amount decimal.Decimal) error {
	if amount.Sub(expected).Abs().GreaterThan(l.tolerance) {
		return apperr.Validation("deposit amount %s does not match required deposit %s",
			amount.StringFixed(2), expected.StringFixed(2))
	}
	return nil
}

// NewTransactionRef returns a server-generated transaction reference.
func NewTransactionRef() string { return "TXN-" + strings.ToUpper(uuid.NewString()) }

// CreateDeposit settles and records a Completed security deposit.
func (l *Ledger) CreateDeposit(ctx context.Context, w Writer, bookingID uint64, amount decimal.Decimal, method model.PaymentMethod, ref string) (*model.Payment, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("amount must be positive")
	}
	p, err := l.draft(bookingID, amount, method, model.PaymentSecurityDeposit, ref)
	if err != nil {
		return nil, err
	}
	return p, l.record(ctx, w, p)
}

// CreateMonthlyRent computes the breakdown for rent and units, then settles
// and records a Completed monthly rent payment.
func (l *Ledger) CreateMonthlyRent(ctx context.Context, w Writer, bookingID uint64, rent, units decimal.Decimal, method model.PaymentMethod, ref string, dueDate *time.Time) (*model.Payment, error) {
	bd, err := ComputeBreakdown(rent, units, l.tariff)
	if err != nil {
		return nil, err
	}
	p, err := l.draft(bookingID, bd.Total, method, model.PaymentMonthlyRent, ref)
	if err != nil {
		return nil, err
	}
	p.Breakdown = &bd
	if dueDate != nil {
		d := dueDate.UTC()
		p.DueDate = &d
	} else {
		d := l.today()
		p.DueDate = &d
	}
	return p, l.record(ctx, w, p)
}

func (l *Ledger) today() time.Time {
	y, m, d := l.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (l *Ledger) draft(bookingID uint64, amount decimal.Decimal, method model.PaymentMethod, typ model.PaymentType, ref string) (*model.Payment, error) {
	if !method.Valid() {
		return nil, apperr.Validation("unsupported payment method %q", method)
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = NewTransactionRef()
	}
	now := l.now()
	return &model.Payment{
		BookingID:      bookingID,
		TransactionRef: ref,
		Amount:         amount.Round(2),
		Method:         method,
		Type:           typ,
		Status:         model.PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (l *Ledger) record(ctx context.Context, w Writer, p *model.Payment) error {
	exists, err := w.PaymentRefExists(ctx, p.TransactionRef)
	if err != nil {
		return apperr.Wrap(err, apperr.KindInternal, "check transaction reference")
	}
	if exists {
		return apperr.Conflict("transaction reference %q already used", p.TransactionRef)
	}
	if err := l.settle(ctx, p); err != nil {
		return err
	}
	if err := w.InsertPayment(ctx, p); err != nil {
		return apperr.Wrap(err, apperr.KindInternal, "insert payment")
	}
	return nil
}

func (l *Ledger) settle(ctx context.Context, p *model.Payment) error {
	sctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	err := l.gateway.Settle(sctx, Charge{
		BookingID: p.BookingID,
		Reference: p.TransactionRef,
		Amount:    p.Amount,
		Method:    p.Method,
		Type:      p.Type,
	})
	if err == nil && sctx.Err() != nil {
		err = sctx.Err()
	}
	now := l.now()
	p.UpdatedAt = now
	if err != nil {
		p.Status = model.PaymentFailed
		return &SettlementError{Payment: p.Clone(), Err: err}
	}
	p.Status = model.PaymentCompleted
	p.PaidAt = &now
	return nil
}

// AdvanceStatus moves p to status to. Allowed edges are Pending to
// Completed or Failed, and Completed to Refunded. Completing sets PaidAt.
func AdvanceStatus(p *model.Payment, to model.PaymentStatus, now time.Time) error {
	if !to.Valid() {
		return apperr.Validation("unknown payment status %q", to)
	}
	allowed := false
	switch p.Status {
	case model.PaymentPending:
		allowed = to == model.PaymentCompleted || to == model.PaymentFailed
	case model.PaymentCompleted:
		allowed = to == model.PaymentRefunded
	}
	if !allowed {
		return apperr.InvalidState("payment %d cannot move from %s to %s", p.ID, p.Status, to)
	}
	p.Status = to
	p.UpdatedAt = now
	if to == model.PaymentCompleted {
		t := now
		p.PaidAt = &t
	}
	return nil
}

// SettlementError reports a gateway failure. Payment is the attempt as it
// should be recorded, with status Failed.
type SettlementError struct {
	Payment *model.Payment
	Err     error
}

func (e *SettlementError) Error() string { return "settlement failed: " + e.Err.Error() }

func (e *SettlementError) Unwrap() error { return e.Err }

// AsSettlementError extracts a *SettlementError from err.
func AsSettlementError(err error) (*SettlementError, bool) {
	var se *SettlementError
	ok := errors.As(err, &se)
	return se, ok
}
