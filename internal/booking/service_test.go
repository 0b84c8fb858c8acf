package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-booking/internal/apperr"
	"github.com/iliyamo/rental-booking/internal/authz"
	"github.com/iliyamo/rental-booking/internal/booking"
	"github.com/iliyamo/rental-booking/internal/ledger"
	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/repository/memory"
)

var (
	now    = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)
	tenant = authz.Actor{ID: 1, Role: model.RoleTenant}
	owner  = authz.Actor{ID: 2, Role: model.RoleOwner}
	admin  = authz.Actor{ID: 3, Role: model.RoleAdmin}
	other  = authz.Actor{ID: 4, Role: model.RoleTenant}
)

type recorder struct {
	mu      sync.Mutex
	changes []booking.StatusChange
}

func (r *recorder) PublishStatusChanged(_ context.Context, ch booking.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
	return nil
}

type fixture struct {
	store *memory.Store
	svc   *booking.Service
	pub   *recorder
}

func newFixture(t *testing.T, opts ...ledger.Option) *fixture {
	t.Helper()
	st := memory.New()
	for _, a := range []authz.Actor{tenant, owner, admin, other} {
		st.PutUser(model.User{ID: a.ID, Role: a.Role, ApprovalStatus: model.ApprovalActive})
	}
	st.PutProperty(model.Property{
		ID:      10,
		OwnerID: owner.ID,
		Rent:    decimal.NewFromInt(25000),
		Deposit: decimal.NewFromInt(50000),
		Status:  model.PropertyActive,
	})
	st.PutProperty(model.Property{ID: 11, OwnerID: owner.ID, Status: model.PropertyInactive})
	clock := func() time.Time { return now }
	opts = append([]ledger.Option{ledger.WithClock(clock)}, opts...)
	l := ledger.New(ledger.DefaultTariff, decimal.RequireFromString("0.01"), opts...)
	pub := &recorder{}
	svc := booking.NewService(st, st, l, booking.WithClock(clock), booking.WithPublisher(pub))
	return &fixture{store: st, svc: svc, pub: pub}
}

func applicant() model.ApplicantDetails {
	return model.ApplicantDetails{
		FullName:              "Sita Sharma",
		Email:                 "sita@example.com",
		Phone:                 "9800000000",
		CurrentAddress:        "Lalitpur",
		Occupation:            "Engineer",
		MonthlyIncome:         decimal.NewFromInt(120000),
		EmergencyContactName:  "Ram Sharma",
		EmergencyContactPhone: "9811111111",
		MoveInDate:            now.AddDate(0, 1, 0),
		FamilySize:            3,
	}
}

// seed stores a booking for tenant on property 10 directly in status s.
func (f *fixture) seed(s model.BookingStatus) uint64 {
	b := &model.Booking{PropertyID: 10, TenantID: tenant.ID, Applicant: applicant(), Status: s, CreatedAt: now, UpdatedAt: now}
	if s.AgreementSigned() {
		at := now
		b.AgreementDate = &at
	}
	f.store.PutBooking(b)
	return b.ID
}

func (f *fixture) status(t *testing.T, id uint64) model.BookingStatus {
	t.Helper()
	b, err := f.store.GetBooking(context.Background(), id)
	require.NoError(t, err)
	return b.Status
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.SubmitApplication(ctx, tenant, 10, applicant())
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingOwnerApproval, b.Status)

	_, err = f.svc.OwnerApprove(ctx, owner, b.ID)
	require.NoError(t, err)

	b, err = f.svc.SubmitLeaseTerms(ctx, tenant, b.ID, booking.LeaseTerms{
		Duration:        "2 years 3 months",
		StartDate:       time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		AdditionalTerms: "no smoking",
	})
	require.NoError(t, err)
	require.NotNil(t, b.LeaseEndDate)
	assert.Equal(t, time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC), *b.LeaseEndDate)
	assert.Equal(t, "no smoking", *b.AdditionalTerms)

	_, err = f.svc.OwnerApproveLease(ctx, owner, b.ID)
	require.NoError(t, err)
	_, err = f.svc.PresentAgreement(ctx, tenant, b.ID)
	require.NoError(t, err)

	b, err = f.svc.ApproveAgreement(ctx, tenant, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAgreementApproved, b.Status)
	require.NotNil(t, b.AgreementDate)

	res, err := f.svc.RecordSecurityDeposit(ctx, tenant, booking.DepositRequest{
		BookingID: b.ID, Amount: decimal.NewFromInt(50000), Method: model.MethodESewa, TransactionRef: "TXN-DEP",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentCompleted, res.Booking.Status)
	assert.Equal(t, model.PaymentCompleted, res.Payment.Status)

	res, err = f.svc.RecordMonthlyRent(ctx, tenant, booking.RentRequest{
		BookingID: b.ID, ElectricityUnits: decimal.NewFromInt(40), Method: model.MethodKhalti, TransactionRef: "TXN-R1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, res.Booking.Status)
	assert.Equal(t, "27480.00", res.Payment.Amount.StringFixed(2))

	res, err = f.svc.RecordMonthlyRent(ctx, tenant, booking.RentRequest{
		BookingID: b.ID, ElectricityUnits: decimal.RequireFromString("12.5"), Method: model.MethodKhalti, TransactionRef: "TXN-R2",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, res.Booking.Status)

	pays, err := f.svc.BookingPayments(ctx, owner, b.ID)
	require.NoError(t, err)
	assert.Len(t, pays, 3)

	_, err = f.svc.AdminTerminate(ctx, admin, b.ID, "lease ended")
	require.NoError(t, err)
	assert.Equal(t, model.StatusTerminated, f.status(t, b.ID))

	assert.Len(t, f.pub.changes, 10)
	assert.Equal(t, model.StatusTerminated, f.pub.changes[9].To)
}

func TestSubmitApplicationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := applicant()
	bad.Email = ""
	_, err := f.svc.SubmitApplication(ctx, tenant, 10, bad)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.SubmitApplication(ctx, tenant, 99, applicant())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.SubmitApplication(ctx, tenant, 11, applicant())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.SubmitApplication(ctx, owner, 10, applicant())
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestWrongStateLeavesBookingUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(model.StatusApproved)

	_, err := f.svc.OwnerApprove(ctx, owner, id)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = f.svc.ApproveAgreement(ctx, tenant, id)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = f.svc.RecordSecurityDeposit(ctx, tenant, booking.DepositRequest{
		BookingID: id, Amount: decimal.NewFromInt(50000), Method: model.MethodESewa, TransactionRef: "TXN-X",
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Equal(t, model.StatusApproved, f.status(t, id))

	pays, _ := f.store.ListPayments(ctx)
	assert.Empty(t, pays)
}

func TestTenantCannotApproveOwnBooking(t *testing.T) {
	f := newFixture(t)
	id := f.seed(model.StatusPendingOwnerApproval)
	_, err := f.svc.OwnerApprove(context.Background(), tenant, id)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	assert.Equal(t, model.StatusPendingOwnerApproval, f.status(t, id))
}

func TestOtherTenantCannotActOnBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(model.StatusLeaseTermsApproved)
	_, err := f.svc.ApproveAgreement(ctx, other, id)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	_, err = f.svc.GetBooking(ctx, other, id)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestAdminCannotApprove(t *testing.T) {
	f := newFixture(t)
	id := f.seed(model.StatusPendingOwnerApproval)
	_, err := f.svc.OwnerApprove(context.Background(), admin, id)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(model.StatusPendingOwnerApproval)

	_, err := f.svc.OwnerReject(ctx, owner, id, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	b, err := f.svc.OwnerReject(ctx, owner, id, "incomplete documents")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, b.Status)
	assert.Equal(t, "incomplete documents", *b.RejectionReason)
}

func TestSubmitLeaseTermsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(model.StatusApproved)

	_, err := f.svc.SubmitLeaseTerms(ctx, tenant, id, booking.LeaseTerms{Duration: "abc years", StartDate: now})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.SubmitLeaseTerms(ctx, tenant, id, booking.LeaseTerms{Duration: "1 year", StartDate: now.AddDate(0, 0, -1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	for _, d := range []string{"9223372036854775807 months", "100000 years", "100 years"} {
		_, err = f.svc.SubmitLeaseTerms(ctx, tenant, id, booking.LeaseTerms{Duration: d, StartDate: now})
		assert.ErrorIs(t, err, apperr.ErrValidation, d)
	}
	assert.Equal(t, model.StatusApproved, f.status(t, id))

	b, err := f.svc.SubmitLeaseTerms(ctx, tenant, id, booking.LeaseTerms{Duration: "1 year", StartDate: now})
	require.NoError(t, err)
	assert.Equal(t, model.StatusLeaseTermsSubmitted, b.Status)
	assert.True(t, b.LeaseEndDate.After(*b.LeaseStartDate))
	assert.Nil(t, b.AdditionalTerms)
}

func TestDeclineAgreementIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(model.StatusAgreementPending)
	b, err := f.svc.DeclineAgreement(ctx, tenant, id, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAgreementDeclined, b.Status)
	assert.Nil(t, b.AgreementDate)

	_, err = f.svc.ApproveAgreement(ctx, tenant, id)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestDepositAmountMustMatch(t *testing.T) {
	f := newFixture(t)
	id := f.seed(model.StatusAgreementApproved)
	_, err := f.svc.RecordSecurityDeposit(context.Background(), tenant, booking.DepositRequest{
		BookingID: id, Amount: decimal.NewFromInt(40000), Method: model.MethodESewa, TransactionRef: "TXN-1",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, model.StatusAgreementApproved, f.status(t, id))
}

func TestDepositIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(model.StatusAgreementApproved)
	f.store.FailOn("UpdateBooking", errors.New("connection reset"))

	_, err := f.svc.RecordSecurityDeposit(ctx, tenant, booking.DepositRequest{
		BookingID: id, Amount: decimal.NewFromInt(50000), Method: model.MethodBankTransfer, TransactionRef: "TXN-ATOMIC",
	})
	require.Error(t, err)

	assert.Equal(t, model.StatusAgreementApproved, f.status(t, id))
	pays, _ := f.store.ListPayments(ctx)
	assert.Empty(t, pays)
	assert.Empty(t, f.pub.changes)
}

func TestDuplicateReferenceAcrossBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.seed(model.StatusAgreementApproved)
	second := f.seed(model.StatusAgreementApproved)

	_, err := f.svc.RecordSecurityDeposit(ctx, tenant, booking.DepositRequest{
		BookingID: first, Amount: decimal.NewFromInt(50000), Method: model.MethodESewa, TransactionRef: "TXN-SAME",
	})
	require.NoError(t, err)

	_, err = f.svc.RecordSecurityDeposit(ctx, tenant, booking.DepositRequest{
		BookingID: second, Amount: decimal.NewFromInt(50000), Method: model.MethodESewa, TransactionRef: "TXN-SAME",
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, model.StatusPaymentCompleted, f.status(t, first))
	assert.Equal(t, model.StatusAgreementApproved, f.status(t, second))
}

func TestConcurrentApproveAndReject(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		ctx := context.Background()
		id := f.seed(model.StatusPendingOwnerApproval)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = f.svc.OwnerApprove(ctx, owner, id)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = f.svc.OwnerReject(ctx, owner, id, "changed my mind")
		}()
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, apperr.ErrInvalidState)
		}
		assert.Equal(t, 1, succeeded)
	}
}

func TestSettlementFailureRecordsFailedPayment(t *testing.T) {
	down := ledger.GatewayFunc(func(context.Context, ledger.Charge) error { return errors.New("provider unavailable") })
	f := newFixture(t, ledger.WithGateway(down))
	ctx := context.Background()
	id := f.seed(model.StatusAgreementApproved)

	_, err := f.svc.RecordSecurityDeposit(ctx, tenant, booking.DepositRequest{
		BookingID: id, Amount: decimal.NewFromInt(50000), Method: model.MethodCreditCard, TransactionRef: "TXN-F",
	})
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.Equal(t, model.StatusAgreementApproved, f.status(t, id))

	pays, _ := f.store.ListPaymentsByBooking(ctx, id)
	require.Len(t, pays, 1)
	assert.Equal(t, model.PaymentFailed, pays[0].Status)
	assert.Nil(t, pays[0].PaidAt)
}

func TestAdminTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.seed(model.StatusLeaseTermsSubmitted)
	b, err := f.svc.AdminReject(ctx, admin, pending, "fraudulent documents")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, b.Status)

	paid := f.seed(model.StatusPaymentCompleted)
	_, err = f.svc.AdminReject(ctx, admin, paid, "too late")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = f.svc.AdminTerminate(ctx, owner, paid, "")
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	_, err = f.svc.AdminTerminate(ctx, admin, paid, "")
	require.NoError(t, err)
}

func TestAdminRejectVoidsSignedAgreement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seed(model.StatusAgreementApproved)

	b, err := f.svc.AdminReject(ctx, admin, id, "forged income statement")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, b.Status)
	assert.Nil(t, b.AgreementDate)

	stored, err := f.store.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, stored.AgreementDate)
	assert.False(t, stored.Status.AgreementSigned())
	assert.Equal(t, "forged income statement", *stored.RejectionReason)
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutPayment(&model.Payment{
		ID: 9, BookingID: 1, TransactionRef: "TXN-P", Amount: decimal.NewFromInt(100),
		Status: model.PaymentPending, Type: model.PaymentLateFee, Method: model.MethodKhalti,
	})

	_, err := f.svc.UpdatePaymentStatus(ctx, tenant, 9, model.PaymentCompleted)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	p, err := f.svc.UpdatePaymentStatus(ctx, admin, 9, model.PaymentCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, p.Status)
	require.NotNil(t, p.PaidAt)

	_, err = f.svc.UpdatePaymentStatus(ctx, admin, 9, model.PaymentFailed)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = f.svc.UpdatePaymentStatus(ctx, admin, 404, model.PaymentRefunded)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(model.StatusApproved)
	f.store.PutBooking(&model.Booking{PropertyID: 10, TenantID: other.ID, Status: model.StatusApproved})

	mine, err := f.svc.ListBookings(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	owned, err := f.svc.ListBookings(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	all, err := f.svc.ListBookings(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.ListBookings(ctx, authz.Actor{ID: tenant.ID, Role: model.RoleAdmin})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}
