// Package memory is an in-process implementation of the booking store and
// the user/property directory, for demos and testing. Transactions are
// serialized by a single writer lock and staged until commit, so a failed
// transaction leaves no trace.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/rental-booking/internal/apperr"
	"github.com/iliyamo/rental-booking/internal/booking"
	"github.com/iliyamo/rental-booking/internal/model"
)

type refreshToken struct {
	userID    uint64
	expiresAt time.Time
	revoked   bool
}

// Store holds every table in maps.
type Store struct {
	txMu sync.Mutex   // serializes transactions
	mu   sync.RWMutex // guards the maps below

	users      map[uint64]model.User
	properties map[uint64]model.Property
	bookings   map[uint64]*model.Booking
	payments   map[uint64]*model.Payment
	refs       map[string]uint64
	tokens     map[string]*refreshToken

	nextBooking uint64
	nextPayment uint64

	failures map[string]error
}

func New() *Store {
	return &Store{
		users:      make(map[uint64]model.User),
		properties: make(map[uint64]model.Property),
		bookings:   make(map[uint64]*model.Booking),
		payments:   make(map[uint64]*model.Payment),
		refs:       make(map[string]uint64),
		tokens:     make(map[string]*refreshToken),
		failures:   make(map[string]error),
	}
}

// FailOn makes every later call of the named Tx method (for example
// "UpdateBooking") return err. A nil err clears the failure.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures[op]
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	s.users[u.ID] = u
}

// PutProperty inserts or replaces a property.
func (s *Store) PutProperty(p model.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[p.ID] = p
}

// PutBooking stores b as committed state, assigning an ID if it has none.
func (s *Store) PutBooking(b *model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.nextBooking++
		b.ID = s.nextBooking
	} else if b.ID > s.nextBooking {
		s.nextBooking = b.ID
	}
	s.bookings[b.ID] = b.Clone()
}

// PutPayment stores p as committed state, assigning an ID if it has none.
func (s *Store) PutPayment(p *model.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextPayment++
		p.ID = s.nextPayment
	} else if p.ID > s.nextPayment {
		s.nextPayment = p.ID
	}
	s.payments[p.ID] = p.Clone()
	s.refs[p.TransactionRef] = p.ID
}

// ---- Directory ----

func (s *Store) GetUser(_ context.Context, id uint64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, apperr.NotFound("user %d not found", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, apperr.NotFound("user %q not found", email)
}

func (s *Store) GetProperty(_ context.Context, id uint64) (model.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return model.Property{}, apperr.NotFound("property %d not found", id)
	}
	return p, nil
}

// ---- reads ----

func (s *Store) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking %d not found", id)
	}
	return b.Clone(), nil
}

func (s *Store) ListBookingsByTenant(_ context.Context, tenantID uint64) ([]*model.Booking, error) {
	return s.filterBookings(func(b *model.Booking) bool { return b.TenantID == tenantID }), nil
}

func (s *Store) ListBookingsByOwner(_ context.Context, ownerID uint64) ([]*model.Booking, error) {
	return s.filterBookings(func(b *model.Booking) bool { return s.properties[b.PropertyID].OwnerID == ownerID }), nil
}

func (s *Store) ListBookings(context.Context) ([]*model.Booking, error) {
	return s.filterBookings(func(*model.Booking) bool { return true }), nil
}

// filterBookings runs keep under the read lock.
func (s *Store) filterBookings(keep func(*model.Booking) bool) []*model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*model.Booking{}
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) GetPayment(_ context.Context, id uint64) (*model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, apperr.NotFound("payment %d not found", id)
	}
	return p.Clone(), nil
}

func (s *Store) ListPaymentsByBooking(_ context.Context, bookingID uint64) ([]*model.Payment, error) {
	return s.filterPayments(func(p *model.Payment) bool { return p.BookingID == bookingID }), nil
}

func (s *Store) ListPaymentsByTenant(_ context.Context, tenantID uint64) ([]*model.Payment, error) {
	return s.filterPayments(func(p *model.Payment) bool {
		b, ok := s.bookings[p.BookingID]
		return ok && b.TenantID == tenantID
	}), nil
}

func (s *Store) ListPaymentsByOwner(_ context.Context, ownerID uint64) ([]*model.Payment, error) {
	return s.filterPayments(func(p *model.Payment) bool {
		b, ok := s.bookings[p.BookingID]
		return ok && s.properties[b.PropertyID].OwnerID == ownerID
	}), nil
}

func (s *Store) ListPayments(context.Context) ([]*model.Payment, error) {
	return s.filterPayments(func(*model.Payment) bool { return true }), nil
}

func (s *Store) filterPayments(keep func(*model.Payment) bool) []*model.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*model.Payment{}
	for _, p := range s.payments {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// ---- refresh tokens ----

func (s *Store) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = &refreshToken{userID: userID, expiresAt: exp}
	return nil
}

func (s *Store) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.revoked || time.Now().UTC().After(t.expiresAt) {
		return 0, apperr.NotFound("refresh token not found")
	}
	return t.userID, nil
}

func (s *Store) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok {
		t.revoked = true
	}
	return nil
}

func (s *Store) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

// ---- transactions ----

// WithinTx runs fn with exclusive write access. Changes are staged on the
// transaction and applied to the store only when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	t := &tx{
		s:           s,
		bookings:    make(map[uint64]*model.Booking),
		payments:    make(map[uint64]*model.Payment),
		refs:        make(map[string]uint64),
		nextBooking: s.nextBooking,
		nextPayment: s.nextPayment,
	}
	s.mu.RUnlock()

	if err := fn(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range t.bookings {
		s.bookings[id] = b
	}
	for id, p := range t.payments {
		s.payments[id] = p
	}
	for ref, id := range t.refs {
		s.refs[ref] = id
	}
	s.nextBooking = t.nextBooking
	s.nextPayment = t.nextPayment
	return nil
}

type tx struct {
	s *Store

	bookings map[uint64]*model.Booking
	payments map[uint64]*model.Payment
	refs     map[string]uint64

	nextBooking uint64
	nextPayment uint64
}

func (t *tx) LockBooking(_ context.Context, id uint64) (*model.Booking, error) {
	if b, ok := t.bookings[id]; ok {
		return b.Clone(), nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking %d not found", id)
	}
	return b.Clone(), nil
}

func (t *tx) InsertBooking(_ context.Context, b *model.Booking) error {
	if err := t.s.failure("InsertBooking"); err != nil {
		return err
	}
	t.nextBooking++
	b.ID = t.nextBooking
	t.bookings[b.ID] = b.Clone()
	return nil
}

func (t *tx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	if err := t.s.failure("UpdateBooking"); err != nil {
		return err
	}
	if _, err := t.LockBooking(ctx, b.ID); err != nil {
		return err
	}
	t.bookings[b.ID] = b.Clone()
	return nil
}

func (t *tx) PaymentRefExists(_ context.Context, ref string) (bool, error) {
	if err := t.s.failure("PaymentRefExists"); err != nil {
		return false, err
	}
	if _, ok := t.refs[ref]; ok {
		return true, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	_, ok := t.s.refs[ref]
	return ok, nil
}

func (t *tx) InsertPayment(ctx context.Context, p *model.Payment) error {
	if err := t.s.failure("InsertPayment"); err != nil {
		return err
	}
	exists, err := t.PaymentRefExists(ctx, p.TransactionRef)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Conflict("transaction reference %q already used", p.TransactionRef)
	}
	t.nextPayment++
	p.ID = t.nextPayment
	t.payments[p.ID] = p.Clone()
	t.refs[p.TransactionRef] = p.ID
	return nil
}

func (t *tx) LockPayment(_ context.Context, id uint64) (*model.Payment, error) {
	if p, ok := t.payments[id]; ok {
		return p.Clone(), nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	p, ok := t.s.payments[id]
	if !ok {
		return nil, apperr.NotFound("payment %d not found", id)
	}
	return p.Clone(), nil
}

func (t *tx) UpdatePayment(ctx context.Context, p *model.Payment) error {
	if err := t.s.failure("UpdatePayment"); err != nil {
		return err
	}
	cur, err := t.LockPayment(ctx, p.ID)
	if err != nil {
		return err
	}
	if !cur.Amount.Equal(p.Amount) {
		return fmt.Errorf("payment %d: amount is immutable", p.ID)
	}
	t.payments[p.ID] = p.Clone()
	return nil
}

var (
	_ booking.Store     = (*Store)(nil)
	_ booking.Directory = (*Store)(nil)
)
