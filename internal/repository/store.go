package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/rental-booking/internal/booking"
)

// Store implements booking.Store on MySQL.
type Store struct {
	db *sql.DB
	BookingRepo
	PaymentRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, BookingRepo: BookingRepo{q: db}, PaymentRepo: PaymentRepo{q: db}}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// WithinTx runs fn in a database transaction. Row locks taken through the
// Tx (SELECT ... FOR UPDATE) are held until commit or rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err, "begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&txRepo{BookingRepo: BookingRepo{q: tx}, PaymentRepo: PaymentRepo{q: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr(err, "commit transaction")
	}
	committed = true
	return nil
}

// txRepo is the booking.Tx handed to WithinTx callbacks.
type txRepo struct {
	BookingRepo
	PaymentRepo
}

var (
	_ booking.Store = (*Store)(nil)
	_ booking.Tx    = (*txRepo)(nil)
)
