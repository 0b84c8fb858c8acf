package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/iliyamo/rental-booking/internal/apperr"
	"github.com/iliyamo/rental-booking/internal/model"
)

// PaymentRepo reads and writes the payments table. The breakdown of a
// monthly rent payment is stored as a JSON document.
type PaymentRepo struct {
	q querier
}

var paymentColumns = []string{
	"id", "booking_id", "transaction_ref", "amount", "payment_method", "payment_type",
	"status", "due_date", "paid_date", "breakdown", "created_at", "updated_at",
}

func paymentSelect(alias string) string {
	cols := paymentColumns
	if alias != "" {
		cols = make([]string, len(paymentColumns))
		for i, c := range paymentColumns {
			cols[i] = alias + "." + c
		}
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM payments " + alias
}

func scanPayment(row scanner) (*model.Payment, error) {
	var (
		p         model.Payment
		due, paid sql.NullTime
		breakdown []byte
	)
	err := row.Scan(&p.ID, &p.BookingID, &p.TransactionRef, &p.Amount, &p.Method, &p.Type,
		&p.Status, &due, &paid, &breakdown, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.DueDate = timePtr(due)
	p.PaidAt = timePtr(paid)
	if len(breakdown) > 0 && string(breakdown) != "null" {
		var bd model.Breakdown
		if err := json.Unmarshal(breakdown, &bd); err != nil {
			return nil, err
		}
		p.Breakdown = &bd
	}
	return &p, nil
}

func (r PaymentRepo) list(ctx context.Context, query string, args ...any) ([]*model.Payment, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "list payments")
	}
	defer rows.Close()
	out := []*model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, mapErr(err, "scan payment")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, "list payments")
	}
	return out, nil
}

func (r PaymentRepo) GetPayment(ctx context.Context, id uint64) (*model.Payment, error) {
	p, err := scanPayment(r.q.QueryRowContext(ctx, paymentSelect("")+"WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err, "payment %d", id)
	}
	return p, nil
}

// LockPayment fetches a payment under an exclusive row lock.
func (r PaymentRepo) LockPayment(ctx context.Context, id uint64) (*model.Payment, error) {
	p, err := scanPayment(r.q.QueryRowContext(ctx, paymentSelect("")+"WHERE id = ? FOR UPDATE", id))
	if err != nil {
		return nil, mapErr(err, "payment %d", id)
	}
	return p, nil
}

func (r PaymentRepo) ListPaymentsByBooking(ctx context.Context, bookingID uint64) ([]*model.Payment, error) {
	return r.list(ctx, paymentSelect("")+"WHERE booking_id = ? ORDER BY created_at DESC, id DESC", bookingID)
}

func (r PaymentRepo) ListPaymentsByTenant(ctx context.Context, tenantID uint64) ([]*model.Payment, error) {
	return r.list(ctx, paymentSelect("pay")+
		" JOIN bookings b ON b.id = pay.booking_id WHERE b.tenant_id = ? ORDER BY pay.created_at DESC, pay.id DESC", tenantID)
}

func (r PaymentRepo) ListPaymentsByOwner(ctx context.Context, ownerID uint64) ([]*model.Payment, error) {
	return r.list(ctx, paymentSelect("pay")+
		" JOIN bookings b ON b.id = pay.booking_id JOIN properties p ON p.id = b.property_id"+
		" WHERE p.owner_id = ? ORDER BY pay.created_at DESC, pay.id DESC", ownerID)
}

func (r PaymentRepo) ListPayments(ctx context.Context) ([]*model.Payment, error) {
	return r.list(ctx, paymentSelect("")+"ORDER BY created_at DESC, id DESC")
}

// PaymentRefExists reports whether a transaction reference is taken.
func (r PaymentRepo) PaymentRefExists(ctx context.Context, ref string) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx, "SELECT 1 FROM payments WHERE transaction_ref = ? LIMIT 1", ref).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapErr(err, "check transaction reference")
	}
	return true, nil
}

// InsertPayment writes p and sets its ID. A duplicate transaction reference
// surfaces as a conflict.
func (r PaymentRepo) InsertPayment(ctx context.Context, p *model.Payment) error {
	var breakdown any
	if p.Breakdown != nil {
		bs, err := json.Marshal(p.Breakdown)
		if err != nil {
			return apperr.Wrap(err, apperr.KindInternal, "encode breakdown")
		}
		breakdown = string(bs)
	}
	const q = `INSERT INTO payments (booking_id, transaction_ref, amount, payment_method, payment_type,
status, due_date, paid_date, breakdown, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q,
		p.BookingID, p.TransactionRef, p.Amount, p.Method, p.Type,
		p.Status, nullTime(p.DueDate), nullTime(p.PaidAt), breakdown, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		if isDuplicate(err) {
			return &apperr.Error{Kind: apperr.KindConflict, Message: "transaction reference " + p.TransactionRef + " already used", Err: err}
		}
		return mapErr(err, "insert payment")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return mapErr(err, "insert payment")
	}
	p.ID = uint64(id)
	return nil
}

// UpdatePayment persists a status change. Amount is never rewritten.
func (r PaymentRepo) UpdatePayment(ctx context.Context, p *model.Payment) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE payments SET status = ?, paid_date = ?, updated_at = ? WHERE id = ?",
		p.Status, nullTime(p.PaidAt), p.UpdatedAt.UTC(), p.ID)
	return mapErr(err, "update payment %d", p.ID)
}
