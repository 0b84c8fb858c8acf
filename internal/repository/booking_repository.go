package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/rental-booking/internal/model"
)

// BookingRepo reads and writes the bookings table. The applicant snapshot
// is stored in flat columns alongside the workflow fields.
type BookingRepo struct {
	q querier
}

var bookingColumns = []string{
	"id", "property_id", "tenant_id",
	"full_name", "email", "phone", "current_address", "occupation", "monthly_income",
	"emergency_contact_name", "emergency_contact_phone", "move_in_date", "family_size",
	"has_children", "has_pets", "additional_notes", "id_document",
	"status", "rejection_reason", "lease_duration", "lease_start_date", "lease_end_date",
	"additional_terms", "agreement_date", "created_at", "updated_at",
}

// bookingSelect returns "SELECT <cols> FROM bookings <alias>" with every
// column qualified by alias when one is given.
func bookingSelect(alias string) string {
	cols := bookingColumns
	if alias != "" {
		cols = make([]string, len(bookingColumns))
		for i, c := range bookingColumns {
			cols[i] = alias + "." + c
		}
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM bookings " + alias
}

func scanBooking(row scanner) (*model.Booking, error) {
	var (
		b               model.Booking
		notes, doc      sql.NullString
		reason, dur     sql.NullString
		terms           sql.NullString
		start, end, agr sql.NullTime
	)
	a := &b.Applicant
	err := row.Scan(
		&b.ID, &b.PropertyID, &b.TenantID,
		&a.FullName, &a.Email, &a.Phone, &a.CurrentAddress, &a.Occupation, &a.MonthlyIncome,
		&a.EmergencyContactName, &a.EmergencyContactPhone, &a.MoveInDate, &a.FamilySize,
		&a.HasChildren, &a.HasPets, &notes, &doc,
		&b.Status, &reason, &dur, &start, &end,
		&terms, &agr, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AdditionalNotes = notes.String
	a.IDDocument = doc.String
	b.RejectionReason = stringPtr(reason)
	b.LeaseDuration = stringPtr(dur)
	b.LeaseStartDate = timePtr(start)
	b.LeaseEndDate = timePtr(end)
	b.AdditionalTerms = stringPtr(terms)
	b.AgreementDate = timePtr(agr)
	return &b, nil
}

func (r BookingRepo) list(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "list bookings")
	}
	defer rows.Close()
	out := []*model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, mapErr(err, "scan booking")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, "list bookings")
	}
	return out, nil
}

// GetBooking fetches a booking by id.
func (r BookingRepo) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, bookingSelect("")+"WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err, "booking %d", id)
	}
	return b, nil
}

// LockBooking fetches a booking and holds an exclusive row lock on it for
// the rest of the transaction.
func (r BookingRepo) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, bookingSelect("")+"WHERE id = ? FOR UPDATE", id))
	if err != nil {
		return nil, mapErr(err, "booking %d", id)
	}
	return b, nil
}

func (r BookingRepo) ListBookingsByTenant(ctx context.Context, tenantID uint64) ([]*model.Booking, error) {
	return r.list(ctx, bookingSelect("")+"WHERE tenant_id = ? ORDER BY created_at DESC, id DESC", tenantID)
}

func (r BookingRepo) ListBookingsByOwner(ctx context.Context, ownerID uint64) ([]*model.Booking, error) {
	return r.list(ctx, bookingSelect("b")+
		" JOIN properties p ON p.id = b.property_id WHERE p.owner_id = ? ORDER BY b.created_at DESC, b.id DESC", ownerID)
}

func (r BookingRepo) ListBookings(ctx context.Context) ([]*model.Booking, error) {
	return r.list(ctx, bookingSelect("")+"ORDER BY created_at DESC, id DESC")
}

// InsertBooking writes a new booking and sets its ID.
func (r BookingRepo) InsertBooking(ctx context.Context, b *model.Booking) error {
	a := b.Applicant
	const q = `INSERT INTO bookings (property_id, tenant_id, full_name, email, phone, current_address,
occupation, monthly_income, emergency_contact_name, emergency_contact_phone, move_in_date, family_size,
has_children, has_pets, additional_notes, id_document, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q,
		b.PropertyID, b.TenantID, a.FullName, a.Email, a.Phone, a.CurrentAddress,
		a.Occupation, a.MonthlyIncome, a.EmergencyContactName, a.EmergencyContactPhone, a.MoveInDate.UTC(), a.FamilySize,
		a.HasChildren, a.HasPets, a.AdditionalNotes, a.IDDocument, b.Status, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapErr(err, "insert booking")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return mapErr(err, "insert booking")
	}
	b.ID = uint64(id)
	return nil
}

// UpdateBooking persists the workflow fields of b. The applicant snapshot
// is immutable and never rewritten.
func (r BookingRepo) UpdateBooking(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings SET status = ?, rejection_reason = ?, lease_duration = ?, lease_start_date = ?,
lease_end_date = ?, additional_terms = ?, agreement_date = ?, updated_at = ? WHERE id = ?`
	_, err := r.q.ExecContext(ctx, q,
		b.Status, nullString(b.RejectionReason), nullString(b.LeaseDuration), nullTime(b.LeaseStartDate),
		nullTime(b.LeaseEndDate), nullString(b.AdditionalTerms), nullTime(b.AgreementDate), b.UpdatedAt.UTC(), b.ID,
	)
	return mapErr(err, "update booking %d", b.ID)
}
