package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the workflow state of a rental application. Values are
// stored verbatim in the bookings.status column.
type BookingStatus string

const (
	StatusPendingOwnerApproval BookingStatus = "Pending Owner Approval"
	StatusApproved             BookingStatus = "Approved"
	StatusRejected             BookingStatus = "Rejected"
	StatusLeaseTermsSubmitted  BookingStatus = "Lease Terms Submitted"
	StatusLeaseTermsApproved   BookingStatus = "Lease Terms Approved"
	StatusAgreementPending     BookingStatus = "Agreement Pending"
	StatusAgreementApproved    BookingStatus = "Agreement Approved"
	StatusAgreementDeclined    BookingStatus = "Agreement Declined"
	StatusPaymentCompleted     BookingStatus = "Payment Completed"
	StatusActive               BookingStatus = "Active"
	StatusTerminated           BookingStatus = "Terminated"
)

// AllBookingStatuses lists every status in workflow order.
var AllBookingStatuses = []BookingStatus{
	StatusPendingOwnerApproval,
	StatusApproved,
	StatusRejected,
	StatusLeaseTermsSubmitted,
	StatusLeaseTermsApproved,
	StatusAgreementPending,
	StatusAgreementApproved,
	StatusAgreementDeclined,
	StatusPaymentCompleted,
	StatusActive,
	StatusTerminated,
}

// IsTerminal reports whether no further workflow transition leaves s.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusAgreementDeclined, StatusTerminated:
		return true
	}
	return false
}

// AgreementSigned reports whether s is at or past "Agreement Approved".
func (s BookingStatus) AgreementSigned() bool {
	switch s {
	case StatusAgreementApproved, StatusPaymentCompleted, StatusActive, StatusTerminated:
		return true
	}
	return false
}

func (s BookingStatus) String() string { return string(s) }

// ApplicantDetails is the snapshot a tenant submits with an application.
// It is copied onto the booking and never re-read from the user record.
type ApplicantDetails struct {
	FullName              string          `json:"full_name"`
	Email                 string          `json:"email"`
	Phone                 string          `json:"phone"`
	CurrentAddress        string          `json:"current_address"`
	Occupation            string          `json:"occupation"`
	MonthlyIncome         decimal.Decimal `json:"monthly_income"`
	EmergencyContactName  string          `json:"emergency_contact_name"`
	EmergencyContactPhone string          `json:"emergency_contact_phone"`
	MoveInDate            time.Time       `json:"move_in_date"`
	FamilySize            int             `json:"family_size"`
	HasChildren           bool            `json:"has_children"`
	HasPets               bool            `json:"has_pets"`
	AdditionalNotes       string          `json:"additional_notes,omitempty"`
	IDDocument            string          `json:"id_document,omitempty"`
}

// Booking represents one tenant's application against one property and,
// once approved and paid, the resulting tenancy. Rows are never deleted;
// terminal statuses are kept for audit.
//
// Fields:
//
//	ID              – primary key identifier.
//	PropertyID      – property applied for (external collaborator).
//	TenantID        – applying user (external collaborator).
//	Applicant       – snapshot of the application form.
//	Status          – workflow state.
//	RejectionReason – set only when rejected.
//	LeaseDuration   – fixed token ("2 years") or free-form ("3 years 4 months").
//	LeaseStartDate  – first day of the lease.
//	LeaseEndDate    – derived by the lease term calculator.
//	AdditionalTerms – free-form terms proposed by the tenant.
//	AgreementDate   – set when the tenant approves the agreement.
//	CreatedAt       – creation timestamp.
//	UpdatedAt       – timestamp of the last mutation.
type Booking struct {
	ID              uint64           `json:"id"`
	PropertyID      uint64           `json:"property_id"`
	TenantID        uint64           `json:"tenant_id"`
	Applicant       ApplicantDetails `json:"applicant"`
	Status          BookingStatus    `json:"status"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	LeaseDuration   *string          `json:"lease_duration,omitempty"`
	LeaseStartDate  *time.Time       `json:"lease_start_date,omitempty"`
	LeaseEndDate    *time.Time       `json:"lease_end_date,omitempty"`
	AdditionalTerms *string          `json:"additional_terms,omitempty"`
	AgreementDate   *time.Time       `json:"agreement_date,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Clone returns a deep copy so callers can stage changes without aliasing
// pointer fields of the original.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.RejectionReason = cloneString(b.RejectionReason)
	c.LeaseDuration = cloneString(b.LeaseDuration)
	c.AdditionalTerms = cloneString(b.AdditionalTerms)
	c.LeaseStartDate = cloneTime(b.LeaseStartDate)
	c.LeaseEndDate = cloneTime(b.LeaseEndDate)
	c.AgreementDate = cloneTime(b.AgreementDate)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
