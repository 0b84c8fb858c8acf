package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates the accepted settlement channels.
type PaymentMethod string

const (
	MethodESewa        PaymentMethod = "eSewa"
	MethodKhalti       PaymentMethod = "Khalti"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
	MethodCreditCard   PaymentMethod = "Credit Card"
)

// Valid reports whether m is one of the enumerated methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodESewa, MethodKhalti, MethodBankTransfer, MethodCreditCard:
		return true
	}
	return false
}

// PaymentType classifies what a payment settles.
type PaymentType string

const (
	PaymentSecurityDeposit PaymentType = "Security Deposit"
	PaymentMonthlyRent     PaymentType = "Monthly Rent"
	PaymentUtilityBill     PaymentType = "Utility Bill"
	PaymentLateFee         PaymentType = "Late Fee"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
	PaymentRefunded  PaymentStatus = "Refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Breakdown decomposes a monthly rent payment into its charge components.
// ElectricityUnits keeps the raw (possibly fractional) meter reading.
type Breakdown struct {
	Rent             decimal.Decimal `json:"rent"`
	ElectricityUnits decimal.Decimal `json:"electricity_units"`
	UnitRate         decimal.Decimal `json:"unit_rate"`
	Electricity      decimal.Decimal `json:"electricity"`
	Water            decimal.Decimal `json:"water"`
	Garbage          decimal.Decimal `json:"garbage"`
	Total            decimal.Decimal `json:"total"`
}

// Payment is one monetary transaction recorded against a booking. The
// amount is fixed at creation; only Status (and PaidAt with it) advances.
//
// Fields:
//
//	ID             – primary key identifier.
//	BookingID      – booking the payment belongs to.
//	TransactionRef – externally generated reference, unique across payments.
//	Amount         – positive amount rounded to two decimals.
//	Method         – settlement channel.
//	Type           – what the payment settles.
//	Status         – settlement state.
//	DueDate        – optional due date (monthly rent).
//	PaidAt         – set when Status becomes Completed.
//	Breakdown      – present only for monthly rent.
type Payment struct {
	ID             uint64          `json:"id"`
	BookingID      uint64          `json:"booking_id"`
	TransactionRef string          `json:"transaction_ref"`
	Amount         decimal.Decimal `json:"amount"`
	Method         PaymentMethod   `json:"method"`
	Type           PaymentType     `json:"type"`
	Status         PaymentStatus   `json:"status"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	Breakdown      *Breakdown      `json:"breakdown,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of p.
func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.DueDate = cloneTime(p.DueDate)
	c.PaidAt = cloneTime(p.PaidAt)
	if p.Breakdown != nil {
		bd := *p.Breakdown
		c.Breakdown = &bd
	}
	return &c
}
