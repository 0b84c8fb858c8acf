package model

import "github.com/shopspring/decimal"

// PropertyStatus gates whether a listing accepts applications.
type PropertyStatus string

const (
	PropertyPending  PropertyStatus = "Pending"
	PropertyActive   PropertyStatus = "Active"
	PropertyInactive PropertyStatus = "Inactive"
	PropertyRejected PropertyStatus = "Rejected"
)

// Property is the subset of a listing the booking workflow needs: who owns
// it, what it costs, and whether it is open for applications.
type Property struct {
	ID      uint64          `json:"id"`
	OwnerID uint64          `json:"owner_id"`
	Title   string          `json:"title"`
	Rent    decimal.Decimal `json:"rent"`
	Deposit decimal.Decimal `json:"deposit"`
	Status  PropertyStatus  `json:"status"`
}

// AcceptingApplications reports whether tenants may apply to p.
func (p Property) AcceptingApplications() bool { return p.Status == PropertyActive }
