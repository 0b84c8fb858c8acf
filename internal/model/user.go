package model

import "time"

// Role is the coarse capability class of a user.
type Role string

const (
	RoleTenant Role = "TENANT"
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// ApprovalStatus is the account gate maintained by administrators. Only
// Active users may sign in or act on bookings.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "Pending"
	ApprovalActive    ApprovalStatus = "Active"
	ApprovalSuspended ApprovalStatus = "Suspended"
	ApprovalRejected  ApprovalStatus = "Rejected"
)

// User represents an application user record as stored in the
// `users` table.
//
// Fields:
//
//	ID             – primary key identifier of the user.
//	Email          – unique email address.
//	PasswordHash   – bcrypt hashed password.
//	FullName       – display name.
//	Role           – TENANT, OWNER or ADMIN.
//	ApprovalStatus – account gate; see ApprovalStatus.
//	CreatedAt      – timestamp of creation.
//	UpdatedAt      – timestamp of last update.
type User struct {
	ID             uint64         `json:"id"`
	Email          string         `json:"email"`
	PasswordHash   string         `json:"-"`
	FullName       string         `json:"full_name"`
	Role           Role           `json:"role"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Active reports whether the account may currently act.
func (u User) Active() bool { return u.ApprovalStatus == ApprovalActive }

// RefreshToken models an entry in the `refresh_tokens` table. The plain
// token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
