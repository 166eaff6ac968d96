// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// Identity is fully delegated to an external provider: the provider calls
// our identity webhook when an account is created, and that webhook is the
// ONLY code path that inserts a User row. We never create users implicitly
// from an authenticated request — that would let a caller pick their own
// ExternalID and impersonate someone else's future account.
//
// WHY ExternalID string?
// The provider's subject identifier ("user_2abc...") is an opaque string.
// We keep our own internal xid as the primary key (consistent with Snippet
// and Execution) and put a UNIQUE constraint on external_id so one provider
// account maps to exactly one row.
//
// WHY ProSince *time.Time?
// Unlike Email (empty string is a fine zero value), "never upgraded" and
// "upgraded at the zero time" must be distinguishable. A nil pointer maps
// cleanly to SQL NULL.
type User struct {
	ID         string     `json:"id"         db:"id"`
	ExternalID string     `json:"externalId" db:"external_id"` // identity provider subject, immutable
	Email      string     `json:"email"      db:"email"`
	Name       string     `json:"name"       db:"name"`
	IsPro      bool       `json:"isPro"      db:"is_pro"`
	ProSince   *time.Time `json:"proSince,omitempty" db:"pro_since"`

	// Billing references from the payment provider. Set on the first
	// successful upgrade and overwritten by any later billing event for the
	// same user — last write wins, matching the provider's retry semantics.
	// Excluded from JSON: billing identifiers are not the client's business.
	BillingCustomerID string `json:"-" db:"billing_customer_id"`
	BillingOrderID    string `json:"-" db:"billing_order_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
