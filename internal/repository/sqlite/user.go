package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/codecraft/internal/apperror"
	"github.com/sakif/codecraft/internal/model"
	"github.com/sakif/codecraft/internal/repository"
)

// Compile-time check that *DB implements repository.UserRepository.
var _ repository.UserRepository = (*DB)(nil)

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// The pure-Go driver surfaces constraint errors by message; matching on
// the stable "UNIQUE constraint failed" prefix avoids depending on the
// driver's error type directly.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a new user row. The UNIQUE constraint on external_id is
// what enforces "exactly one User per ExternalID" — a duplicate insert
// (e.g. two concurrent deliveries of the same user.created event) comes
// back as apperror.ErrConflict, which the sync path treats as "already
// synced".
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, external_id, email, name, is_pro, pro_since,
		                    billing_customer_id, billing_order_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.ExternalID,
		user.Email,
		user.Name,
		user.IsPro,
		user.ProSince,
		user.BillingCustomerID,
		user.BillingOrderID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.ExternalID)
		}
		return fmt.Errorf("sqlite: inserting user (externalID=%s): %w", user.ExternalID, err)
	}

	return nil
}

const userColumns = `id, external_id, email, name, is_pro, pro_since,
	billing_customer_id, billing_order_id, created_at, updated_at`

// scanUser reads one user row. row is either *sql.Row or *sql.Rows — both
// satisfy this single-method view of Scan.
func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.Email,
		&u.Name,
		&u.IsPro,
		&u.ProSince,
		&u.BillingCustomerID,
		&u.BillingOrderID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByExternalID retrieves a user by their identity-provider subject.
// Returns apperror.ErrNotFound if no user exists — callers use that to
// model "identity exists but not yet synced".
func (db *DB) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", externalID)
		}
		return nil, fmt.Errorf("sqlite: getting user by external id %s: %w", externalID, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email — the only handle the billing
// provider has. email has a plain (non-unique) index; if two accounts ever
// shared an address the earliest row wins, matching first-match semantics.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? ORDER BY created_at LIMIT 1`, email)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// SetPro marks the user entitled and records the billing references.
//
// pro_since and both refs are overwritten on every call — repeat billing
// events for the same user refresh them to the latest delivery. Nothing in
// this codebase ever sets is_pro back to 0: entitlement is monotonic.
func (db *DB) SetPro(ctx context.Context, externalID string, since time.Time, customerID, orderID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET is_pro = 1, pro_since = ?, billing_customer_id = ?, billing_order_id = ?, updated_at = ?
		 WHERE external_id = ?`,
		since,
		customerID,
		orderID,
		time.Now(),
		externalID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upgrading user %s: %w", externalID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", externalID)
	}

	return nil
}
