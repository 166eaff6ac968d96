// Package service contains the business logic layer of the application.
//
// Handlers parse HTTP and write responses; services validate, enforce the
// access rules, and orchestrate; repositories read and write the database.
// Services accept primitives and return domain errors — they have zero
// knowledge of HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/codecraft/internal/apperror"
	"github.com/sakif/codecraft/internal/model"
	"github.com/sakif/codecraft/internal/repository"
)

// UserService owns the user lifecycle: webhook-driven creation (Sync) and
// webhook-driven entitlement (UpgradeToPro). No other code path mutates a
// user record — users cannot edit themselves.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger

	// upgradeMu serializes upgrades so two near-simultaneous billing
	// deliveries for the same user can't interleave their writes; the
	// later arrival deterministically wins.
	upgradeMu sync.Mutex
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// Sync mirrors a provider account into our users table. Idempotent: if a
// user with this ExternalID already exists it is a complete no-op.
//
// Deliberately, repeat calls do NOT refresh email or name on the existing
// row. The upgrade path finds users by email — rewriting the address on a
// later provider event would orphan the entitlement of anyone who paid
// under their original one. The trade-off is staleness if a user changes
// their address at the provider.
//
// Only the verified identity webhook calls this. Exposing it to arbitrary
// authenticated requests would let a caller claim any ExternalID.
func (s *UserService) Sync(ctx context.Context, externalID, email, name string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return apperror.ValidationFailed("externalId", "external user ID is required")
	}

	_, err := s.users.GetByExternalID(ctx, externalID)
	if err == nil {
		// Already synced.
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/user: looking up user %s: %w", externalID, err)
	}

	user := &model.User{
		ExternalID: externalID,
		Email:      strings.TrimSpace(email),
		Name:       strings.TrimSpace(name),
		IsPro:      false,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// Two concurrent deliveries of the same user.created event can both
		// pass the lookup above; the UNIQUE constraint catches the loser and
		// that is still a successful sync.
		if errors.Is(err, apperror.ErrConflict) {
			return nil
		}
		return fmt.Errorf("service/user: creating user %s: %w", externalID, err)
	}

	s.logger.Info("user synced",
		slog.String("externalID", externalID),
		slog.String("email", user.Email),
	)

	return nil
}

// UpgradeToPro marks the user matching email as entitled and records the
// billing references from the triggering order.
//
// Billing events identify users by email only. No matching user is a data
// inconsistency (someone paid before their account synced, or with a
// different address) — surfaced as ErrNotFound with no write, and NOT a
// condition the webhook provider should retry forever.
//
// Entitlement is monotonic: repeat events re-run the same transition,
// overwriting ProSince and the refs with the latest delivery, and nothing
// ever clears IsPro.
func (s *UserService) UpgradeToPro(ctx context.Context, email, customerID, orderID string, amount int64) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperror.ValidationFailed("email", "billing event carried no user email")
	}

	s.upgradeMu.Lock()
	defer s.upgradeMu.Unlock()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("service/user: resolving billing email: %w", err)
	}

	if err := s.users.SetPro(ctx, user.ExternalID, time.Now(), customerID, orderID); err != nil {
		return fmt.Errorf("service/user: upgrading user %s: %w", user.ExternalID, err)
	}

	s.logger.Info("user upgraded to pro",
		slog.String("externalID", user.ExternalID),
		slog.String("orderID", orderID),
		slog.Int64("amountCents", amount),
	)

	return nil
}

// GetByExternalID returns the user's profile.
func (s *UserService) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	if externalID == "" {
		return nil, apperror.ValidationFailed("externalId", "external user ID is required")
	}
	return s.users.GetByExternalID(ctx, externalID)
}
