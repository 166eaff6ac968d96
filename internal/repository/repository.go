// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage provides the implementation;
// tests substitute in-memory mocks.
package repository

import (
	"context"
	"time"

	"github.com/sakif/codecraft/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository persists user records.
//
// Note the asymmetry in lookups: the identity webhook and request auth know
// users by ExternalID, but the billing provider only knows email — its
// events carry no identity-provider subject. Both lookups return
// apperror.ErrNotFound when no row matches.
type UserRepository interface {
	// CreateUser inserts a new user. Returns apperror.ErrConflict if a user
	// with the same ExternalID already exists.
	CreateUser(ctx context.Context, user *model.User) error
	GetByExternalID(ctx context.Context, externalID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// SetPro marks the user entitled and overwrites the billing references.
	// Repeat calls overwrite since and the refs — last write wins.
	SetPro(ctx context.Context, externalID string, since time.Time, customerID, orderID string) error
}

// ExecutionRepository persists execution records. Insert-only: records are
// an immutable audit trail, so there is no update or delete.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, exec *model.Execution) error
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Execution, error)
	// LanguageCounts returns executions-per-language for the user's stats.
	LanguageCounts(ctx context.Context, userID string) (map[string]int, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type SnippetRepository interface {
	CreateSnippet(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, opts ListOptions) ([]model.Snippet, error)
	// DeleteCascade removes the snippet together with all of its comments
	// and stars in a single transaction — a concurrent reader never sees a
	// half-deleted snippet.
	DeleteCascade(ctx context.Context, id string) error
	ListStarredBy(ctx context.Context, userID string) ([]model.Snippet, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetCommentByID(ctx context.Context, id string) (*model.Comment, error)
	ListBySnippet(ctx context.Context, snippetID string) ([]model.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// StarRepository manages the (user, snippet) star pairs.
//
// Exists returns an explicit present/absent bool rather than a nullable
// record — callers must never conflate "absent" with "error".
type StarRepository interface {
	Exists(ctx context.Context, userID, snippetID string) (bool, error)
	// InsertStar returns apperror.ErrConflict if the pair already exists;
	// the UNIQUE index, not application logic, is what makes the toggle
	// safe under a concurrent double-click.
	InsertStar(ctx context.Context, star *model.Star) error
	RemoveStar(ctx context.Context, userID, snippetID string) error
	CountBySnippet(ctx context.Context, snippetID string) (int, error)
	// StarredLanguageCounts returns language→count over the snippets the
	// user has starred, for the profile stats.
	StarredLanguageCounts(ctx context.Context, userID string) (map[string]int, error)
}
