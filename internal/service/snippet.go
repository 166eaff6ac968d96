package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/codecraft/internal/apperror"
	"github.com/sakif/codecraft/internal/model"
	"github.com/sakif/codecraft/internal/repository"
)

const (
	MaxSnippetTitleLength = 100
	MaxSnippetCodeLength  = 100000
	MaxCommentLength      = 10000
	DefaultListLimit      = 20
	MaxListLimit          = 100
)

// SnippetService handles the shared-snippet social features: publishing,
// starring, commenting, and the owner-only cascading delete.
type SnippetService struct {
	snippets repository.SnippetRepository
	comments repository.CommentRepository
	stars    repository.StarRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewSnippetService(
	snippets repository.SnippetRepository,
	comments repository.CommentRepository,
	stars repository.StarRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *SnippetService {
	return &SnippetService{
		snippets: snippets,
		comments: comments,
		stars:    stars,
		users:    users,
		logger:   logger,
	}
}

// Create publishes a snippet. The author must be authenticated AND synced:
// the author's display name is denormalized onto the snippet, so a row for
// them has to exist.
func (s *SnippetService) Create(ctx context.Context, userID, title, language, code string) (*model.Snippet, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("sign in to share a snippet")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "snippet title is required")
	}
	if len(title) > MaxSnippetTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("snippet title must be %d characters or less", MaxSnippetTitleLength))
	}
	if language == "" {
		return nil, apperror.ValidationFailed("language", "language is required")
	}
	if code == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}
	if len(code) > MaxSnippetCodeLength {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxSnippetCodeLength))
	}

	user, err := s.users.GetByExternalID(ctx, userID)
	if err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		UserID:   userID,
		UserName: user.Name,
		Title:    title,
		Language: language,
		Code:     code,
	}

	if err := s.snippets.CreateSnippet(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/snippet: creating snippet: %w", err)
	}

	s.logger.Info("snippet shared",
		slog.String("id", snippet.ID),
		slog.String("language", snippet.Language),
	)

	return snippet, nil
}

// GetByID retrieves a snippet. Snippets are public — no identity required.
func (s *SnippetService) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	return s.snippets.GetByID(ctx, id)
}

// List returns snippets newest-first with clamped pagination.
func (s *SnippetService) List(ctx context.Context, limit, offset int) ([]model.Snippet, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	snippets, err := s.snippets.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/snippet: listing snippets: %w", err)
	}

	return snippets, nil
}

// Delete removes a snippet and, atomically, every comment and star on it.
//
// Only the owner may delete. NotFound and Forbidden stay distinct: "that
// snippet doesn't exist" and "that snippet isn't yours" are different
// answers, and a failed authorization check changes nothing.
func (s *SnippetService) Delete(ctx context.Context, snippetID, requesterID string) error {
	if requesterID == "" {
		return apperror.Unauthenticated("sign in to delete a snippet")
	}

	snippet, err := s.snippets.GetByID(ctx, snippetID)
	if err != nil {
		return err
	}
	if snippet.UserID != requesterID {
		return apperror.Forbidden("only the snippet's owner can delete it")
	}

	if err := s.snippets.DeleteCascade(ctx, snippetID); err != nil {
		return fmt.Errorf("service/snippet: deleting snippet %s: %w", snippetID, err)
	}

	s.logger.Info("snippet deleted", slog.String("id", snippetID))
	return nil
}

// ToggleStar flips the requester's star on a snippet and returns the new
// starred state.
//
// The read-then-write here is NOT what guarantees one star per pair — the
// store's UNIQUE index is. If a concurrent toggle wins the insert race, we
// get ErrConflict and report "starred", which is exactly the state the
// pair ended up in.
func (s *SnippetService) ToggleStar(ctx context.Context, snippetID, userID string) (bool, error) {
	if userID == "" {
		return false, apperror.Unauthenticated("sign in to star a snippet")
	}

	if _, err := s.snippets.GetByID(ctx, snippetID); err != nil {
		return false, err
	}

	starred, err := s.stars.Exists(ctx, userID, snippetID)
	if err != nil {
		return false, fmt.Errorf("service/snippet: checking star: %w", err)
	}

	if starred {
		if err := s.stars.RemoveStar(ctx, userID, snippetID); err != nil {
			return false, fmt.Errorf("service/snippet: removing star: %w", err)
		}
		return false, nil
	}

	err = s.stars.InsertStar(ctx, &model.Star{UserID: userID, SnippetID: snippetID})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return true, nil
		}
		return false, fmt.Errorf("service/snippet: inserting star: %w", err)
	}

	return true, nil
}

// StarInfo bundles the public star count with the requester's own state.
type StarInfo struct {
	Count     int  `json:"count"`
	IsStarred bool `json:"isStarred"`
}

// StarInfo returns the star count and, when userID is non-empty, whether
// that user has starred the snippet. Anonymous callers get IsStarred=false
// — absence of identity, like absence of a star, is not an error.
func (s *SnippetService) StarInfo(ctx context.Context, snippetID, userID string) (*StarInfo, error) {
	if _, err := s.snippets.GetByID(ctx, snippetID); err != nil {
		return nil, err
	}

	count, err := s.stars.CountBySnippet(ctx, snippetID)
	if err != nil {
		return nil, fmt.Errorf("service/snippet: counting stars: %w", err)
	}

	info := &StarInfo{Count: count}
	if userID != "" {
		starred, err := s.stars.Exists(ctx, userID, snippetID)
		if err != nil {
			return nil, fmt.Errorf("service/snippet: checking star: %w", err)
		}
		info.IsStarred = starred
	}

	return info, nil
}

// StarredBy lists the snippets the user has starred.
func (s *SnippetService) StarredBy(ctx context.Context, userID string) ([]model.Snippet, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("sign in to view starred snippets")
	}

	snippets, err := s.snippets.ListStarredBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/snippet: listing starred snippets: %w", err)
	}

	return snippets, nil
}

// AddComment posts a comment on a snippet. Like Create, the commenter must
// be synced so their display name can be denormalized onto the comment.
func (s *SnippetService) AddComment(ctx context.Context, snippetID, userID, content string) (*model.Comment, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("sign in to comment")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "comment content is required")
	}
	if len(content) > MaxCommentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	if _, err := s.snippets.GetByID(ctx, snippetID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByExternalID(ctx, userID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		SnippetID: snippetID,
		UserID:    userID,
		UserName:  user.Name,
		Content:   content,
	}

	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/snippet: creating comment: %w", err)
	}

	return comment, nil
}

// ListComments returns a snippet's comments, newest first. Public.
func (s *SnippetService) ListComments(ctx context.Context, snippetID string) ([]model.Comment, error) {
	if _, err := s.snippets.GetByID(ctx, snippetID); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListBySnippet(ctx, snippetID)
	if err != nil {
		return nil, fmt.Errorf("service/snippet: listing comments: %w", err)
	}

	return comments, nil
}

// DeleteComment removes a comment; only its author may do so.
func (s *SnippetService) DeleteComment(ctx context.Context, commentID, requesterID string) error {
	if requesterID == "" {
		return apperror.Unauthenticated("sign in to delete a comment")
	}

	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != requesterID {
		return apperror.Forbidden("only the comment's author can delete it")
	}

	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("service/snippet: deleting comment %s: %w", commentID, err)
	}

	return nil
}
