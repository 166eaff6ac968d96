package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/codecraft/internal/apperror"
	"github.com/sakif/codecraft/internal/model"
	"github.com/sakif/codecraft/internal/repository"
)

// memStore is an in-memory stand-in for the sqlite package, good enough to
// drive the services without a database. Behavior mirrors sqlite where it
// matters: duplicate ExternalID and duplicate star pairs conflict, and
// DeleteCascade takes comments and stars with the snippet.
//
type memStore struct {
	mu       sync.Mutex
	users    []*model.User
	execs    []model.Execution
	snippets []model.Snippet
	comments []model.Comment
	stars    []model.Star
}

var (
	_ repository.UserRepository      = (*memStore)(nil)
	_ repository.ExecutionRepository = (*memStore)(nil)
	_ repository.SnippetRepository   = (*memStore)(nil)
	_ repository.CommentRepository   = (*memStore)(nil)
	_ repository.StarRepository      = (*memStore)(nil)
)

func newMemStore() *memStore { return &memStore{} }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- users ---

func (m *memStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ExternalID == user.ExternalID {
			return apperror.Conflict("user", user.ExternalID)
		}
	}
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users = append(m.users, user)
	return nil
}

func (m *memStore) GetByExternalID(_ context.Context, externalID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", externalID)
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *memStore) SetPro(_ context.Context, externalID string, since time.Time, customerID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ExternalID == externalID {
			u.IsPro = true
			u.ProSince = &since
			u.BillingCustomerID = customerID
			u.BillingOrderID = orderID
			u.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperror.NotFound("user", externalID)
}

// --- executions ---

func (m *memStore) CreateExecution(_ context.Context, exec *model.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exec.ID = xid.New().String()
	exec.CreatedAt = time.Now()
	m.execs = append(m.execs, *exec)
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID string, opts repository.ListOptions) ([]model.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Execution
	for i := len(m.execs) - 1; i >= 0; i-- {
		if m.execs[i].UserID == userID {
			out = append(out, m.execs[i])
		}
	}
	return paginate(out, opts), nil
}

func (m *memStore) LanguageCounts(_ context.Context, userID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range m.execs {
		if e.UserID == userID {
			counts[e.Language]++
		}
	}
	return counts, nil
}

func (m *memStore) CountSince(_ context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.execs {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// --- snippets ---

func (m *memStore) CreateSnippet(_ context.Context, snippet *model.Snippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snippet.ID = xid.New().String()
	snippet.CreatedAt = time.Now()
	m.snippets = append(m.snippets, *snippet)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snippets {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("snippet", id)
}

func (m *memStore) List(_ context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Snippet
	for i := len(m.snippets) - 1; i >= 0; i-- {
		out = append(out, m.snippets[i])
	}
	return paginate(out, opts), nil
}

func (m *memStore) DeleteCascade(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, s := range m.snippets {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperror.NotFound("snippet", id)
	}
	var comments []model.Comment
	for _, c := range m.comments {
		if c.SnippetID != id {
			comments = append(comments, c)
		}
	}
	m.comments = comments
	var stars []model.Star
	for _, st := range m.stars {
		if st.SnippetID != id {
			stars = append(stars, st)
		}
	}
	m.stars = stars
	m.snippets = append(m.snippets[:idx], m.snippets[idx+1:]...)
	return nil
}

func (m *memStore) ListStarredBy(_ context.Context, userID string) ([]model.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Snippet
	for i := len(m.stars) - 1; i >= 0; i-- {
		if m.stars[i].UserID != userID {
			continue
		}
		for _, s := range m.snippets {
			if s.ID == m.stars[i].SnippetID {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// --- comments ---

func (m *memStore) CreateComment(_ context.Context, comment *model.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now()
	m.comments = append(m.comments, *comment)
	return nil
}

func (m *memStore) GetCommentByID(_ context.Context, id string) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.comments {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("comment", id)
}

func (m *memStore) ListBySnippet(_ context.Context, snippetID string) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Comment
	for i := len(m.comments) - 1; i >= 0; i-- {
		if m.comments[i].SnippetID == snippetID {
			out = append(out, m.comments[i])
		}
	}
	return out, nil
}

func (m *memStore) DeleteComment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.comments {
		if c.ID == id {
			m.comments = append(m.comments[:i], m.comments[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("comment", id)
}

// --- stars ---

func (m *memStore) Exists(_ context.Context, userID, snippetID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.stars {
		if st.UserID == userID && st.SnippetID == snippetID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertStar(_ context.Context, star *model.Star) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.stars {
		if st.UserID == star.UserID && st.SnippetID == star.SnippetID {
			return apperror.Conflict("star", star.SnippetID)
		}
	}
	star.ID = xid.New().String()
	star.CreatedAt = time.Now()
	m.stars = append(m.stars, *star)
	return nil
}

func (m *memStore) RemoveStar(_ context.Context, userID, snippetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, st := range m.stars {
		if st.UserID == userID && st.SnippetID == snippetID {
			m.stars = append(m.stars[:i], m.stars[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) CountBySnippet(_ context.Context, snippetID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, st := range m.stars {
		if st.SnippetID == snippetID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) StarredLanguageCounts(_ context.Context, userID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, st := range m.stars {
		if st.UserID != userID {
			continue
		}
		for _, s := range m.snippets {
			if s.ID == st.SnippetID {
				counts[s.Language]++
			}
		}
	}
	return counts, nil
}

func paginate[T any](items []T, opts repository.ListOptions) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return nil
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
