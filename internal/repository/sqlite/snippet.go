package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/codecraft/internal/apperror"
	"github.com/sakif/codecraft/internal/model"
	"github.com/sakif/codecraft/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

// CreateSnippet inserts a new snippet. The pointer receiver matters: the caller's
// struct gets the generated ID and timestamp filled in.
func (db *DB) CreateSnippet(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()
	snippet.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, user_id, user_name, title, language, code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.UserID,
		snippet.UserName,
		snippet.Title,
		snippet.Language,
		snippet.Code,
		snippet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	var s model.Snippet

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, user_name, title, language, code, created_at
		 FROM snippets WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.UserID, &s.UserName, &s.Title, &s.Language, &s.Code, &s.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	return &s, nil
}

// List returns snippets newest-first with LIMIT/OFFSET pagination.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, user_name, title, language, code, created_at
		 FROM snippets
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	return collectSnippets(rows, limit)
}

// DeleteCascade removes a snippet and everything referencing it inside one
// transaction. Children go first; a reader either sees the whole snippet
// (comments and stars included) or none of it — never orphans.
func (db *DB) DeleteCascade(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning cascade delete: %w", err)
	}
	// Rollback is a no-op after a successful Commit.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE snippet_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting comments for snippet %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stars WHERE snippet_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting stars for snippet %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Nothing committed — the rollback undoes the child deletes too.
		return apperror.NotFound("snippet", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing cascade delete: %w", err)
	}

	return nil
}

// ListStarredBy returns the snippets the user has starred, newest star
// first. Stars whose snippet has since been deleted cannot appear — the
// cascade removes the star rows with the snippet.
func (db *DB) ListStarredBy(ctx context.Context, userID string) ([]model.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT s.id, s.user_id, s.user_name, s.title, s.language, s.code, s.created_at
		 FROM snippets s
		 JOIN stars st ON st.snippet_id = s.id
		 WHERE st.user_id = ?
		 ORDER BY st.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing starred snippets for %s: %w", userID, err)
	}
	defer rows.Close()

	return collectSnippets(rows, 16)
}

func collectSnippets(rows *sql.Rows, sizeHint int) ([]model.Snippet, error) {
	snippets := make([]model.Snippet, 0, sizeHint)

	for rows.Next() {
		var s model.Snippet
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.UserName, &s.Title, &s.Language, &s.Code, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}
