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

var (
	_ repository.CommentRepository = (*DB)(nil)
	_ repository.StarRepository    = (*DB)(nil)
)

// CreateComment inserts a new comment on a snippet.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, snippet_id, user_id, user_name, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.SnippetID,
		comment.UserID,
		comment.UserName,
		comment.Content,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}

	return nil
}

func (db *DB) GetCommentByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, snippet_id, user_id, user_name, content, created_at
		 FROM comments WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.SnippetID, &c.UserID, &c.UserName, &c.Content, &c.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}

	return &c, nil
}

// ListBySnippet returns a snippet's comments, newest first.
func (db *DB) ListBySnippet(ctx context.Context, snippetID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, snippet_id, user_id, user_name, content, created_at
		 FROM comments
		 WHERE snippet_id = ?
		 ORDER BY created_at DESC`,
		snippetID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for snippet %s: %w", snippetID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, 8)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.SnippetID, &c.UserID, &c.UserName, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}

func (db *DB) DeleteComment(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("comment", id)
	}

	return nil
}

// Exists reports whether the user has starred the snippet. Explicitly a
// present/absent bool — absence is a normal answer here, not an error.
func (db *DB) Exists(ctx context.Context, userID, snippetID string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM stars WHERE user_id = ? AND snippet_id = ?`,
		userID, snippetID,
	).Scan(&one)

	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("sqlite: checking star (%s, %s): %w", userID, snippetID, err)
	default:
		return true, nil
	}
}

// InsertStar adds a star for the (user, snippet) pair. The UNIQUE index on
// (user_id, snippet_id) turns a concurrent duplicate insert into
// apperror.ErrConflict rather than a second row.
func (db *DB) InsertStar(ctx context.Context, star *model.Star) error {
	star.ID = xid.New().String()
	star.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO stars (id, user_id, snippet_id, created_at) VALUES (?, ?, ?, ?)`,
		star.ID,
		star.UserID,
		star.SnippetID,
		star.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("star", star.SnippetID)
		}
		return fmt.Errorf("sqlite: inserting star (%s, %s): %w", star.UserID, star.SnippetID, err)
	}

	return nil
}

// RemoveStar deletes the star for the pair. Removing an absent star is not
// an error — under a toggle race, "already gone" is a fine outcome.
func (db *DB) RemoveStar(ctx context.Context, userID, snippetID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM stars WHERE user_id = ? AND snippet_id = ?`,
		userID, snippetID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing star (%s, %s): %w", userID, snippetID, err)
	}
	return nil
}

func (db *DB) CountBySnippet(ctx context.Context, snippetID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stars WHERE snippet_id = ?`, snippetID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting stars for snippet %s: %w", snippetID, err)
	}
	return count, nil
}

// StarredLanguageCounts aggregates the languages of the snippets the user
// has starred, used for the "most starred language" profile stat.
func (db *DB) StarredLanguageCounts(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT s.language, COUNT(*)
		 FROM stars st
		 JOIN snippets s ON s.id = st.snippet_id
		 WHERE st.user_id = ?
		 GROUP BY s.language`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating starred languages for %s: %w", userID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning starred language row: %w", err)
		}
		counts[lang] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating starred languages: %w", err)
	}

	return counts, nil
}
