package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/codecraft/internal/model"
	"github.com/sakif/codecraft/internal/repository"
)

var _ repository.ExecutionRepository = (*DB)(nil)

// CreateExecution inserts an execution record. The table is insert-only — there is
// deliberately no Update or Delete here.
func (db *DB) CreateExecution(ctx context.Context, exec *model.Execution) error {
	exec.ID = xid.New().String()
	exec.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO executions (id, user_id, language, code, output, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exec.ID,
		exec.UserID,
		exec.Language,
		exec.Code,
		exec.Output,
		exec.Error,
		exec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating execution: %w", err)
	}

	return nil
}

// ListByUser returns the user's execution history, newest first.
func (db *DB) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Execution, error) {
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
		`SELECT id, user_id, language, code, output, error, created_at
		 FROM executions
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing executions for %s: %w", userID, err)
	}
	defer rows.Close()

	executions := make([]model.Execution, 0, limit)
	for rows.Next() {
		var e model.Execution
		if err := rows.Scan(&e.ID, &e.UserID, &e.Language, &e.Code, &e.Output, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning execution row: %w", err)
		}
		executions = append(executions, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating executions: %w", err)
	}

	return executions, nil
}

// LanguageCounts aggregates executions per language. GROUP BY in SQL beats
// loading every execution row just to count it in Go.
func (db *DB) LanguageCounts(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT language, COUNT(*) FROM executions WHERE user_id = ? GROUP BY language`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating execution languages for %s: %w", userID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning language count row: %w", err)
		}
		counts[lang] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating language counts: %w", err)
	}

	return counts, nil
}

// CountSince counts the user's executions created at or after the cutoff.
func (db *DB) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM executions WHERE user_id = ? AND created_at >= ?`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting recent executions for %s: %w", userID, err)
	}
	return count, nil
}
