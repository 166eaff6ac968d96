package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/codecraft/internal/apperror"
	"github.com/sakif/codecraft/internal/entitlement"
	"github.com/sakif/codecraft/internal/executor"
	"github.com/sakif/codecraft/internal/model"
	"github.com/sakif/codecraft/internal/repository"
)

const (
	// MaxExecutionCodeLength bounds submitted source (~100KB).
	MaxExecutionCodeLength = 100000
)

// ExecutionService gates and records code executions.
//
// Every write goes through the entitlement policy first — an execution row
// existing implies the (user, language) pair was permitted at write time.
type ExecutionService struct {
	users      repository.UserRepository
	executions repository.ExecutionRepository
	stars      repository.StarRepository
	exec       executor.Executor
	logger     *slog.Logger
}

func NewExecutionService(
	users repository.UserRepository,
	executions repository.ExecutionRepository,
	stars repository.StarRepository,
	exec executor.Executor,
	logger *slog.Logger,
) *ExecutionService {
	return &ExecutionService{
		users:      users,
		executions: executions,
		stars:      stars,
		exec:       exec,
		logger:     logger,
	}
}

// authorize runs the shared gate for Run and Save: authentication, input
// validation, then the entitlement policy.
//
// An authenticated identity without a user row (webhook sync hasn't landed
// yet) is NOT an error — the policy sees a nil user and treats it as
// free-tier, per the "not yet synced" model.
func (s *ExecutionService) authorize(ctx context.Context, userID, language, code string) error {
	if userID == "" {
		return apperror.Unauthenticated("sign in to run code")
	}
	if language == "" {
		return apperror.ValidationFailed("language", "language is required")
	}
	if code == "" {
		return apperror.ValidationFailed("code", "code is required")
	}
	if len(code) > MaxExecutionCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxExecutionCodeLength))
	}

	user, err := s.users.GetByExternalID(ctx, userID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/execution: looking up user %s: %w", userID, err)
	}

	if !entitlement.IsPermitted(user, language) {
		return apperror.Forbidden("Pro subscription required to use this language")
	}

	return nil
}

// Run executes the code remotely and persists the attempt.
func (s *ExecutionService) Run(ctx context.Context, userID, language, code string) (*model.Execution, *executor.ExecutionResult, error) {
	if err := s.authorize(ctx, userID, language, code); err != nil {
		return nil, nil, err
	}

	result, err := s.exec.Execute(ctx, executor.ExecutionRequest{
		Language: language,
		Code:     code,
	})
	if err != nil {
		s.logger.Error("remote execution failed",
			slog.String("userID", userID),
			slog.String("language", language),
			slog.String("error", err.Error()),
		)
		return nil, nil, fmt.Errorf("service/execution: executing code: %w", err)
	}

	record := &model.Execution{
		UserID:   userID,
		Language: language,
		Code:     code,
		Output:   result.Stdout,
		Error:    result.Stderr,
	}
	if err := s.executions.CreateExecution(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("service/execution: saving execution: %w", err)
	}

	s.logger.Info("execution recorded",
		slog.String("id", record.ID),
		slog.String("language", language),
		slog.Int("exitCode", result.ExitCode),
	)

	return record, result, nil
}

// Save persists an execution the client already ran (the editor executes
// free-tier code directly against the execution API and reports back). The
// same entitlement gate applies — a client cannot smuggle in a record for
// a language it isn't entitled to.
func (s *ExecutionService) Save(ctx context.Context, userID, language, code, output, errOutput string) (*model.Execution, error) {
	if err := s.authorize(ctx, userID, language, code); err != nil {
		return nil, err
	}

	record := &model.Execution{
		UserID:   userID,
		Language: language,
		Code:     code,
		Output:   output,
		Error:    errOutput,
	}
	if err := s.executions.CreateExecution(ctx, record); err != nil {
		return nil, fmt.Errorf("service/execution: saving execution: %w", err)
	}

	return record, nil
}

// ListByUser returns the user's own execution history, newest first.
func (s *ExecutionService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Execution, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("sign in to view executions")
	}

	executions, err := s.executions.ListByUser(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("service/execution: listing executions: %w", err)
	}

	return executions, nil
}

// Stats aggregates the user's activity for the profile page.
func (s *ExecutionService) Stats(ctx context.Context, userID string) (*model.UserStats, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("sign in to view stats")
	}

	langCounts, err := s.executions.LanguageCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/execution: aggregating languages: %w", err)
	}

	last24h, err := s.executions.CountSince(ctx, userID, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("service/execution: counting recent executions: %w", err)
	}

	starredCounts, err := s.stars.StarredLanguageCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/execution: aggregating starred languages: %w", err)
	}

	stats := &model.UserStats{
		Languages:           make([]string, 0, len(langCounts)),
		LanguageStats:       langCounts,
		Last24Hours:         last24h,
		FavoriteLanguage:    topLanguage(langCounts),
		MostStarredLanguage: topLanguage(starredCounts),
	}

	for lang, n := range langCounts {
		stats.Languages = append(stats.Languages, lang)
		stats.TotalExecutions += n
	}
	stats.LanguageCount = len(stats.Languages)

	return stats, nil
}

// topLanguage returns the most frequent language, or "N/A" when there is
// none. Ties break lexicographically so the result is deterministic.
func topLanguage(counts map[string]int) string {
	top := "N/A"
	best := 0
	for lang, n := range counts {
		if n > best || (n == best && top != "N/A" && lang < top) {
			top = lang
			best = n
		}
	}
	return top
}
