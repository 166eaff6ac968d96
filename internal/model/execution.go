package model

import "time"

// Execution records one code-execution attempt by a user.
//
// Rows are insert-only: there is no update or delete operation anywhere in
// the codebase, so an execution record can be trusted as an immutable audit
// entry. A row is only ever written AFTER the entitlement policy has
// approved the (user, language) pair.
type Execution struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"` // external identity of the user who ran the code
	Language  string    `json:"language"`
	Code      string    `json:"code"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserStats aggregates a user's activity for the profile page.
type UserStats struct {
	TotalExecutions     int            `json:"totalExecutions"`
	LanguageCount       int            `json:"languageCount"`
	Languages           []string       `json:"languages"`
	Last24Hours         int            `json:"last24Hours"`
	FavoriteLanguage    string         `json:"favoriteLanguage"`
	LanguageStats       map[string]int `json:"languageStats"`
	MostStarredLanguage string         `json:"mostStarredLanguage"`
}
