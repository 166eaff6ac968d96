package model

import "time"

// Snippet represents a publicly shared code snippet.
//
// WHY UserName ON THE SNIPPET?
// The author's display name is denormalized onto the row so that listing
// snippets never requires a join against users. The cost is staleness if a
// user renames themselves — acceptable for a display-only field, and it
// matches how the snippet was originally shared.
type Snippet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`   // owner's external identity
	UserName  string    `json:"userName"` // denormalized author display name
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a user comment attached to a snippet. Deleting the snippet
// deletes its comments — no orphans survive a cascade.
type Comment struct {
	ID        string    `json:"id"`
	SnippetID string    `json:"snippetId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Star records that a user starred a snippet. At most one Star exists per
// (UserID, SnippetID) pair — enforced by a UNIQUE index in the store, not
// by application logic, so a double-click race cannot create duplicates.
type Star struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	SnippetID string    `json:"snippetId"`
	CreatedAt time.Time `json:"createdAt"`
}
