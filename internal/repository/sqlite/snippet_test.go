package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/codecraft/internal/apperror"
	"github.com/sakif/codecraft/internal/model"
	"github.com/sakif/codecraft/internal/repository"
)

func createTestSnippet(t *testing.T, db *DB, userID, title string) *model.Snippet {
	t.Helper()
	snippet := &model.Snippet{
		UserID:   userID,
		UserName: "Author",
		Title:    title,
		Language: "python",
		Code:     "print('hi')",
	}
	if err := db.CreateSnippet(context.Background(), snippet); err != nil {
		t.Fatalf("failed to create test snippet: %v", err)
	}
	return snippet
}

func TestSnippetCreate(t *testing.T) {
	db := newTestDB(t)

	snippet := createTestSnippet(t, db, "user_1", "Hello World")

	if snippet.ID == "" {
		t.Error("Create() did not set snippet.ID")
	}
	if snippet.CreatedAt.IsZero() {
		t.Error("Create() did not set snippet.CreatedAt")
	}
}

func TestSnippetGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestSnippet(t, db, "user_1", "Mine")

	found, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Title != "Mine" || found.UserID != "user_1" {
		t.Errorf("got (%q, %q)", found.Title, found.UserID)
	}
}

func TestSnippetGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSnippetList_Pagination(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		createTestSnippet(t, db, "user_1", "snippet")
	}

	page, err := db.List(context.Background(), repository.ListOptions{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 2 {
		t.Errorf("List() returned %d snippets, want 2", len(page))
	}

	rest, err := db.List(context.Background(), repository.ListOptions{Limit: 10, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("List() returned %d snippets, want 3", len(rest))
	}
}

// Cascade completeness: a snippet with 3 comments and 2 stars leaves no
// trace — no comments, no stars, no snippet.
func TestDeleteCascade(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	snippet := createTestSnippet(t, db, "user_1", "Doomed")

	for i := 0; i < 3; i++ {
		comment := &model.Comment{SnippetID: snippet.ID, UserID: "user_2", UserName: "B", Content: "nice"}
		if err := db.CreateComment(ctx, comment); err != nil {
			t.Fatalf("CreateComment() error = %v", err)
		}
	}
	for _, userID := range []string{"user_2", "user_3"} {
		if err := db.InsertStar(ctx, &model.Star{UserID: userID, SnippetID: snippet.ID}); err != nil {
			t.Fatalf("InsertStar() error = %v", err)
		}
	}

	if err := db.DeleteCascade(ctx, snippet.ID); err != nil {
		t.Fatalf("DeleteCascade() error = %v", err)
	}

	if _, err := db.GetByID(ctx, snippet.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("snippet should be gone after cascade")
	}

	comments, err := db.ListBySnippet(ctx, snippet.ID)
	if err != nil {
		t.Fatalf("ListBySnippet() error = %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("found %d orphaned comments, want 0", len(comments))
	}

	count, err := db.CountBySnippet(ctx, snippet.ID)
	if err != nil {
		t.Fatalf("CountBySnippet() error = %v", err)
	}
	if count != 0 {
		t.Errorf("found %d orphaned stars, want 0", count)
	}
}

func TestDeleteCascade_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.DeleteCascade(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListStarredBy(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	starred := createTestSnippet(t, db, "user_1", "Starred")
	createTestSnippet(t, db, "user_1", "Not starred")

	if err := db.InsertStar(ctx, &model.Star{UserID: "user_2", SnippetID: starred.ID}); err != nil {
		t.Fatalf("InsertStar() error = %v", err)
	}

	snippets, err := db.ListStarredBy(ctx, "user_2")
	if err != nil {
		t.Fatalf("ListStarredBy() error = %v", err)
	}
	if len(snippets) != 1 || snippets[0].ID != starred.ID {
		t.Errorf("ListStarredBy() = %v, want just %q", snippets, starred.ID)
	}
}
