package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/codecraft/internal/auth"
	"github.com/sakif/codecraft/internal/model"
	"github.com/sakif/codecraft/internal/service"
)

// UserHandler serves the signed-in user's own profile, stats, and starred
// snippets. Everything here sits behind RequireAuth.
type UserHandler struct {
	users      *service.UserService
	executions *service.ExecutionService
	snippets   *service.SnippetService
	logger     *slog.Logger
}

func NewUserHandler(users *service.UserService, executions *service.ExecutionService, snippets *service.SnippetService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:      users,
		executions: executions,
		snippets:   snippets,
		logger:     logger,
	}
}

// HandleMe returns the caller's profile.
//
// GET /api/users/me
//
// A valid token whose user row hasn't arrived via the identity webhook
// yet gets a 404 — the client treats that as "sync pending" and retries.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.GetByExternalID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleStats returns the caller's usage aggregates for the profile page.
//
// GET /api/users/me/stats
func (h *UserHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	stats, err := h.executions.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleStarred lists the snippets the caller has starred.
//
// GET /api/users/me/starred
func (h *UserHandler) HandleStarred(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	snippets, err := h.snippets.StarredBy(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if snippets == nil {
		snippets = []model.Snippet{}
	}

	writeJSON(w, http.StatusOK, snippets)
}
