package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/codecraft/internal/apperror"
	"github.com/sakif/codecraft/internal/auth"
	"github.com/sakif/codecraft/internal/entitlement"
	"github.com/sakif/codecraft/internal/executor"
	"github.com/sakif/codecraft/internal/model"
	"github.com/sakif/codecraft/internal/service"
)

// ExecuteHandler exposes code execution and the per-user execution history.
type ExecuteHandler struct {
	executions *service.ExecutionService
	logger     *slog.Logger
}

func NewExecuteHandler(executions *service.ExecutionService, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{executions: executions, logger: logger}
}

type runRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type runResponse struct {
	Execution *model.Execution          `json:"execution"`
	Result    *executor.ExecutionResult `json:"result"`
}

// HandleRun executes code through the remote sandbox and records the
// attempt.
//
// POST /api/executions/run
func (h *ExecuteHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	record, result, err := h.executions.Run(r.Context(), userID, req.Language, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runResponse{Execution: record, Result: result})
}

type saveRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Output   string `json:"output"`
	Error    string `json:"error"`
}

// HandleSave records an execution the client already ran against the
// sandbox directly.
//
// POST /api/executions
func (h *ExecuteHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	record, err := h.executions.Save(r.Context(), userID, req.Language, req.Code, req.Output, req.Error)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// HandleList returns the caller's execution history, newest first.
//
// GET /api/executions?limit=20&offset=0
func (h *ExecuteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	limit, offset := paginationParams(r)

	executions, err := h.executions.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if executions == nil {
		executions = []model.Execution{}
	}

	writeJSON(w, http.StatusOK, executions)
}

// HandleLanguages returns the language catalog with pro markers. Public:
// the editor shows the full list to everyone and locks the pro entries.
//
// GET /api/languages
func (h *ExecuteHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, entitlement.Languages())
}

// paginationParams reads limit/offset from the query string. Values that
// are absent or unparsable fall back to zero; the services clamp from
// there.
func paginationParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
