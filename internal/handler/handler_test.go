package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/codecraft/internal/auth"
	"github.com/sakif/codecraft/internal/billing"
	"github.com/sakif/codecraft/internal/executor"
	"github.com/sakif/codecraft/internal/handler"
	"github.com/sakif/codecraft/internal/identity"
	sqliteRepo "github.com/sakif/codecraft/internal/repository/sqlite"
	"github.com/sakif/codecraft/internal/service"
)

const (
	testBillingSecret  = "test-billing-secret"
	testIdentitySecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"
	testAuthSecret     = "0123456789abcdef0123456789abcdef"
)

// MockExecutor answers with a canned result so handler tests never reach
// the network.
type MockExecutor struct {
	CapturedReq executor.ExecutionRequest
	ReturnRes   *executor.ExecutionResult
	ReturnErr   error
}

func (m *MockExecutor) Execute(_ context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	m.CapturedReq = req
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnRes, nil
}

// testAPI is a fully wired API over an in-memory database, mounted the
// same way the server package mounts it.
type testAPI struct {
	router chi.Router
	tokens *auth.TokenService
	users  *service.UserService
	exec   *MockExecutor
	signer *billing.Verifier
	t      *testing.T
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliteRepo.New(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	billingVerifier, err := billing.NewVerifier(testBillingSecret)
	if err != nil {
		t.Fatalf("creating billing verifier: %v", err)
	}
	identityVerifier, err := identity.NewVerifier(testIdentitySecret)
	if err != nil {
		t.Fatalf("creating identity verifier: %v", err)
	}
	tokens, err := auth.NewTokenService(testAuthSecret)
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}

	exec := &MockExecutor{ReturnRes: &executor.ExecutionResult{Stdout: "ok\n"}}

	userService := service.NewUserService(db, logger)
	executionService := service.NewExecutionService(db, db, db, exec, logger)
	snippetService := service.NewSnippetService(db, db, db, db, logger)

	webhookHandler := handler.NewWebhookHandler(userService, billingVerifier, identityVerifier, logger)
	executeHandler := handler.NewExecuteHandler(executionService, logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, logger)
	userHandler := handler.NewUserHandler(userService, executionService, snippetService, logger)

	r := chi.NewRouter()
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/billing", webhookHandler.HandleBilling)
		r.Post("/identity", webhookHandler.HandleIdentity)
	})
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/languages", executeHandler.HandleLanguages)
			r.Get("/snippets", snippetHandler.HandleList)
			r.Get("/snippets/{id}", snippetHandler.HandleGet)
			r.Get("/snippets/{id}/stars", snippetHandler.HandleStars)
			r.Get("/snippets/{id}/comments", snippetHandler.HandleListComments)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/executions/run", executeHandler.HandleRun)
			r.Post("/executions", executeHandler.HandleSave)
			r.Get("/executions", executeHandler.HandleList)
			r.Get("/users/me", userHandler.HandleMe)
			r.Get("/users/me/stats", userHandler.HandleStats)
			r.Get("/users/me/starred", userHandler.HandleStarred)
			r.Post("/snippets", snippetHandler.HandleCreate)
			r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
			r.Post("/snippets/{id}/star", snippetHandler.HandleToggleStar)
			r.Post("/snippets/{id}/comments", snippetHandler.HandleAddComment)
			r.Delete("/comments/{id}", snippetHandler.HandleDeleteComment)
		})
	})

	return &testAPI{
		router: r,
		tokens: tokens,
		users:  userService,
		exec:   exec,
		signer: billingVerifier,
		t:      t,
	}
}

// sync creates a user the way production does — through the user service
// the identity webhook drives.
func (a *testAPI) sync(externalID, email string) {
	a.t.Helper()
	if err := a.users.Sync(context.Background(), externalID, email, "Test User"); err != nil {
		a.t.Fatalf("syncing user: %v", err)
	}
}

func (a *testAPI) upgrade(email string) {
	a.t.Helper()
	if err := a.users.UpgradeToPro(context.Background(), email, "cust_1", "order_1", 3900); err != nil {
		a.t.Fatalf("upgrading user: %v", err)
	}
}

// token mints a session token for the external ID, like the identity
// provider would.
func (a *testAPI) token(externalID string) string {
	a.t.Helper()
	tok, err := a.tokens.Mint(externalID, time.Hour)
	if err != nil {
		a.t.Fatalf("minting token: %v", err)
	}
	return tok
}

// do runs a request through the full router, including the auth
// middleware. An empty token means anonymous.
func (a *testAPI) do(method, path, token, body string) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}
