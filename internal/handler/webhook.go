package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/codecraft/internal/apperror"
	"github.com/sakif/codecraft/internal/billing"
	"github.com/sakif/codecraft/internal/identity"
	"github.com/sakif/codecraft/internal/service"
)

// maxWebhookBody bounds webhook payloads. Provider events are small; a
// multi-megabyte body is not a legitimate delivery.
const maxWebhookBody = 1 << 20

// WebhookHandler receives deliveries from the two external providers.
// These are the only endpoints that mutate users, and both verify the
// delivery signature before reading a single field of the payload.
type WebhookHandler struct {
	users    *service.UserService
	billing  *billing.Verifier
	identity *identity.Verifier
	logger   *slog.Logger
}

func NewWebhookHandler(users *service.UserService, bv *billing.Verifier, iv *identity.Verifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		users:    users,
		billing:  bv,
		identity: iv,
		logger:   logger,
	}
}

// HandleBilling processes billing provider deliveries.
//
// POST /webhooks/billing
//
// Verification happens against the raw bytes exactly as received — the
// body must not be decoded, re-encoded, or otherwise touched before the
// signature check, or a valid delivery would fail to verify.
func (h *WebhookHandler) HandleBilling(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, apperror.ValidationFailed("body", "could not read request body"))
		return
	}

	signature := r.Header.Get("X-Signature")
	if signature == "" {
		writeError(w, apperror.Verification("missing X-Signature header"))
		return
	}
	if err := h.billing.Verify(payload, signature); err != nil {
		h.logger.Warn("billing webhook rejected", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	event, err := billing.ParseEvent(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	switch ev := event.(type) {
	case billing.OrderCreated:
		if err := h.users.UpgradeToPro(r.Context(), ev.Email, ev.CustomerID, ev.OrderID, ev.Amount); err != nil {
			h.logger.Error("billing upgrade failed",
				slog.String("orderID", ev.OrderID),
				slog.String("error", err.Error()),
			)
			writeError(w, err)
			return
		}
	case billing.Unknown:
		// Verified but irrelevant. Acknowledge so the provider stops
		// redelivering it.
		h.logger.Debug("ignoring billing event", slog.String("event", ev.EventName))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

// HandleIdentity processes identity provider deliveries.
//
// POST /webhooks/identity
//
// This is the only code path that creates users. The provider signs with
// the svix scheme (svix-id / svix-timestamp / svix-signature headers);
// verification and parsing share one call because a payload should never
// be decoded unless its signature held.
func (h *WebhookHandler) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, apperror.ValidationFailed("body", "could not read request body"))
		return
	}

	event, err := h.identity.VerifyAndParse(payload, r.Header)
	if err != nil {
		h.logger.Warn("identity webhook rejected", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	switch ev := event.(type) {
	case identity.UserCreated:
		if err := h.users.Sync(r.Context(), ev.ExternalID, ev.Email, ev.Name); err != nil {
			h.logger.Error("user sync failed",
				slog.String("externalID", ev.ExternalID),
				slog.String("error", err.Error()),
			)
			writeError(w, err)
			return
		}
	case identity.Unknown:
		h.logger.Debug("ignoring identity event", slog.String("type", ev.Type))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
