// Package identity handles inbound webhooks from the identity provider.
//
// The provider signs deliveries with the svix scheme: svix-id,
// svix-timestamp, and svix-signature headers over the raw body. We use the
// svix library for verification rather than reimplementing the scheme —
// it handles the timestamp tolerance window and multiple rotated
// signatures per delivery, which a hand-rolled check would get wrong.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"

	"github.com/sakif/codecraft/internal/apperror"
)

// UserCreated is the one identity event that changes state: a new account
// at the provider, which we mirror into our own users table.
type UserCreated struct {
	ExternalID string
	Email      string
	Name       string
}

// Unknown is any verified delivery of a type we don't handle
// (user.updated, session.created, ...). Always a no-op.
type Unknown struct {
	Type string
}

// Verifier wraps svix verification plus payload decoding for identity
// webhook deliveries.
type Verifier struct {
	wh *svix.Webhook
}

// NewVerifier creates a Verifier for the provider's whsec_ secret.
// An empty or malformed secret is a configuration error.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("identity: webhook secret must not be empty")
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("identity: creating svix verifier: %w", err)
	}
	return &Verifier{wh: wh}, nil
}

// VerifyAndParse checks the svix signature headers against the raw payload
// and, only on success, decodes the event. Verification failure returns
// apperror.ErrVerification and the payload is never parsed.
func (v *Verifier) VerifyAndParse(payload []byte, headers http.Header) (any, error) {
	if err := v.wh.Verify(payload, headers); err != nil {
		return nil, apperror.Verification("invalid identity webhook signature")
	}
	return parseEvent(payload)
}

// event mirrors the provider's envelope for the fields we read.
// email_addresses is a list; the first entry is the primary address.
type event struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

func parseEvent(payload []byte) (any, error) {
	var evt event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("identity: decoding webhook payload: %w", err)
	}

	if evt.Type != "user.created" {
		return Unknown{Type: evt.Type}, nil
	}

	if evt.Data.ID == "" {
		return nil, fmt.Errorf("identity: user.created event missing user id")
	}

	email := ""
	if len(evt.Data.EmailAddresses) > 0 {
		email = evt.Data.EmailAddresses[0].EmailAddress
	}

	return UserCreated{
		ExternalID: evt.Data.ID,
		Email:      email,
		Name:       fullName(evt.Data.FirstName, evt.Data.LastName),
	}, nil
}

// fullName joins the provider's split name fields, tolerating either being
// absent — "Ada" + "" is "Ada", not "Ada ".
func fullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
