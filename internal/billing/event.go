package billing

import (
	"encoding/json"
	"fmt"
)

// The provider's webhook JSON is duck-typed: every delivery shares an outer
// envelope, but the meaning depends on meta.event_name. We model this as a
// small tagged union — ParseEvent returns exactly one recognized event type
// or Unknown, and Unknown is a guaranteed no-op for every caller.

// OrderCreated is the one event kind that changes state: a completed
// purchase, which upgrades the matching user to Pro.
//
// The provider's billing system knows users only by email — the order
// carries no external identity — so the upgrade path later resolves the
// user by email, not by ExternalID.
type OrderCreated struct {
	Email      string // data.attributes.user_email
	CustomerID string // data.attributes.customer_id
	OrderID    string // data.id
	Amount     int64  // data.attributes.total, in cents
}

// Unknown is any verified delivery whose event_name we don't recognize.
// Handlers acknowledge it with 200 and change nothing: the provider must
// not retry events we simply don't care about.
type Unknown struct {
	EventName string
}

// envelope mirrors just the fields we read from the provider's payload.
type envelope struct {
	Meta struct {
		EventName string `json:"event_name"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			UserEmail  string      `json:"user_email"`
			CustomerID json.Number `json:"customer_id"`
			Total      int64       `json:"total"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseEvent decodes a VERIFIED webhook payload into an event value.
//
// It must only be called after Verifier.Verify has accepted the payload;
// the decode error path here is "the provider sent malformed JSON", a
// 500-class condition, never "an attacker sent garbage" (that is rejected
// at the signature check without parsing).
//
// Returns either OrderCreated or Unknown.
func ParseEvent(payload []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("billing: decoding webhook payload: %w", err)
	}

	switch env.Meta.EventName {
	case "order_created":
		return OrderCreated{
			Email:      env.Data.Attributes.UserEmail,
			CustomerID: env.Data.Attributes.CustomerID.String(),
			OrderID:    env.Data.ID,
			Amount:     env.Data.Attributes.Total,
		}, nil
	default:
		return Unknown{EventName: env.Meta.EventName}, nil
	}
}
