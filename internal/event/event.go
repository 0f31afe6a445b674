// Package event decodes and filters inbound Notion webhook payloads.
//
// Notion delivers several payload shapes over the same endpoint: a one-time
// verification handshake, page lifecycle events, and data-source content
// updates. Decoding discriminates on the payload shape into an explicit
// variant instead of poking at a raw map, so unrecognized shapes fail loudly
// rather than half-succeeding.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type identifies the decoded webhook payload variant.
type Type string

const (
	// TypeVerification is the one-time subscription handshake carrying a
	// verification token.
	TypeVerification Type = "verification"

	TypePageCreated        Type = "page.created"
	TypePageContentUpdated Type = "page.content_updated"

	// TypeDataSourceContentUpdated fires when pages inside a database
	// change; the affected pages arrive as updated blocks.
	TypeDataSourceContentUpdated Type = "data_source.content_updated"
)

// Event is a decoded webhook payload. Exactly one variant's fields are
// populated depending on Type. Events are transient: constructed per request
// and discarded after handling.
type Event struct {
	Type Type

	// VerificationToken is set only for TypeVerification.
	VerificationToken string

	// DatabaseID identifies the data source the event originated from.
	DatabaseID string

	// PageIDs lists the pages affected by the event.
	PageIDs []string
}

// IsVerification reports whether this is the subscription handshake.
func (e *Event) IsVerification() bool { return e.Type == TypeVerification }

// envelope covers every payload shape Notion sends to a webhook endpoint.
type envelope struct {
	Type              string `json:"type"`
	VerificationToken string `json:"verification_token"`
	Entity            struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"entity"`
	Data struct {
		Parent struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"parent"`
		UpdatedBlocks []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"updated_blocks"`
	} `json:"data"`
}

// Decode parses a raw webhook body into an Event.
//
// The verification handshake is recognized by the presence of
// verification_token; every other payload must carry a type field. A payload
// with neither is a decode error, not an ignorable event.
func Decode(raw []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	if env.VerificationToken != "" {
		return &Event{
			Type:              TypeVerification,
			VerificationToken: env.VerificationToken,
		}, nil
	}

	if env.Type == "" {
		return nil, fmt.Errorf("decode webhook payload: missing type field")
	}

	ev := &Event{Type: Type(env.Type)}

	switch ev.Type {
	case TypePageCreated, TypePageContentUpdated:
		if env.Entity.Type != "page" || env.Entity.ID == "" {
			return nil, fmt.Errorf("decode webhook payload: %s event without page entity", env.Type)
		}
		ev.PageIDs = []string{env.Entity.ID}
		ev.DatabaseID = env.Data.Parent.ID

	case TypeDataSourceContentUpdated:
		if env.Entity.Type != "data_source" || env.Entity.ID == "" {
			return nil, fmt.Errorf("decode webhook payload: %s event without data_source entity", env.Type)
		}
		ev.DatabaseID = env.Entity.ID
		for _, b := range env.Data.UpdatedBlocks {
			if b.Type == "block" && b.ID != "" {
				// Block ids under a database are the child page ids.
				ev.PageIDs = append(ev.PageIDs, b.ID)
			}
		}

	default:
		// Other event types decode fine; the filter ignores them.
	}

	return ev, nil
}

// NormalizeID strips dashes so ids from different API surfaces compare equal.
// Notion renders the same UUID with and without dashes depending on endpoint.
func NormalizeID(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "-", "")
}
