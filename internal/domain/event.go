package domain

import (
	"fmt"
	"strings"
)

// EventKind classifies an inbound chat update.
type EventKind string

const (
	EventText    EventKind = "text"
	EventImage   EventKind = "image"
	EventCommand EventKind = "command"
	EventAction  EventKind = "action"
)

// Command is a slash command issued by a party.
type Command string

const (
	CommandBegin Command = "start"
	CommandClaim Command = "claim"
)

// ActionVerb discriminates the mediator's decision buttons.
type ActionVerb string

const (
	ActionAccept ActionVerb = "accept"
	ActionReject ActionVerb = "reject"
	ActionPayout ActionVerb = "payout"
	ActionFail   ActionVerb = "fail"
)

// Action is one inline decision button offered to the mediator. The payload
// round-trips the verb and the reference id through the chat platform.
type Action struct {
	Label   string
	Payload string
}

// ActionPayload encodes a decision verb and reference id as "verb:REF".
func ActionPayload(verb ActionVerb, refID string) string {
	return string(verb) + ":" + refID
}

// ParseActionPayload decodes a decision button payload.
func ParseActionPayload(payload string) (ActionVerb, string, error) {
	verb, refID, ok := strings.Cut(payload, ":")
	if !ok || verb == "" || refID == "" {
		return "", "", fmt.Errorf("domain: malformed action payload %q", payload)
	}
	switch v := ActionVerb(verb); v {
	case ActionAccept, ActionReject, ActionPayout, ActionFail:
		return v, refID, nil
	default:
		return "", "", fmt.Errorf("domain: unknown action verb %q", verb)
	}
}

// Event is one classified inbound chat update routed through the flow engine.
type Event struct {
	Party     int64
	Username  string
	FromAdmin bool
	Kind      EventKind

	// Exactly one of the following carries the payload for its Kind.
	Text       string
	ImageRef   string
	Command    Command
	Payload    string
	CallbackID string
}
