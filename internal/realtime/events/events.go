// Package events defines the closed catalogue of named events exchanged
// with connected clients and the envelope they travel in.
package events

import (
	"time"

	"github.com/okian/huddle/internal/domain/model"
)

// Inbound event names. Anything outside this set is dropped.
const (
	IssueUpdate        = "issue:update"
	CommentAdd         = "comment:add"
	IssueAssign        = "issue:assign"
	IssueResolve       = "issue:resolve"
	AvailabilityUpdate = "availability:update"
	MessageSend        = "message:send"
	HelpAsk            = "help:ask"
	HelpRespond        = "help:respond"
	TypingStart        = "typing:start"
	TypingStop         = "typing:stop"
)

// Outbound-only event names.
const (
	Connected      = "connected"
	IssueAssigned  = "issue:assigned"
	MessageSent    = "message:sent"
	HelpAskAck     = "help:ask:ack"
	HelpRespondAck = "help:respond:ack"
)

// Actor is the public identity slice stamped on every outbound event.
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	ExternalID  string `json:"external_id"`
}

// Event is the outbound envelope: domain payload plus a server-generated
// timestamp and the acting identity's public fields.
type Event struct {
	Name      string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     *Actor         `json:"actor,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// New builds an outbound event stamped with the current time and the
// actor's public profile.
func New(name string, actor model.Profile, payload map[string]any) Event {
	return Event{
		Name:      name,
		Timestamp: time.Now().UTC(),
		Actor: &Actor{
			ID:          actor.ID,
			DisplayName: actor.DisplayName,
			ExternalID:  actor.ExternalID,
		},
		Payload: payload,
	}
}

// NewSystem builds an outbound event with no acting identity.
func NewSystem(name string, payload map[string]any) Event {
	return Event{
		Name:      name,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
