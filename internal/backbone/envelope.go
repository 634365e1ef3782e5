// Package backbone maintains the service's duplex channel to the
// real-time event backbone: typed envelopes in and out, reconnection with
// backoff, heartbeats, and ordered delivery of messages queued while
// offline.
package backbone

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paddockpulse/stablehand/internal/domain"
)

// EventType discriminates envelope payloads on the wire.
type EventType string

const (
	EventTicketUpdate     EventType = "ticket_update"
	EventCommentAdded     EventType = "comment_added"
	EventStatusChange     EventType = "status_change"
	EventAssignmentChange EventType = "assignment_change"
	EventChatMessage      EventType = "chat_message"
	EventSystemAlert      EventType = "system_alert"
	EventHeartbeat        EventType = "heartbeat"

	// EventWildcard subscribes to every envelope type. Never valid on the
	// wire.
	EventWildcard EventType = "*"
)

// Envelope is the wire format for all backbone traffic.
type Envelope struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	TenantID  string          `json:"tenantId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
}

// TicketUpdatePayload accompanies ticket_update envelopes.
type TicketUpdatePayload struct {
	Ticket domain.Ticket `json:"ticket"`
}

// CommentAddedPayload accompanies comment_added envelopes.
type CommentAddedPayload struct {
	TicketID   string    `json:"ticketId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// StatusChangePayload accompanies status_change envelopes.
type StatusChangePayload struct {
	SessionID string               `json:"sessionId,omitempty"`
	TicketID  string               `json:"ticketId,omitempty"`
	From      domain.SessionStatus `json:"from,omitempty"`
	To        domain.SessionStatus `json:"to"`
	Reason    string               `json:"reason,omitempty"`
}

// AssignmentChangePayload accompanies assignment_change envelopes.
type AssignmentChangePayload struct {
	SessionID    string  `json:"sessionId,omitempty"`
	TicketID     string  `json:"ticketId,omitempty"`
	AssigneeID   string  `json:"assigneeId"`
	AssigneeName string  `json:"assigneeName,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// ChatMessagePayload accompanies chat_message envelopes.
type ChatMessagePayload struct {
	Message domain.Message `json:"message"`
}

// SystemAlertPayload accompanies system_alert envelopes.
type SystemAlertPayload struct {
	Code     string `json:"code"`
	Severity string `json:"severity,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// HeartbeatPayload accompanies heartbeat envelopes.
type HeartbeatPayload struct {
	At time.Time `json:"at"`
}

// AlertConnectionExhausted is the system_alert code for the terminal
// reconnect-budget-spent condition.
const AlertConnectionExhausted = "connection_exhausted"

// NewEnvelope builds an envelope with a marshaled payload.
func NewEnvelope(t EventType, payload any, tenantID string) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{
		Type:      t,
		Payload:   raw,
		Timestamp: time.Now(),
		TenantID:  tenantID,
	}, nil
}

// DecodePayload unmarshals an envelope's payload into its concrete type.
// Every wire type is matched; unknown types are an error, not a silent
// pass-through.
func DecodePayload(env Envelope) (any, error) {
	var dst any
	switch env.Type {
	case EventTicketUpdate:
		dst = &TicketUpdatePayload{}
	case EventCommentAdded:
		dst = &CommentAddedPayload{}
	case EventStatusChange:
		dst = &StatusChangePayload{}
	case EventAssignmentChange:
		dst = &AssignmentChangePayload{}
	case EventChatMessage:
		dst = &ChatMessagePayload{}
	case EventSystemAlert:
		dst = &SystemAlertPayload{}
	case EventHeartbeat:
		dst = &HeartbeatPayload{}
	default:
		return nil, fmt.Errorf("unknown envelope type %q", env.Type)
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, dst); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	return dst, nil
}
