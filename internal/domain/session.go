package domain

import "time"

// SessionStatus is a chat session's position in its lifecycle.
//
// Transitions: waiting → active → waiting_for_agent → with_agent → ended.
// AI-first sessions start active; direct-to-human requests start
// waiting_for_agent. "ended" is terminal.
type SessionStatus string

const (
	StatusWaiting         SessionStatus = "waiting"
	StatusActive          SessionStatus = "active"
	StatusWaitingForAgent SessionStatus = "waiting_for_agent"
	StatusWithAgent       SessionStatus = "with_agent"
	StatusEnded           SessionStatus = "ended"
)

// Resolution records how an ended session terminated.
type Resolution string

const (
	ResolutionResolved  Resolution = "resolved"
	ResolutionAbandoned Resolution = "abandoned"
)

// SenderType identifies who authored a message.
type SenderType string

const (
	SenderUser   SenderType = "user"
	SenderSystem SenderType = "system"
	SenderAgent  SenderType = "agent"
)

// MessageKind distinguishes ordinary text from lifecycle markers.
type MessageKind string

const (
	KindText       MessageKind = "text"
	KindSystem     MessageKind = "system"
	KindHandoff    MessageKind = "handoff"
	KindEscalation MessageKind = "escalation"
)

// MessageMeta carries optional analysis context attached to a message.
type MessageMeta struct {
	Confidence       float64  `json:"confidence,omitempty"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
	EscalationReason string   `json:"escalationReason,omitempty"`
	TicketID         string   `json:"ticketId,omitempty"`
}

// Message is one turn in a chat session. Append-only within a session.
type Message struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"sessionId"`
	SenderID   string       `json:"senderId"`
	SenderName string       `json:"senderName,omitempty"`
	SenderType SenderType   `json:"senderType"`
	Body       string       `json:"body"`
	Timestamp  time.Time    `json:"timestamp"`
	Kind       MessageKind  `json:"kind"`
	Meta       *MessageMeta `json:"meta,omitempty"`
}

// ChatSession is a live support conversation.
type ChatSession struct {
	ID              string        `json:"id"`
	TenantID        string        `json:"tenantId,omitempty"`
	UserID          string        `json:"userId"`
	UserName        string        `json:"userName,omitempty"`
	AgentID         string        `json:"agentId,omitempty"`
	Status          SessionStatus `json:"status"`
	Category        string        `json:"category"`
	Priority        Priority      `json:"priority"`
	Messages        []Message     `json:"messages,omitempty"`
	EscalationScore float64       `json:"escalationScore"`
	TicketID        string        `json:"ticketId,omitempty"`
	Resolution      Resolution    `json:"resolution,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`

	// EnteredWaitingAt orders the waiting_for_agent queue.
	EnteredWaitingAt time.Time `json:"enteredWaitingAt,omitempty"`
}

// Ended reports whether the session reached its terminal state.
func (s *ChatSession) Ended() bool {
	return s.Status == StatusEnded
}
