package domain

import "time"

// Priority is a ticket's urgency tier.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Well-known ticket categories. Categories are open-ended strings; these are
// the ones the routing and escalation rules treat specially.
const (
	CategoryBilling   = "billing"
	CategoryTechnical = "technical"
	CategoryAISupport = "ai_support"
	CategoryGeneral   = "general"
)

// TicketStatus tracks a ticket through its lifecycle.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketAssigned   TicketStatus = "assigned"
	TicketEscalated  TicketStatus = "escalated"
	TicketResolved   TicketStatus = "resolved"
)

// Ticket is a support work item.
type Ticket struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenantId,omitempty"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Category    string       `json:"category"`
	Priority    Priority     `json:"priority"`
	Status      TicketStatus `json:"status"`
	RequesterID string       `json:"requesterId"`
	AssigneeID  string       `json:"assigneeId,omitempty"`
	SessionID   string       `json:"sessionId,omitempty"`
	Source      string       `json:"source,omitempty"` // "chat", "email", "api"
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
