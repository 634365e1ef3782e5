package store

import (
	"context"

	"github.com/paddockpulse/stablehand/internal/domain"
)

// Store is the ticket/session persistence boundary consumed by the
// coordinator and the intake poller. The schema behind it belongs to this
// package; callers only see domain types.
type Store interface {
	// CreateTicket persists a new ticket record.
	CreateTicket(ctx context.Context, t *domain.Ticket) error

	// UpdateTicket rewrites a ticket's mutable fields.
	UpdateTicket(ctx context.Context, t *domain.Ticket) error

	// GetTicket loads one ticket, or domain.ErrSessionNotFound-style nil.
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)

	// SaveSession upserts a session snapshot (without messages).
	SaveSession(ctx context.Context, s *domain.ChatSession) error

	// AppendMessage adds one message to a session's history.
	AppendMessage(ctx context.Context, msg domain.Message) error

	// GetSession loads a session with its ordered message history.
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)

	// RecordOutcome stores whether a finished session escalated.
	RecordOutcome(ctx context.Context, sessionID, category string, priority domain.Priority, escalated bool) error

	// SimilarOutcomes counts past outcomes in the same category.
	SimilarOutcomes(ctx context.Context, category string) (domain.HistoricalOutcomes, error)
}
