package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/paddockpulse/stablehand/internal/domain"
)

// MemoryStore is an in-memory Store for tests and stateless deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	tickets  map[string]domain.Ticket
	sessions map[string]domain.ChatSession
	messages map[string][]domain.Message
	outcomes []outcome
}

type outcome struct {
	category  string
	escalated bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:  make(map[string]domain.Ticket),
		sessions: make(map[string]domain.ChatSession),
		messages: make(map[string][]domain.Message),
	}
}

func (s *MemoryStore) CreateTicket(_ context.Context, t *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[t.ID]; exists {
		return fmt.Errorf("creating ticket %s: already exists", t.ID)
	}
	s.tickets[t.ID] = *t
	return nil
}

func (s *MemoryStore) UpdateTicket(_ context.Context, t *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[t.ID]; !exists {
		return fmt.Errorf("updating ticket %s: not found", t.ID)
	}
	s.tickets[t.ID] = *t
	return nil
}

func (s *MemoryStore) GetTicket(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *MemoryStore) SaveSession(_ context.Context, sess *domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := *sess
	snapshot.Messages = nil
	s.sessions[sess.ID] = snapshot
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	sess.Messages = append([]domain.Message(nil), s.messages[id]...)
	return &sess, nil
}

func (s *MemoryStore) RecordOutcome(_ context.Context, _, category string, _ domain.Priority, escalated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome{category: category, escalated: escalated})
	return nil
}

func (s *MemoryStore) SimilarOutcomes(_ context.Context, category string) (domain.HistoricalOutcomes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out domain.HistoricalOutcomes
	for _, o := range s.outcomes {
		if o.category == category {
			out.SimilarCount++
			if o.escalated {
				out.EscalatedCount++
			}
		}
	}
	return out, nil
}
