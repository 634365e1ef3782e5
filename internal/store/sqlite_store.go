package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paddockpulse/stablehand/internal/domain"
)

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *DB
}

// NewSQLiteStore creates a store using the given database.
func NewSQLiteStore(db *DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTicket persists a new ticket record.
func (s *SQLiteStore) CreateTicket(ctx context.Context, t *domain.Ticket) error {
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO tickets
		 (id, tenant_id, subject, body, category, priority, status, requester_id, assignee_id, session_id, source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TenantID, t.Subject, t.Body, t.Category, string(t.Priority),
		string(t.Status), t.RequesterID, t.AssigneeID, t.SessionID, t.Source,
		t.CreatedAt.UTC().Format(time.DateTime), t.UpdatedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("creating ticket %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTicket rewrites a ticket's mutable fields.
func (s *SQLiteStore) UpdateTicket(ctx context.Context, t *domain.Ticket) error {
	res, err := s.db.sql.ExecContext(ctx,
		`UPDATE tickets
		 SET subject = ?, body = ?, category = ?, priority = ?, status = ?,
		     assignee_id = ?, session_id = ?, updated_at = ?
		 WHERE id = ?`,
		t.Subject, t.Body, t.Category, string(t.Priority), string(t.Status),
		t.AssigneeID, t.SessionID, time.Now().UTC().Format(time.DateTime), t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating ticket %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating ticket %s: not found", t.ID)
	}
	return nil
}

// GetTicket loads one ticket, or nil if absent.
func (s *SQLiteStore) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	var t domain.Ticket
	var priority, status, createdAt, updatedAt string

	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, tenant_id, subject, body, category, priority, status, requester_id, assignee_id, session_id, source, created_at, updated_at
		 FROM tickets WHERE id = ?`, id,
	).Scan(&t.ID, &t.TenantID, &t.Subject, &t.Body, &t.Category, &priority,
		&status, &t.RequesterID, &t.AssigneeID, &t.SessionID, &t.Source,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading ticket %s: %w", id, err)
	}

	t.Priority = domain.Priority(priority)
	t.Status = domain.TicketStatus(status)
	t.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	t.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return &t, nil
}

// SaveSession upserts a session snapshot. Messages travel separately via
// AppendMessage.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *domain.ChatSession) error {
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO chat_sessions
		 (id, tenant_id, user_id, user_name, agent_id, status, category, priority, escalation_score, ticket_id, resolution, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   agent_id = excluded.agent_id,
		   status = excluded.status,
		   category = excluded.category,
		   priority = excluded.priority,
		   escalation_score = excluded.escalation_score,
		   ticket_id = excluded.ticket_id,
		   resolution = excluded.resolution,
		   updated_at = excluded.updated_at`,
		sess.ID, sess.TenantID, sess.UserID, sess.UserName, sess.AgentID,
		string(sess.Status), sess.Category, string(sess.Priority),
		sess.EscalationScore, sess.TicketID, string(sess.Resolution),
		sess.CreatedAt.UTC().Format(time.DateTime), time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}

// AppendMessage adds one message to a session's history.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg domain.Message) error {
	var meta sql.NullString
	if msg.Meta != nil {
		if data, err := json.Marshal(msg.Meta); err == nil {
			meta = sql.NullString{String: string(data), Valid: true}
		}
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO session_messages (message_id, session_id, sender_id, sender_name, sender_type, body, kind, meta, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.SenderID, msg.SenderName,
		string(msg.SenderType), msg.Body, string(msg.Kind), meta,
		ts.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("appending message to session %s: %w", msg.SessionID, err)
	}
	return nil
}

// GetSession loads a session with its ordered message history, or nil.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	var sess domain.ChatSession
	var status, priority, resolution, createdAt, updatedAt string

	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, tenant_id, user_id, user_name, agent_id, status, category, priority, escalation_score, ticket_id, resolution, created_at, updated_at
		 FROM chat_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.TenantID, &sess.UserID, &sess.UserName,
		&sess.AgentID, &status, &sess.Category, &priority,
		&sess.EscalationScore, &sess.TicketID, &resolution,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	sess.Status = domain.SessionStatus(status)
	sess.Priority = domain.Priority(priority)
	sess.Resolution = domain.Resolution(resolution)
	sess.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	sess.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)

	msgs, err := s.loadMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Messages = msgs
	return &sess, nil
}

func (s *SQLiteStore) loadMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT message_id, session_id, sender_id, sender_name, sender_type, body, kind, meta, timestamp
		 FROM session_messages WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading messages for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var senderType, kind, ts string
		var meta sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &m.SenderID, &m.SenderName,
			&senderType, &m.Body, &kind, &meta, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.SenderType = domain.SenderType(senderType)
		m.Kind = domain.MessageKind(kind)
		m.Timestamp, _ = time.Parse(time.DateTime, ts)
		if meta.Valid {
			var mm domain.MessageMeta
			if json.Unmarshal([]byte(meta.String), &mm) == nil {
				m.Meta = &mm
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// RecordOutcome stores whether a finished session escalated.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, sessionID, category string, priority domain.Priority, escalated bool) error {
	esc := 0
	if escalated {
		esc = 1
	}
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO escalation_outcomes (session_id, category, priority, escalated)
		 VALUES (?, ?, ?, ?)`,
		sessionID, category, string(priority), esc,
	)
	if err != nil {
		return fmt.Errorf("recording outcome for session %s: %w", sessionID, err)
	}
	return nil
}

// SimilarOutcomes counts past outcomes in the same category.
func (s *SQLiteStore) SimilarOutcomes(ctx context.Context, category string) (domain.HistoricalOutcomes, error) {
	var out domain.HistoricalOutcomes
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(escalated), 0)
		 FROM escalation_outcomes WHERE category = ?`, category,
	).Scan(&out.SimilarCount, &out.EscalatedCount)
	if err != nil {
		return domain.HistoricalOutcomes{}, fmt.Errorf("counting outcomes for %s: %w", category, err)
	}
	return out, nil
}
