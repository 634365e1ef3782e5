package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// stores returns both implementations so the contract tests run against
// each.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"sqlite": NewSQLiteStore(openTestDB(t)),
		"memory": NewMemoryStore(),
	}
}

func TestTicketCreateGetUpdate(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ticket := &domain.Ticket{
				ID:          "t-1",
				Subject:     "GPS tracker offline",
				Body:        "The tracker stopped syncing yesterday",
				Category:    domain.CategoryTechnical,
				Priority:    domain.PriorityHigh,
				Status:      domain.TicketOpen,
				RequesterID: "user-1",
				Source:      "chat",
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}
			require.NoError(t, s.CreateTicket(ctx, ticket))

			got, err := s.GetTicket(ctx, "t-1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "GPS tracker offline", got.Subject)
			assert.Equal(t, domain.PriorityHigh, got.Priority)

			ticket.Status = domain.TicketAssigned
			ticket.AssigneeID = "staff-3"
			require.NoError(t, s.UpdateTicket(ctx, ticket))

			got, err = s.GetTicket(ctx, "t-1")
			require.NoError(t, err)
			assert.Equal(t, domain.TicketAssigned, got.Status)
			assert.Equal(t, "staff-3", got.AssigneeID)

			missing, err := s.GetTicket(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestUpdateMissingTicketFails(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.UpdateTicket(context.Background(), &domain.Ticket{ID: "ghost"})
			assert.Error(t, err)
		})
	}
}

func TestSessionRoundTripWithMessages(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := &domain.ChatSession{
				ID:        "s-1",
				UserID:    "user-1",
				Status:    domain.StatusActive,
				Category:  domain.CategoryBilling,
				Priority:  domain.PriorityMedium,
				CreatedAt: time.Now(),
			}
			require.NoError(t, s.SaveSession(ctx, sess))

			for i, body := range []string{"hello", "I was double charged", "please help"} {
				require.NoError(t, s.AppendMessage(ctx, domain.Message{
					ID:         string(rune('a' + i)),
					SessionID:  "s-1",
					SenderID:   "user-1",
					SenderType: domain.SenderUser,
					Body:       body,
					Kind:       domain.KindText,
					Timestamp:  time.Now(),
				}))
			}

			got, err := s.GetSession(ctx, "s-1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, domain.StatusActive, got.Status)
			require.Len(t, got.Messages, 3)
			assert.Equal(t, "hello", got.Messages[0].Body)
			assert.Equal(t, "please help", got.Messages[2].Body)

			// Upsert moves status without touching history.
			sess.Status = domain.StatusEnded
			sess.Resolution = domain.ResolutionResolved
			require.NoError(t, s.SaveSession(ctx, sess))

			got, err = s.GetSession(ctx, "s-1")
			require.NoError(t, err)
			assert.Equal(t, domain.StatusEnded, got.Status)
			assert.Len(t, got.Messages, 3)
		})
	}
}

func TestMessageMetaSurvives(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SaveSession(ctx, &domain.ChatSession{
				ID: "s-2", UserID: "u", Status: domain.StatusActive, CreatedAt: time.Now(),
			}))
			require.NoError(t, s.AppendMessage(ctx, domain.Message{
				ID: "m-1", SessionID: "s-2", SenderID: "sys",
				SenderType: domain.SenderSystem, Kind: domain.KindEscalation,
				Body: "escalated",
				Meta: &domain.MessageMeta{EscalationReason: "frustrated customer", TicketID: "t-9"},
			}))

			got, err := s.GetSession(ctx, "s-2")
			require.NoError(t, err)
			require.Len(t, got.Messages, 1)
			require.NotNil(t, got.Messages[0].Meta)
			assert.Equal(t, "frustrated customer", got.Messages[0].Meta.EscalationReason)
			assert.Equal(t, "t-9", got.Messages[0].Meta.TicketID)
		})
	}
}

func TestOutcomeCounting(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.RecordOutcome(ctx, "s-1", domain.CategoryBilling, domain.PriorityHigh, true))
			require.NoError(t, s.RecordOutcome(ctx, "s-2", domain.CategoryBilling, domain.PriorityLow, false))
			require.NoError(t, s.RecordOutcome(ctx, "s-3", domain.CategoryTechnical, domain.PriorityLow, true))

			billing, err := s.SimilarOutcomes(ctx, domain.CategoryBilling)
			require.NoError(t, err)
			assert.Equal(t, domain.HistoricalOutcomes{SimilarCount: 2, EscalatedCount: 1}, billing)

			empty, err := s.SimilarOutcomes(ctx, "grooming")
			require.NoError(t, err)
			assert.Zero(t, empty.SimilarCount)
		})
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	// Re-running on the same handle applies nothing new.
	require.NoError(t, db.migrate())
}
