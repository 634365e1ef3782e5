package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddockpulse/stablehand/internal/backbone"
	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/escalation"
	"github.com/paddockpulse/stablehand/internal/logging"
	"github.com/paddockpulse/stablehand/internal/roster"
	"github.com/paddockpulse/stablehand/internal/routing"
	"github.com/paddockpulse/stablehand/internal/signal"
	"github.com/paddockpulse/stablehand/internal/store"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

// captureBus records published envelopes in order.
type captureBus struct {
	mu   sync.Mutex
	envs []backbone.Envelope
}

func (b *captureBus) Publish(env backbone.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envs = append(b.envs, env)
	return nil
}

func (b *captureBus) byType(t backbone.EventType) []backbone.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []backbone.Envelope
	for _, e := range b.envs {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// testProvider classifies anything containing "unacceptable" as a
// frustrated billing dispute and everything else as calm general chatter.
func testProvider() *signal.MockProvider {
	return &signal.MockProvider{
		ClassifyFunc: func(_ context.Context, req signal.ClassifyRequest) (domain.ContentSignal, error) {
			if strings.Contains(req.Text, "unacceptable") {
				return domain.ContentSignal{
					Sentiment:         domain.SentimentFrustrated,
					Complexity:        domain.ComplexityMedium,
					SuggestedCategory: domain.CategoryBilling,
					Confidence:        0.9,
					PrioritySignals: domain.PrioritySignals{
						EscalationPhrases: []string{"speak to a manager"},
					},
				}, nil
			}
			return domain.ContentSignal{
				Sentiment:         domain.SentimentNeutral,
				Complexity:        domain.ComplexityLow,
				SuggestedCategory: domain.CategoryGeneral,
				Confidence:        0.9,
			}, nil
		},
	}
}

func agent(id string, capacity int) domain.StaffMember {
	return domain.StaffMember{
		ID:               id,
		Name:             "Agent " + id,
		Role:             domain.RoleSupportAgent,
		Specialties:      []string{"general", "billing"},
		MaxCapacity:      capacity,
		SkillLevel:       domain.SkillSenior,
		ShiftOnline:      true,
		MeanResponseTime: 10 * time.Minute,
	}
}

type fixture struct {
	coord *Coordinator
	ros   *roster.Roster
	bus   *captureBus
	st    *store.MemoryStore
}

func newFixture(t *testing.T, members ...domain.StaffMember) *fixture {
	t.Helper()
	log := testLogger()

	ros := roster.New(log)
	require.NoError(t, ros.Refresh(context.Background(), &roster.StaticProvider{Members: members}))

	bus := &captureBus{}
	st := store.NewMemoryStore()
	coord := NewCoordinator(
		Config{TenantID: "yard-1", SlotWait: 10 * time.Minute},
		ros,
		routing.NewEngine(log),
		escalation.NewPredictor(escalation.DefaultConfig()),
		signal.NewAnalyzer(testProvider(), log),
		st,
		bus,
		log,
	)
	return &fixture{coord: coord, ros: ros, bus: bus, st: st}
}

func TestStartAIFirstSession(t *testing.T) {
	f := newFixture(t, agent("a1", 3))
	ctx := context.Background()

	sess, err := f.coord.Start(ctx, StartRequest{
		UserID:   "u1",
		UserName: "Dana",
		Body:     "How do I share a horse profile with my vet?",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, sess.Status)
	assert.Equal(t, domain.CategoryGeneral, sess.Category)
	assert.Empty(t, sess.AgentID)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, domain.SenderUser, sess.Messages[0].SenderType)

	// The opening message is broadcast and persisted.
	assert.Len(t, f.bus.byType(backbone.EventChatMessage), 1)
	stored, err := f.st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Messages, 1)
}

func TestStartDirectToAgentAssignsImmediately(t *testing.T) {
	f := newFixture(t, agent("a1", 3))

	sess, err := f.coord.Start(context.Background(), StartRequest{
		UserID:        "u1",
		Body:          "I'd like to talk to a person please",
		DirectToAgent: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusWithAgent, sess.Status)
	assert.Equal(t, "a1", sess.AgentID)

	m, ok := f.ros.Get("a1")
	require.True(t, ok)
	assert.Equal(t, 1, m.CurrentWorkload)

	assert.Len(t, f.bus.byType(backbone.EventAssignmentChange), 1)
}

func TestStartDirectToAgentQueuesWhenNobodyFree(t *testing.T) {
	f := newFixture(t) // empty roster

	sess, err := f.coord.Start(context.Background(), StartRequest{
		UserID:        "u1",
		Body:          "I'd like to talk to a person please",
		DirectToAgent: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusWaitingForAgent, sess.Status)
	assert.False(t, sess.EnteredWaitingAt.IsZero())

	info, err := f.coord.Queue(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Position)
	assert.Equal(t, time.Duration(0), info.EstimatedWait)
}

func TestPostAppendsAndBroadcasts(t *testing.T) {
	f := newFixture(t, agent("a1", 3))
	ctx := context.Background()

	sess, err := f.coord.Start(ctx, StartRequest{UserID: "u1", Body: "hello"})
	require.NoError(t, err)

	msg, err := f.coord.Post(ctx, sess.ID, "assistant", "Stablehand", domain.SenderSystem, "Hi! How can I help?")
	require.NoError(t, err)
	assert.Equal(t, domain.KindText, msg.Kind)

	got, err := f.coord.Get(sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Len(t, f.bus.byType(backbone.EventChatMessage), 2)
}

func TestPostToEndedSessionRejected(t *testing.T) {
	f := newFixture(t, agent("a1", 3))
	ctx := context.Background()

	sess, err := f.coord.Start(ctx, StartRequest{UserID: "u1", Body: "hello"})
	require.NoError(t, err)
	require.NoError(t, f.coord.End(ctx, sess.ID, domain.ResolutionResolved))

	_, err = f.coord.Post(ctx, sess.ID, "u1", "", domain.SenderUser, "anyone there?")
	assert.ErrorIs(t, err, domain.ErrInvalidSessionTransition)

	got, err := f.coord.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, got.Status)
}

func TestPostUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.Post(context.Background(), "nope", "u1", "", domain.SenderUser, "hi")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAutoEscalationOnHighRisk(t *testing.T) {
	f := newFixture(t, agent("a1", 3))
	ctx := context.Background()

	// The opening message sets a billing category and critical priority, so
	// the follow-up rescore crosses the escalation threshold.
	sess, err := f.coord.Start(ctx, StartRequest{
		UserID: "u1",
		Body:   "This invoice is unacceptable, I was charged twice",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryBilling, sess.Category)
	assert.Equal(t, domain.PriorityCritical, sess.Priority)
	assert.Equal(t, domain.StatusActive, sess.Status)

	_, err = f.coord.Post(ctx, sess.ID, "u1", "", domain.SenderUser,
		"Still unacceptable. Fix it now.")
	require.NoError(t, err)

	got, err := f.coord.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWithAgent, got.Status)
	assert.Equal(t, "a1", got.AgentID)
	assert.Greater(t, got.EscalationScore, 0.6)

	// Handoff marker visible in the transcript.
	last := got.Messages[len(got.Messages)-1]
	assert.Equal(t, domain.KindHandoff, last.Kind)
}

func TestEscalateAssignsBestCandidate(t *testing.T) {
	f := newFixture(t, agent("a1", 3), agent("a2", 3))
	ctx := context.Background()

	sess, err := f.coord.Start(ctx, StartRequest{UserID: "u1", Body: "hello"})
	require.NoError(t, err)

	got, err := f.coord.Escalate(ctx, sess.ID, "user asked for a human")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWithAgent, got.Status)
	assert.NotEmpty(t, got.AgentID)
}

func TestEscalateQueuesWhenNoCandidate(t *testing.T) {
	f := newFixture(t) // nobody on shift
	ctx := context.Background()

	sess, err := f.coord.Start(ctx, StartRequest{UserID: "u1", Body: "hello"})
	require.NoError(t, err)

	got, err := f.coord.Escalate(ctx, sess.ID, "user asked for a human")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForAgent, got.Status)

	changes := f.bus.byType(backbone.EventStatusChange)
	require.NotEmpty(t, changes)
}

func TestEscalateAlreadyWithAgent(t *testing.T) {
	f := newFixture(t, agent("a1", 3))
	ctx := context.Background()

	sess, err := f.coord.Start(ctx, StartRequest{UserID: "u1", Body: "hello"})
	require.NoError(t, err)
	_, err = f.coord.Escalate(ctx, sess.ID, "first")
	require.NoError(t, err)

	_, err = f.coord.Escalate(ctx, sess.ID, "second")
	assert.ErrorIs(t, err, domain.ErrDoubleAssignment)

	// Workload unchanged by the rejected call.
	m, _ := f.ros.Get("a1")
	assert.Equal(t, 1, m.CurrentWorkload)
}

func TestEscalateSkipsFullAgents(t *testing.T) {
	// a1 outranks a2 on equal scores (lower ID) but is at capacity, so the
	// assignment lands on a2.
	f := newFixture(t, agent("a1", 1), agent("a2", 3))
	ctx := context.Background()

	sess, err := f.coord.Start(ctx, StartRequest{UserID: "u1", Body: "hello"})
	require.NoError(t, err)

	// Occupy a1 fully.
	require.NoError(t, f.ros.Assign("a1"))

	got, err := f.coord.Escalate(ctx, sess.ID, "user asked for a human")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AgentID)
}

func TestQueueOrderingAndWaitEstimate(t *testing.T) {
	f := newFixture(t) // everything queues
	ctx := context.Background()

	var ids []string
	for _, body := range []string{"first", "second", "third"} {
		sess, err := f.coord.Start(ctx, StartRequest{UserID: "u-" + body, Body: body, DirectToAgent: true})
		require.NoError(t, err)
		ids = append(ids, sess.ID)
		time.Sleep(2 * time.Millisecond)
	}

	for i, id := range ids {
		info, err := f.coord.Queue(id)
		require.NoError(t, err)
		assert.Equal(t, i, info.Position)
		assert.Equal(t, time.Duration(i)*10*time.Minute, info.EstimatedWait)
	}
}

func TestQueueInfoOnNonWaitingSession(t *testing.T) {
	f := newFixture(t, agent("a1", 3))
	sess, err := f.coord.Start(context.Background(), StartRequest{UserID: "u1", Body: "hello"})
	require.NoError(t, err)

	_, err = f.coord.Queue(sess.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidSessionTransition)
}

func TestEndIdempotentReleasesWorkloadOnce(t *testing.T) {
	f := newFixture(t, agent("a1", 3))
	ctx := context.Background()

	sess, err := f.coord.Start(ctx, StartRequest{UserID: "u1", Body: "hello", DirectToAgent: true})
	require.NoError(t, err)
	require.Equal(t, "a1", sess.AgentID)

	require.NoError(t, f.coord.End(ctx, sess.ID, domain.ResolutionResolved))
	require.NoError(t, f.coord.End(ctx, sess.ID, domain.ResolutionAbandoned))

	m, _ := f.ros.Get("a1")
	assert.Equal(t, 0, m.CurrentWorkload)

	got, err := f.coord.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, got.Status)
	assert.Equal(t, domain.ResolutionResolved, got.Resolution)

	// Exactly one recorded outcome.
	hist, err := f.st.SimilarOutcomes(ctx, got.Category)
	require.NoError(t, err)
	assert.Equal(t, 1, hist.SimilarCount)
	assert.Equal(t, 1, hist.EscalatedCount)
}

func TestEndOffersFreedSlotToLongestWaiter(t *testing.T) {
	f := newFixture(t, agent("a1", 1))
	ctx := context.Background()

	active, err := f.coord.Start(ctx, StartRequest{UserID: "u0", Body: "hello", DirectToAgent: true})
	require.NoError(t, err)
	require.Equal(t, "a1", active.AgentID)

	waitB, err := f.coord.Start(ctx, StartRequest{UserID: "u1", Body: "me too", DirectToAgent: true})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	waitC, err := f.coord.Start(ctx, StartRequest{UserID: "u2", Body: "me three", DirectToAgent: true})
	require.NoError(t, err)

	require.NoError(t, f.coord.End(ctx, active.ID, domain.ResolutionResolved))

	b, err := f.coord.Get(waitB.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWithAgent, b.Status)
	assert.Equal(t, "a1", b.AgentID)

	c, err := f.coord.Get(waitC.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForAgent, c.Status)
}

func TestEndUnknownSession(t *testing.T) {
	f := newFixture(t)
	err := f.coord.End(context.Background(), "nope", domain.ResolutionResolved)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestCounts(t *testing.T) {
	f := newFixture(t, agent("a1", 1))
	ctx := context.Background()

	_, err := f.coord.Start(ctx, StartRequest{UserID: "u1", Body: "hi"})
	require.NoError(t, err)
	_, err = f.coord.Start(ctx, StartRequest{UserID: "u2", Body: "hi", DirectToAgent: true})
	require.NoError(t, err)
	_, err = f.coord.Start(ctx, StartRequest{UserID: "u3", Body: "hi", DirectToAgent: true})
	require.NoError(t, err)

	counts := f.coord.Counts()
	assert.Equal(t, 1, counts[domain.StatusActive])
	assert.Equal(t, 1, counts[domain.StatusWithAgent])
	assert.Equal(t, 1, counts[domain.StatusWaitingForAgent])
}
