package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddockpulse/stablehand/internal/backbone"
	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

type fakeAdapter struct {
	name string
	err  error

	mu     sync.Mutex
	events []Event
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Notify(_ context.Context, ev Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return a.err
}

func (a *fakeAdapter) seen() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Event(nil), a.events...)
}

// fakeSub hands the subscribed handler back to the test.
type fakeSub struct {
	handler backbone.Handler
}

func (s *fakeSub) Subscribe(t backbone.EventType, fn backbone.Handler) func() {
	s.handler = fn
	return func() { s.handler = nil }
}

func mustEnvelope(t *testing.T, typ backbone.EventType, payload any) backbone.Envelope {
	t.Helper()
	env, err := backbone.NewEnvelope(typ, payload, "yard-1")
	require.NoError(t, err)
	return env
}

func TestTranslateAssignment(t *testing.T) {
	env := mustEnvelope(t, backbone.EventAssignmentChange, backbone.AssignmentChangePayload{
		SessionID:    "s1",
		AssigneeName: "Rosa",
		Reason:       "billing specialist",
	})

	ev, ok := Translate(env)
	require.True(t, ok)
	assert.Equal(t, KindAssignment, ev.Kind)
	assert.Equal(t, "s1", ev.SessionID)
	assert.Contains(t, ev.Text, "Rosa")
}

func TestTranslateStatusChanges(t *testing.T) {
	queued := mustEnvelope(t, backbone.EventStatusChange, backbone.StatusChangePayload{
		SessionID: "s1",
		To:        domain.StatusWaitingForAgent,
	})
	ev, ok := Translate(queued)
	require.True(t, ok)
	assert.Equal(t, KindQueued, ev.Kind)

	ended := mustEnvelope(t, backbone.EventStatusChange, backbone.StatusChangePayload{
		SessionID: "s1",
		To:        domain.StatusEnded,
	})
	ev, ok = Translate(ended)
	require.True(t, ok)
	assert.Equal(t, KindEnded, ev.Kind)

	// A transition into active is routine, not notification-worthy.
	active := mustEnvelope(t, backbone.EventStatusChange, backbone.StatusChangePayload{
		SessionID: "s1",
		To:        domain.StatusActive,
	})
	_, ok = Translate(active)
	assert.False(t, ok)
}

func TestTranslateSystemAlert(t *testing.T) {
	env := mustEnvelope(t, backbone.EventSystemAlert, backbone.SystemAlertPayload{
		Code:     backbone.AlertConnectionExhausted,
		Severity: "critical",
		Detail:   "reconnect budget spent",
	})

	ev, ok := Translate(env)
	require.True(t, ok)
	assert.Equal(t, KindAlert, ev.Kind)
	assert.Equal(t, "critical", ev.Severity)
	assert.Contains(t, ev.Text, backbone.AlertConnectionExhausted)
}

func TestTranslateIgnoresRoutineTraffic(t *testing.T) {
	chat := mustEnvelope(t, backbone.EventChatMessage, backbone.ChatMessagePayload{})
	_, ok := Translate(chat)
	assert.False(t, ok)

	hb := mustEnvelope(t, backbone.EventHeartbeat, backbone.HeartbeatPayload{})
	_, ok = Translate(hb)
	assert.False(t, ok)
}

func TestFanoutDeliversToAllAdapters(t *testing.T) {
	good := &fakeAdapter{name: "good"}
	bad := &fakeAdapter{name: "bad", err: errors.New("sink down")}

	f := NewFanout([]Adapter{bad, good}, testLogger())
	sub := &fakeSub{}
	f.Start(sub)
	require.NotNil(t, sub.handler)

	sub.handler(mustEnvelope(t, backbone.EventAssignmentChange, backbone.AssignmentChangePayload{
		SessionID:    "s1",
		AssigneeName: "Rosa",
	}))
	f.Stop()

	// The failing sink does not stop the healthy one.
	assert.Len(t, good.seen(), 1)
	assert.Len(t, bad.seen(), 1)
	assert.Nil(t, sub.handler)
}

func TestFanoutSkipsUntranslatableEnvelopes(t *testing.T) {
	a := &fakeAdapter{name: "a"}
	f := NewFanout([]Adapter{a}, testLogger())
	sub := &fakeSub{}
	f.Start(sub)

	sub.handler(mustEnvelope(t, backbone.EventHeartbeat, backbone.HeartbeatPayload{}))
	f.Stop()

	assert.Empty(t, a.seen())
}
