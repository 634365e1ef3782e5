// Package notify fans support events out to external sinks: an ops IRC
// channel, a Kafka topic for downstream consumers, and the service log.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paddockpulse/stablehand/internal/backbone"
	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/logging"
)

// Event is a sink-agnostic notification derived from backbone traffic.
type Event struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"sessionId,omitempty"`
	TicketID  string    `json:"ticketId,omitempty"`
	Severity  string    `json:"severity,omitempty"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

// Notification kinds.
const (
	KindAssignment = "assignment"
	KindQueued     = "queued"
	KindEnded      = "ended"
	KindAlert      = "alert"
)

// Adapter delivers one event to one sink.
type Adapter interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// Subscriber is the slice of the backbone manager the fan-out needs.
type Subscriber interface {
	Subscribe(t backbone.EventType, fn backbone.Handler) func()
}

// Fanout listens to the backbone and pushes noteworthy events to every
// adapter. A failing or slow adapter never blocks the others; each
// delivery runs on its own goroutine with a bounded timeout.
type Fanout struct {
	adapters []Adapter
	log      *logging.Logger
	timeout  time.Duration
	cancel   func()
	wg       sync.WaitGroup
}

// NewFanout creates a fan-out over the given adapters.
func NewFanout(adapters []Adapter, log *logging.Logger) *Fanout {
	return &Fanout{
		adapters: adapters,
		log:      log.Sub("notify"),
		timeout:  10 * time.Second,
	}
}

// Start subscribes to the backbone. Call Stop to unsubscribe.
func (f *Fanout) Start(sub Subscriber) {
	f.cancel = sub.Subscribe(backbone.EventWildcard, f.handle)
	f.log.Info().Int("adapters", len(f.adapters)).Msg("notification fan-out started")
}

// Stop unsubscribes from the backbone and waits for in-flight deliveries.
// Safe to call twice.
func (f *Fanout) Stop() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.wg.Wait()
}

func (f *Fanout) handle(env backbone.Envelope) {
	ev, ok := Translate(env)
	if !ok {
		return
	}
	for _, a := range f.adapters {
		f.wg.Add(1)
		go f.deliver(a, ev)
	}
}

func (f *Fanout) deliver(a Adapter, ev Event) {
	defer f.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := a.Notify(ctx, ev); err != nil {
		f.log.Warn().Err(err).
			Str("adapter", a.Name()).
			Str("kind", ev.Kind).
			Msg("notification delivery failed")
	}
}

// Translate converts a backbone envelope into a notification. Routine
// traffic (chat messages, heartbeats) produces none.
func Translate(env backbone.Envelope) (Event, bool) {
	payload, err := backbone.DecodePayload(env)
	if err != nil {
		return Event{}, false
	}

	switch p := payload.(type) {
	case *backbone.AssignmentChangePayload:
		return Event{
			Kind:      KindAssignment,
			SessionID: p.SessionID,
			TicketID:  p.TicketID,
			Text:      fmt.Sprintf("session %s assigned to %s (%s)", p.SessionID, p.AssigneeName, p.Reason),
			At:        env.Timestamp,
		}, true

	case *backbone.StatusChangePayload:
		switch p.To {
		case domain.StatusWaitingForAgent:
			return Event{
				Kind:      KindQueued,
				SessionID: p.SessionID,
				TicketID:  p.TicketID,
				Text:      fmt.Sprintf("session %s is waiting for an agent (%s)", p.SessionID, p.Reason),
				At:        env.Timestamp,
			}, true
		case domain.StatusEnded:
			return Event{
				Kind:      KindEnded,
				SessionID: p.SessionID,
				TicketID:  p.TicketID,
				Text:      fmt.Sprintf("session %s ended", p.SessionID),
				At:        env.Timestamp,
			}, true
		}
		return Event{}, false

	case *backbone.SystemAlertPayload:
		return Event{
			Kind:     KindAlert,
			Severity: p.Severity,
			Text:     fmt.Sprintf("system alert %s: %s", p.Code, p.Detail),
			At:       env.Timestamp,
		}, true
	}

	return Event{}, false
}
