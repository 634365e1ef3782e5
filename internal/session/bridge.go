package session

import (
	"context"
	"errors"
	"strings"

	"github.com/paddockpulse/stablehand/internal/backbone"
	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/logging"
)

// Subscriber is the slice of the backbone manager the bridge needs.
type Subscriber interface {
	Subscribe(t backbone.EventType, fn backbone.Handler) func()
}

// Bridge drives the coordinator from inbound backbone traffic. Remote
// clients speak envelopes; the bridge maps them onto session operations:
//
//	chat_message (user, text)        → Post, or Start for an unknown session
//	chat_message (user, escalation)  → Escalate
//	status_change (to: ended)        → End
//
// Envelopes the bridge does not understand are ignored; other subscribers
// may still want them.
type Bridge struct {
	coord   *Coordinator
	log     *logging.Logger
	cancels []func()
}

// NewBridge creates a bridge over the coordinator.
func NewBridge(coord *Coordinator, log *logging.Logger) *Bridge {
	return &Bridge{coord: coord, log: log.Sub("bridge")}
}

// Start subscribes to the backbone. Call Stop to detach.
func (b *Bridge) Start(sub Subscriber) {
	b.cancels = append(b.cancels,
		sub.Subscribe(backbone.EventChatMessage, b.onChatMessage),
		sub.Subscribe(backbone.EventStatusChange, b.onStatusChange),
	)
}

// Stop detaches from the backbone.
func (b *Bridge) Stop() {
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

func (b *Bridge) onChatMessage(env backbone.Envelope) {
	payload, err := backbone.DecodePayload(env)
	if err != nil {
		b.log.Warn().Err(err).Msg("undecodable chat envelope")
		return
	}
	msg := payload.(*backbone.ChatMessagePayload).Message
	if msg.SenderType != domain.SenderUser {
		// Our own broadcasts echo back through the backbone.
		return
	}

	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = env.SessionID
	}
	if msg.ID != "" && b.coord.HasMessage(sessionID, msg.ID) {
		return
	}
	ctx := context.Background()

	if msg.Kind == domain.KindEscalation {
		reason := msg.Body
		if reason == "" {
			reason = "user requested an agent"
		}
		if _, err := b.coord.Escalate(ctx, sessionID, reason); err != nil &&
			!errors.Is(err, domain.ErrDoubleAssignment) {
			b.log.Warn().Err(err).Str("sessionId", sessionID).Msg("escalation request failed")
		}
		return
	}

	_, err = b.coord.Post(ctx, sessionID, msg.SenderID, msg.SenderName, msg.SenderType, msg.Body)
	if errors.Is(err, domain.ErrSessionNotFound) {
		_, err = b.coord.Start(ctx, StartRequest{
			SessionID: sessionID,
			UserID:    msg.SenderID,
			UserName:  msg.SenderName,
			Body:      msg.Body,
		})
	}
	if err != nil {
		b.log.Warn().Err(err).Str("sessionId", sessionID).Msg("inbound message dropped")
	}
}

func (b *Bridge) onStatusChange(env backbone.Envelope) {
	payload, err := backbone.DecodePayload(env)
	if err != nil {
		return
	}
	change := payload.(*backbone.StatusChangePayload)
	if change.To != domain.StatusEnded {
		return
	}

	resolution := domain.ResolutionAbandoned
	if strings.Contains(strings.ToLower(change.Reason), "resolved") {
		resolution = domain.ResolutionResolved
	}

	err = b.coord.End(context.Background(), change.SessionID, resolution)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		b.log.Warn().Err(err).Str("sessionId", change.SessionID).Msg("remote end failed")
	}
}
