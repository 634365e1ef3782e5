// Package session manages live chat sessions: lifecycle, agent assignment,
// queueing, and event broadcast.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paddockpulse/stablehand/internal/backbone"
	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/escalation"
	"github.com/paddockpulse/stablehand/internal/logging"
	"github.com/paddockpulse/stablehand/internal/roster"
	"github.com/paddockpulse/stablehand/internal/routing"
	"github.com/paddockpulse/stablehand/internal/signal"
	"github.com/paddockpulse/stablehand/internal/store"
)

// Publisher is the slice of the backbone manager the coordinator needs.
type Publisher interface {
	Publish(backbone.Envelope) error
}

// Config tunes the coordinator.
type Config struct {
	TenantID string

	// SlotWait is the estimated handling time of one queue slot, used for
	// wait estimates.
	SlotWait time.Duration
}

func (c *Config) withDefaults() {
	if c.SlotWait <= 0 {
		c.SlotWait = 5 * time.Minute
	}
}

// StartRequest opens a new chat session.
type StartRequest struct {
	UserID   string
	UserName string
	Body     string

	// SessionID pins the session's identity, for sessions originated by a
	// remote client. Empty means a fresh ID.
	SessionID string

	// DirectToAgent skips the AI stage and queues for a human straight
	// away.
	DirectToAgent bool
}

// QueueInfo describes a session's place in the waiting_for_agent queue.
type QueueInfo struct {
	Position      int
	EstimatedWait time.Duration
}

// Coordinator owns the chat-session registry. One mutex guards the
// registry; workload commits go through the roster's own lock, and the
// scoring read plus assignment commit for a given session happen without
// releasing the registry lock, so concurrent sessions cannot double-book
// an agent past capacity.
type Coordinator struct {
	cfg       Config
	roster    *roster.Roster
	engine    *routing.Engine
	predictor *escalation.Predictor
	analyzer  *signal.Analyzer
	store     store.Store
	bus       Publisher
	log       *logging.Logger

	mu       sync.Mutex
	sessions map[string]*domain.ChatSession
}

// NewCoordinator wires the session layer together.
func NewCoordinator(
	cfg Config,
	r *roster.Roster,
	engine *routing.Engine,
	predictor *escalation.Predictor,
	analyzer *signal.Analyzer,
	st store.Store,
	bus Publisher,
	log *logging.Logger,
) *Coordinator {
	cfg.withDefaults()
	return &Coordinator{
		cfg:       cfg,
		roster:    r,
		engine:    engine,
		predictor: predictor,
		analyzer:  analyzer,
		store:     st,
		bus:       bus,
		log:       log.Sub("session"),
		sessions:  make(map[string]*domain.ChatSession),
	}
}

// Start opens a session from the first user message. AI-first sessions
// begin active; direct-to-agent requests begin waiting_for_agent and get an
// immediate assignment attempt.
func (c *Coordinator) Start(ctx context.Context, req StartRequest) (*domain.ChatSession, error) {
	sig := c.analyzer.Analyze(ctx, req.Body, nil)

	id := req.SessionID
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now()
	sess := &domain.ChatSession{
		ID:        id,
		TenantID:  c.cfg.TenantID,
		UserID:    req.UserID,
		UserName:  req.UserName,
		Status:    domain.StatusActive,
		Category:  sig.SuggestedCategory,
		Priority:  routing.SuggestPriority(sig),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.DirectToAgent {
		sess.Status = domain.StatusWaitingForAgent
		sess.EnteredWaitingAt = now
	}

	msg := domain.Message{
		ID:         uuid.New().String(),
		SessionID:  sess.ID,
		SenderID:   req.UserID,
		SenderName: req.UserName,
		SenderType: domain.SenderUser,
		Body:       req.Body,
		Timestamp:  now,
		Kind:       domain.KindText,
		Meta:       &domain.MessageMeta{Confidence: sig.Confidence},
	}
	sess.Messages = append(sess.Messages, msg)

	c.mu.Lock()
	if _, exists := c.sessions[sess.ID]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("start session: %s already exists", sess.ID)
	}
	c.sessions[sess.ID] = sess

	// The session row and opening message must exist before an assignment
	// can write its handoff message.
	if err := c.store.SaveSession(ctx, sess); err != nil {
		delete(c.sessions, sess.ID)
		c.mu.Unlock()
		return nil, fmt.Errorf("start session %s: %w", sess.ID, err)
	}
	if err := c.store.AppendMessage(ctx, msg); err != nil {
		delete(c.sessions, sess.ID)
		c.mu.Unlock()
		return nil, fmt.Errorf("start session %s: %w", sess.ID, err)
	}

	if req.DirectToAgent {
		// Someone may be free right now; only queue when nobody is.
		c.tryAssignLocked(ctx, sess, sig, "direct agent request")
	}
	snapshot := *sess
	c.mu.Unlock()

	// Re-save: the assignment attempt may have changed status or agent.
	if err := c.store.SaveSession(ctx, &snapshot); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sess.ID).Msg("session snapshot save failed")
	}

	c.publishMessage(snapshot, msg)
	c.log.Info().
		Str("sessionId", sess.ID).
		Str("user", req.UserID).
		Str("status", string(snapshot.Status)).
		Str("category", snapshot.Category).
		Msg("session started")

	return &snapshot, nil
}

// Post appends a user or agent message to a live session, rescores
// escalation risk, and auto-escalates an AI-stage session when the
// predictor says so. Messaging an ended session is rejected and changes
// nothing.
func (c *Coordinator) Post(ctx context.Context, sessionID, senderID, senderName string, senderType domain.SenderType, body string) (*domain.Message, error) {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("post to session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if sess.Ended() {
		c.mu.Unlock()
		return nil, fmt.Errorf("post to session %s: %w", sessionID, domain.ErrInvalidSessionTransition)
	}

	msg := domain.Message{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		SenderID:   senderID,
		SenderName: senderName,
		SenderType: senderType,
		Body:       body,
		Timestamp:  time.Now(),
		Kind:       domain.KindText,
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = msg.Timestamp
	if err := c.store.AppendMessage(ctx, msg); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sessionID).Msg("message save failed")
	}

	// AI engagement wakes a waiting session.
	if sess.Status == domain.StatusWaiting && senderType != domain.SenderUser {
		sess.Status = domain.StatusActive
	}

	var sig domain.ContentSignal
	rescore := senderType == domain.SenderUser
	if rescore {
		sig = c.analyzer.Analyze(ctx, body, recentBodies(sess, 5))
		history, err := c.store.SimilarOutcomes(ctx, sess.Category)
		if err != nil {
			c.log.Warn().Err(err).Str("sessionId", sessionID).Msg("history lookup failed, scoring without it")
			history = domain.HistoricalOutcomes{}
		}
		pred := c.predictor.Predict(ticketView(sess), sig, history)
		sess.EscalationScore = pred.Probability

		if pred.ShouldEscalate && sess.Status == domain.StatusActive {
			c.log.Info().
				Str("sessionId", sessionID).
				Float64("probability", pred.Probability).
				Msg("auto-escalating session")
			c.escalateLocked(ctx, sess, sig, "predicted escalation: "+firstOr(pred.Reasoning, "risk threshold crossed"))
		}
	}
	snapshot := *sess
	c.mu.Unlock()

	if err := c.store.SaveSession(ctx, &snapshot); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sessionID).Msg("session snapshot save failed")
	}

	c.publishMessage(snapshot, msg)
	return &msg, nil
}

// Escalate hands the session to a human: best available agent if any,
// otherwise the waiting queue.
func (c *Coordinator) Escalate(ctx context.Context, sessionID, reason string) (*domain.ChatSession, error) {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("escalate session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if sess.Ended() {
		c.mu.Unlock()
		return nil, fmt.Errorf("escalate session %s: %w", sessionID, domain.ErrInvalidSessionTransition)
	}
	if sess.Status == domain.StatusWithAgent {
		c.mu.Unlock()
		return nil, fmt.Errorf("escalate session %s: %w", sessionID, domain.ErrDoubleAssignment)
	}

	sig := c.analyzer.Analyze(ctx, lastUserBody(sess), recentBodies(sess, 5))
	c.escalateLocked(ctx, sess, sig, reason)
	snapshot := *sess
	c.mu.Unlock()

	if err := c.store.SaveSession(ctx, &snapshot); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sessionID).Msg("session snapshot save failed")
	}
	return &snapshot, nil
}

// escalateLocked routes and either assigns or queues. Caller holds c.mu.
func (c *Coordinator) escalateLocked(ctx context.Context, sess *domain.ChatSession, sig domain.ContentSignal, reason string) {
	if !c.tryAssignLocked(ctx, sess, sig, reason) && sess.Status != domain.StatusWaitingForAgent {
		c.queueLocked(sess, reason)
	}
}

// tryAssignLocked asks the routing engine for the best candidate and
// commits the assignment through the roster. Capacity races with other
// sessions fall through to the alternates. Returns false when nobody could
// take the session. Caller holds c.mu.
func (c *Coordinator) tryAssignLocked(ctx context.Context, sess *domain.ChatSession, sig domain.ContentSignal, reason string) bool {
	decision, err := c.engine.Route(ticketView(sess), sig, c.roster.Snapshot())
	if err != nil {
		// No candidate: the caller queues, never drops.
		return false
	}

	assigneeID, assigneeName := decision.AssigneeID, decision.AssigneeName
	if c.roster.Assign(assigneeID) != nil {
		assigneeID = ""
		for _, alt := range decision.Alternates {
			if c.roster.Assign(alt.StaffID) == nil {
				assigneeID, assigneeName = alt.StaffID, alt.Name
				break
			}
		}
		if assigneeID == "" {
			return false
		}
	}

	sess.AgentID = assigneeID
	sess.Status = domain.StatusWithAgent
	sess.UpdatedAt = time.Now()

	handoff := domain.Message{
		ID:         uuid.New().String(),
		SessionID:  sess.ID,
		SenderID:   "system",
		SenderType: domain.SenderSystem,
		Body:       fmt.Sprintf("You are now connected to %s.", assigneeName),
		Timestamp:  time.Now(),
		Kind:       domain.KindHandoff,
		Meta:       &domain.MessageMeta{EscalationReason: reason},
	}
	sess.Messages = append(sess.Messages, handoff)
	if err := c.store.AppendMessage(ctx, handoff); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sess.ID).Msg("handoff message save failed")
	}

	c.publishAssignment(*sess, decision, assigneeID, assigneeName)
	c.log.Info().
		Str("sessionId", sess.ID).
		Str("agent", assigneeID).
		Str("reason", reason).
		Msg("session assigned")
	return true
}

// queueLocked parks the session in the waiting_for_agent queue. Caller
// holds c.mu.
func (c *Coordinator) queueLocked(sess *domain.ChatSession, reason string) {
	prev := sess.Status
	sess.Status = domain.StatusWaitingForAgent
	sess.EnteredWaitingAt = time.Now()
	sess.UpdatedAt = sess.EnteredWaitingAt

	pos := c.queuePositionLocked(sess)
	c.publishStatus(*sess, prev, reason)
	c.log.Info().
		Str("sessionId", sess.ID).
		Int("queuePosition", pos).
		Msg("session queued for agent")
}

// End closes a session. Idempotent: ending an ended session is a no-op,
// and the agent's workload is released exactly once.
func (c *Coordinator) End(ctx context.Context, sessionID string, resolution domain.Resolution) error {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("end session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if sess.Ended() {
		c.mu.Unlock()
		return nil
	}

	prev := sess.Status
	escalated := sess.AgentID != "" || prev == domain.StatusWaitingForAgent
	freedAgent := sess.AgentID

	sess.Status = domain.StatusEnded
	sess.Resolution = resolution
	sess.UpdatedAt = time.Now()

	final := domain.Message{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		SenderID:   "system",
		SenderType: domain.SenderSystem,
		Body:       "This conversation has ended (" + string(resolution) + ").",
		Timestamp:  time.Now(),
		Kind:       domain.KindSystem,
	}
	sess.Messages = append(sess.Messages, final)

	if freedAgent != "" {
		c.roster.Release(freedAgent)
	}
	snapshot := *sess

	// Offer the freed slot to whoever waited longest.
	var nextSnapshot *domain.ChatSession
	if freedAgent != "" {
		if next := c.longestWaitingLocked(); next != nil {
			sig := c.analyzer.Analyze(ctx, lastUserBody(next), nil)
			if c.tryAssignLocked(ctx, next, sig, "agent freed") {
				ns := *next
				nextSnapshot = &ns
			}
		}
	}
	c.mu.Unlock()

	if err := c.store.AppendMessage(ctx, final); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sessionID).Msg("final message save failed")
	}
	if err := c.store.SaveSession(ctx, &snapshot); err != nil {
		return fmt.Errorf("end session %s: %w", sessionID, err)
	}
	if err := c.store.RecordOutcome(ctx, sessionID, snapshot.Category, snapshot.Priority, escalated); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sessionID).Msg("outcome record failed")
	}
	if nextSnapshot != nil {
		if err := c.store.SaveSession(ctx, nextSnapshot); err != nil {
			c.log.Warn().Err(err).Str("sessionId", nextSnapshot.ID).Msg("session snapshot save failed")
		}
	}

	c.publishStatus(snapshot, prev, "session ended")
	c.log.Info().
		Str("sessionId", sessionID).
		Str("resolution", string(resolution)).
		Bool("escalated", escalated).
		Msg("session ended")
	return nil
}

// Get returns a copy of one session.
func (c *Coordinator) Get(sessionID string) (*domain.ChatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("get session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	snapshot := *sess
	snapshot.Messages = append([]domain.Message(nil), sess.Messages...)
	return &snapshot, nil
}

// HasMessage reports whether the session already holds a message with the
// given ID. The bridge uses it to drop backbone echoes of our own
// broadcasts.
func (c *Coordinator) HasMessage(sessionID, messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[sessionID]
	if !ok {
		return false
	}
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].ID == messageID {
			return true
		}
	}
	return false
}

// Queue reports a waiting session's position and estimated wait.
func (c *Coordinator) Queue(sessionID string) (QueueInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[sessionID]
	if !ok {
		return QueueInfo{}, fmt.Errorf("queue info for session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if sess.Status != domain.StatusWaitingForAgent {
		return QueueInfo{}, fmt.Errorf("queue info for session %s: %w", sessionID, domain.ErrInvalidSessionTransition)
	}

	pos := c.queuePositionLocked(sess)
	return QueueInfo{
		Position:      pos,
		EstimatedWait: time.Duration(pos) * c.cfg.SlotWait,
	}, nil
}

// Counts returns the number of sessions per status.
func (c *Coordinator) Counts() map[domain.SessionStatus]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[domain.SessionStatus]int)
	for _, s := range c.sessions {
		counts[s.Status]++
	}
	return counts
}

// queuePositionLocked counts waiters that entered the queue before this
// session. Caller holds c.mu.
func (c *Coordinator) queuePositionLocked(sess *domain.ChatSession) int {
	pos := 0
	for _, other := range c.sessions {
		if other.ID == sess.ID || other.Status != domain.StatusWaitingForAgent {
			continue
		}
		if other.EnteredWaitingAt.Before(sess.EnteredWaitingAt) {
			pos++
		}
	}
	return pos
}

// longestWaitingLocked finds the head of the waiting queue. Caller holds
// c.mu.
func (c *Coordinator) longestWaitingLocked() *domain.ChatSession {
	var next *domain.ChatSession
	for _, s := range c.sessions {
		if s.Status != domain.StatusWaitingForAgent {
			continue
		}
		if next == nil || s.EnteredWaitingAt.Before(next.EnteredWaitingAt) {
			next = s
		}
	}
	return next
}

func (c *Coordinator) publishMessage(sess domain.ChatSession, msg domain.Message) {
	env, err := backbone.NewEnvelope(backbone.EventChatMessage,
		backbone.ChatMessagePayload{Message: msg}, c.cfg.TenantID)
	if err != nil {
		return
	}
	env.SessionID = sess.ID
	env.UserID = sess.UserID
	if err := c.bus.Publish(env); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sess.ID).Msg("chat_message publish failed")
	}
}

func (c *Coordinator) publishStatus(sess domain.ChatSession, from domain.SessionStatus, reason string) {
	env, err := backbone.NewEnvelope(backbone.EventStatusChange, backbone.StatusChangePayload{
		SessionID: sess.ID,
		TicketID:  sess.TicketID,
		From:      from,
		To:        sess.Status,
		Reason:    reason,
	}, c.cfg.TenantID)
	if err != nil {
		return
	}
	env.SessionID = sess.ID
	if err := c.bus.Publish(env); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sess.ID).Msg("status_change publish failed")
	}
}

func (c *Coordinator) publishAssignment(sess domain.ChatSession, decision domain.RoutingDecision, assigneeID, assigneeName string) {
	env, err := backbone.NewEnvelope(backbone.EventAssignmentChange, backbone.AssignmentChangePayload{
		SessionID:    sess.ID,
		TicketID:     sess.TicketID,
		AssigneeID:   assigneeID,
		AssigneeName: assigneeName,
		Reason:       decision.Reason,
		Confidence:   decision.Confidence,
	}, c.cfg.TenantID)
	if err != nil {
		return
	}
	env.SessionID = sess.ID
	if err := c.bus.Publish(env); err != nil {
		c.log.Warn().Err(err).Str("sessionId", sess.ID).Msg("assignment_change publish failed")
	}
}

// ticketView projects a session as a ticket for the scoring engines.
func ticketView(sess *domain.ChatSession) domain.Ticket {
	return domain.Ticket{
		ID:          sess.TicketID,
		TenantID:    sess.TenantID,
		Category:    sess.Category,
		Priority:    sess.Priority,
		RequesterID: sess.UserID,
		SessionID:   sess.ID,
	}
}

func lastUserBody(sess *domain.ChatSession) string {
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].SenderType == domain.SenderUser {
			return sess.Messages[i].Body
		}
	}
	return ""
}

func recentBodies(sess *domain.ChatSession, n int) []string {
	start := len(sess.Messages) - n
	if start < 0 {
		start = 0
	}
	var out []string
	for _, m := range sess.Messages[start:] {
		out = append(out, m.Body)
	}
	return out
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}
