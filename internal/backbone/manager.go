package backbone

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/logging"
)

// ErrManagerClosed is returned by Publish after Disconnect.
var ErrManagerClosed = errors.New("backbone: manager closed")

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateExhausted    State = "exhausted"
)

// Conn is one established channel to the backbone.
type Conn interface {
	ReadEnvelope() (Envelope, error)
	WriteEnvelope(Envelope) error
	Close() error
}

// Dialer establishes backbone connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Handler receives dispatched envelopes.
type Handler func(Envelope)

// Config controls a Manager.
type Config struct {
	URL               string
	TenantID          string
	OwnerID           string // identity of the service instance owning the channel
	BaseDelay         time.Duration
	MaxAttempts       int
	HeartbeatInterval time.Duration
}

func (c *Config) withDefaults() {
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
}

type subscription struct {
	id int64
	fn Handler
}

// Snapshot is a point-in-time view of the connection state.
type Snapshot struct {
	Connected     bool
	State         State
	ConnID        string
	OwnerID       string
	LastHeartbeat time.Time
	Attempts      int
	QueueLen      int
	Subscriptions int
}

// Manager owns one logical channel to the backbone. It reconnects with
// exponential backoff up to a bounded attempt budget, heartbeats while
// connected, queues outbound envelopes while disconnected, and dispatches
// inbound envelopes to subscribers.
//
// All outbound traffic is serialized through one mutex: the offline queue
// is flushed in FIFO order on reconnect before any new Publish can write.
type Manager struct {
	cfg    Config
	dialer Dialer
	log    *logging.Logger

	mu            sync.Mutex
	state         State
	conn          Conn
	connID        string
	queue         []Envelope
	attempts      int
	lastHeartbeat time.Time
	closed        bool

	subMu  sync.RWMutex
	nextID int64
	subs   map[EventType][]subscription
}

// NewManager creates a manager. Run must be called to connect.
func NewManager(cfg Config, dialer Dialer, log *logging.Logger) *Manager {
	cfg.withDefaults()
	return &Manager{
		cfg:    cfg,
		dialer: dialer,
		log:    log.Sub("backbone"),
		state:  StateDisconnected,
		subs:   make(map[EventType][]subscription),
	}
}

// Backoff returns the delay before reconnect attempt n (1-based):
// base · 2^(n−1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// Run connects and services the channel until the context is canceled,
// Disconnect is called, or the retry budget is exhausted. It is the one
// long-lived task per logical channel.
func (m *Manager) Run(ctx context.Context) error {
	for {
		if m.isClosed() {
			return nil
		}

		m.setState(StateConnecting)
		conn, err := m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, domain.ErrConnectionExhausted) {
				return err
			}
			continue
		}

		m.attach(conn)

		stopHB := make(chan struct{})
		go m.heartbeatLoop(stopHB)

		readErr := m.readLoop(conn)
		close(stopHB)
		m.detach(conn)

		if m.isClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.Warn().Err(readErr).Msg("backbone connection lost, reconnecting")
	}
}

// dial tries to connect, backing off between attempts. It consumes the
// attempt budget of one outage; a successful connection resets it.
func (m *Manager) dial(ctx context.Context) (Conn, error) {
	for {
		m.mu.Lock()
		m.attempts++
		attempt := m.attempts
		m.mu.Unlock()

		conn, err := m.dialer.Dial(ctx, m.cfg.URL)
		if err == nil {
			m.mu.Lock()
			m.attempts = 0
			m.mu.Unlock()
			return conn, nil
		}

		if attempt >= m.cfg.MaxAttempts {
			m.markExhausted(err)
			return nil, domain.ErrConnectionExhausted
		}

		delay := Backoff(m.cfg.BaseDelay, attempt)
		m.log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("retryIn", delay).
			Msg("backbone dial failed")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// attach installs a fresh connection and flushes the offline queue in
// order. Publishers block on the mutex until the flush completes, so no
// new send can overtake a queued one.
func (m *Manager) attach(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conn = conn
	m.connID = uuid.New().String()
	m.state = StateConnected
	m.lastHeartbeat = time.Now()

	flushed := 0
	for len(m.queue) > 0 {
		if err := conn.WriteEnvelope(m.queue[0]); err != nil {
			// Connection died mid-flush. Keep the unsent tail, including
			// the failed envelope, for the next reconnect.
			m.log.Warn().Err(err).Int("remaining", len(m.queue)).Msg("queue flush interrupted")
			m.state = StateDisconnected
			conn.Close()
			return
		}
		m.queue = m.queue[1:]
		flushed++
	}
	m.queue = nil

	m.log.Info().
		Str("connId", m.connID).
		Int("flushed", flushed).
		Msg("backbone connected")
}

func (m *Manager) detach(conn Conn) {
	conn.Close()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == conn {
		m.conn = nil
		if m.state == StateConnected {
			m.state = StateDisconnected
		}
	}
}

// readLoop reads frames until the connection fails. Any inbound frame
// refreshes the heartbeat clock.
func (m *Manager) readLoop(conn Conn) error {
	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			return err
		}

		m.mu.Lock()
		m.lastHeartbeat = time.Now()
		m.mu.Unlock()

		m.dispatch(env)
	}
}

func (m *Manager) heartbeatLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			env, err := NewEnvelope(EventHeartbeat, HeartbeatPayload{At: time.Now()}, m.cfg.TenantID)
			if err != nil {
				continue
			}
			m.mu.Lock()
			if m.state == StateConnected && m.conn != nil {
				if err := m.conn.WriteEnvelope(env); err != nil {
					m.log.Debug().Err(err).Msg("heartbeat write failed")
				}
			}
			m.mu.Unlock()
		}
	}
}

// Publish sends an envelope, or queues it if the channel is down. Queued
// envelopes are delivered in FIFO order on reconnect. After exhaustion or
// Disconnect, Publish fails instead of queueing forever.
func (m *Manager) Publish(env Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if m.state == StateExhausted {
		return domain.ErrConnectionExhausted
	}

	if m.state == StateConnected && m.conn != nil {
		if err := m.conn.WriteEnvelope(env); err != nil {
			// The connection is dying. Queue for redelivery and let the
			// read loop trigger the reconnect.
			m.log.Warn().Err(err).Str("type", string(env.Type)).Msg("publish failed, queueing")
			m.queue = append(m.queue, env)
			m.state = StateDisconnected
			m.conn.Close()
		}
		return nil
	}

	m.queue = append(m.queue, env)
	return nil
}

// Subscribe registers a handler for one envelope type (or EventWildcard
// for all). The returned function cancels the subscription.
func (m *Manager) Subscribe(t EventType, fn Handler) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.nextID++
	id := m.nextID
	m.subs[t] = append(m.subs[t], subscription{id: id, fn: fn})

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		list := m.subs[t]
		for i, s := range list {
			if s.id == id {
				m.subs[t] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// dispatch delivers an envelope to typed subscribers then wildcard
// subscribers, in registration order. A panicking subscriber is isolated
// so the rest still receive the envelope.
func (m *Manager) dispatch(env Envelope) {
	m.subMu.RLock()
	handlers := make([]subscription, 0, len(m.subs[env.Type])+len(m.subs[EventWildcard]))
	handlers = append(handlers, m.subs[env.Type]...)
	handlers = append(handlers, m.subs[EventWildcard]...)
	m.subMu.RUnlock()

	for _, s := range handlers {
		m.safeCall(s.fn, env)
	}
}

func (m *Manager) safeCall(fn Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Str("type", string(env.Type)).
				Interface("panic", r).
				Msg("subscriber panicked")
		}
	}()
	fn(env)
}

// markExhausted records the terminal state and tells subscribers via a
// synthetic system_alert so they need no second notification API.
func (m *Manager) markExhausted(cause error) {
	m.mu.Lock()
	m.state = StateExhausted
	m.mu.Unlock()

	m.log.Error().Err(cause).
		Int("attempts", m.cfg.MaxAttempts).
		Msg("backbone reconnect budget exhausted")

	alert, err := NewEnvelope(EventSystemAlert, SystemAlertPayload{
		Code:     AlertConnectionExhausted,
		Severity: "critical",
		Detail:   cause.Error(),
	}, m.cfg.TenantID)
	if err == nil {
		m.dispatch(alert)
	}
}

// Disconnect closes the channel, releases all subscriptions, and stops
// timers. It is idempotent and safe to call concurrently with in-flight
// delivery.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	m.subMu.Lock()
	m.subs = make(map[EventType][]subscription)
	m.subMu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Snapshot returns the current connection state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subMu.RLock()
	subCount := 0
	for _, list := range m.subs {
		subCount += len(list)
	}
	m.subMu.RUnlock()

	return Snapshot{
		Connected:     m.state == StateConnected,
		State:         m.state,
		ConnID:        m.connID,
		OwnerID:       m.cfg.OwnerID,
		LastHeartbeat: m.lastHeartbeat,
		Attempts:      m.attempts,
		QueueLen:      len(m.queue),
		Subscriptions: subCount,
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed && m.state != StateExhausted {
		m.state = s
	}
}
