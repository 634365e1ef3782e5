package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/lrstanley/girc"

	"github.com/paddockpulse/stablehand/internal/logging"
)

// IRCOptions configures the ops-channel IRC sink.
type IRCOptions struct {
	Server   string
	Port     int
	Nick     string
	Channels []string
	UseTLS   bool
	SASL     bool
	Password string
}

// IRCAdapter announces events in one or more IRC channels. Events arriving
// while the client is disconnected are dropped; IRC is an ops surface, not
// a system of record.
type IRCAdapter struct {
	opts   IRCOptions
	client *girc.Client
	log    *logging.Logger

	mu      sync.RWMutex
	running bool
}

// NewIRCAdapter creates the adapter. Call Start to connect.
func NewIRCAdapter(opts IRCOptions, log *logging.Logger) *IRCAdapter {
	return &IRCAdapter{opts: opts, log: log.Sub("notify.irc")}
}

func (a *IRCAdapter) Name() string { return "irc" }

// Start connects to the IRC server and blocks until the connection drops
// or ctx is canceled.
func (a *IRCAdapter) Start(ctx context.Context) error {
	port := a.opts.Port
	if port == 0 {
		if a.opts.UseTLS {
			port = 6697
		} else {
			port = 6667
		}
	}

	cfg := girc.Config{
		Server:  a.opts.Server,
		Port:    port,
		Nick:    a.opts.Nick,
		User:    a.opts.Nick,
		Name:    "Stablehand Support Bot",
		SSL:     a.opts.UseTLS,
		Version: "Stablehand/1.0",
	}

	if a.opts.UseTLS {
		cfg.TLSConfig = &tls.Config{ServerName: a.opts.Server}
	}

	if a.opts.SASL && a.opts.Password != "" {
		cfg.SASL = &girc.SASLPlain{User: a.opts.Nick, Pass: a.opts.Password}
	} else if a.opts.Password != "" {
		cfg.ServerPass = a.opts.Password
	}

	a.client = girc.New(cfg)
	a.client.Handlers.Add(girc.CONNECTED, func(c *girc.Client, _ girc.Event) {
		for _, ch := range a.opts.Channels {
			c.Cmd.Join(ch)
		}
		a.mu.Lock()
		a.running = true
		a.mu.Unlock()
		a.log.Info().Str("server", a.opts.Server).Msg("IRC sink connected")
	})

	a.log.Info().
		Str("server", a.opts.Server).
		Int("port", port).
		Strs("channels", a.opts.Channels).
		Msg("connecting IRC sink")

	// Connect blocks; watch ctx alongside it.
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.client.Connect()
	}()

	select {
	case err := <-errCh:
		a.setRunning(false)
		if err != nil {
			return fmt.Errorf("irc connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.client.Close()
		a.setRunning(false)
		<-errCh
		return ctx.Err()
	}
}

func (a *IRCAdapter) setRunning(v bool) {
	a.mu.Lock()
	a.running = v
	a.mu.Unlock()
}

func (a *IRCAdapter) Notify(_ context.Context, ev Event) error {
	a.mu.RLock()
	ok := a.running && a.client != nil && a.client.IsConnected()
	a.mu.RUnlock()
	if !ok {
		return fmt.Errorf("irc sink not connected")
	}

	line := fmt.Sprintf("[%s] %s", ev.Kind, ev.Text)
	for _, ch := range a.opts.Channels {
		a.client.Cmd.Message(ch, line)
	}
	return nil
}
