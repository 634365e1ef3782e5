package intake

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/logging"
	"github.com/paddockpulse/stablehand/internal/signal"
)

// Sink receives the tickets the poller creates. store.Store satisfies it.
type Sink interface {
	CreateTicket(ctx context.Context, t *domain.Ticket) error
}

// Options configures the IMAP poller.
type Options struct {
	Host     string
	Port     int
	Email    string
	Password string
	Mailbox  string
	Interval time.Duration
	TenantID string
}

func (o *Options) withDefaults() {
	if o.Port == 0 {
		o.Port = 993
	}
	if o.Mailbox == "" {
		o.Mailbox = "INBOX"
	}
	if o.Interval <= 0 {
		o.Interval = time.Minute
	}
}

// Poller watches a mailbox and files a ticket per unseen message. Each
// poll is a fresh IMAP connection; a failed poll is logged and retried on
// the next tick, never fatal.
type Poller struct {
	opts     Options
	analyzer *signal.Analyzer
	sink     Sink
	log      *logging.Logger
}

// NewPoller creates a poller. Call Run to start it.
func NewPoller(opts Options, analyzer *signal.Analyzer, sink Sink, log *logging.Logger) *Poller {
	opts.withDefaults()
	return &Poller{
		opts:     opts,
		analyzer: analyzer,
		sink:     sink,
		log:      log.Sub("intake"),
	}
}

// Run polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info().
		Str("host", p.opts.Host).
		Str("mailbox", p.opts.Mailbox).
		Dur("interval", p.opts.Interval).
		Msg("email intake started")

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		if err := p.pollOnce(ctx); err != nil {
			p.log.Warn().Err(err).Msg("mailbox poll failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	c, err := p.connect()
	if err != nil {
		return err
	}
	defer c.Logout()

	if _, err := c.Select(p.opts.Mailbox, false); err != nil {
		return fmt.Errorf("select %s: %w", p.opts.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	var processed imap.SeqSet
	for msg := range messages {
		m, err := p.reduce(msg, section)
		if err != nil {
			p.log.Warn().Err(err).Uint32("uid", msg.Uid).Msg("skipping unreadable message")
			continue
		}

		sig := p.analyzer.Analyze(ctx, m.Subject+"\n"+m.Body, nil)
		ticket := TicketFromMail(m, sig, p.opts.TenantID)
		if err := p.sink.CreateTicket(ctx, &ticket); err != nil {
			p.log.Warn().Err(err).Uint32("uid", msg.Uid).Msg("ticket creation failed")
			continue
		}

		processed.AddNum(msg.Uid)
		p.log.Info().
			Str("ticket", ticket.ID).
			Str("from", m.From).
			Str("category", ticket.Category).
			Msg("ticket filed from email")
	}

	if err := <-done; err != nil {
		return fmt.Errorf("fetch unseen: %w", err)
	}

	// Mark only the messages that became tickets; the rest stay unseen for
	// the next poll.
	if !processed.Empty() {
		flags := []interface{}{imap.SeenFlag}
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(&processed, item, flags, nil); err != nil {
			return fmt.Errorf("mark seen: %w", err)
		}
	}
	return nil
}

func (p *Poller) connect() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", p.opts.Host, p.opts.Port)
	c, err := client.DialTLS(addr, &tls.Config{})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := c.Login(p.opts.Email, p.opts.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

func (p *Poller) reduce(msg *imap.Message, section *imap.BodySectionName) (Mail, error) {
	m := Mail{UID: msg.Uid}
	if msg.Envelope != nil {
		m.Subject = msg.Envelope.Subject
		m.Date = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			m.From = msg.Envelope.From[0].Address()
		}
	}

	r := msg.GetBody(section)
	if r == nil {
		return Mail{}, fmt.Errorf("message %d has no body", msg.Uid)
	}
	body, err := ExtractBody(r)
	if err != nil {
		return Mail{}, err
	}
	m.Body = body
	return m, nil
}
