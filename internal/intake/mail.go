// Package intake turns inbound support email into tickets. A poller
// watches an IMAP mailbox for unseen messages; each one becomes an open
// ticket classified by the signal analyzer.
package intake

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/routing"
)

// Mail is one inbound email reduced to what ticket creation needs.
type Mail struct {
	From    string
	Subject string
	Body    string
	Date    time.Time
	UID     uint32
}

// ExtractBody pulls the plain-text body out of a raw RFC 822 message.
// Multipart messages yield their first text part; quoted-printable
// transfer encoding is decoded.
func ExtractBody(r io.Reader) (string, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(msg.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}

			partType, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
			if !strings.HasPrefix(partType, "text/") {
				continue
			}
			body, err := io.ReadAll(decoded(p, p.Header.Get("Content-Transfer-Encoding")))
			if err != nil {
				continue
			}
			return string(body), nil
		}
		return "", fmt.Errorf("no text part in multipart message")
	}

	if strings.HasPrefix(mediaType, "text/") {
		body, err := io.ReadAll(decoded(msg.Body, msg.Header.Get("Content-Transfer-Encoding")))
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	return "", fmt.Errorf("unsupported content type: %s", mediaType)
}

func decoded(r io.Reader, encoding string) io.Reader {
	if strings.EqualFold(encoding, "quoted-printable") {
		return quotedprintable.NewReader(r)
	}
	return r
}

// TicketFromMail converts one email into an open ticket. The signal
// decides category and priority; classification quality shows up in those
// fields, never as a failure.
func TicketFromMail(m Mail, sig domain.ContentSignal, tenantID string) domain.Ticket {
	now := time.Now()
	subject := strings.TrimSpace(m.Subject)
	if subject == "" {
		subject = "(no subject)"
	}

	return domain.Ticket{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		Subject:     subject,
		Body:        strings.TrimSpace(m.Body),
		Category:    sig.SuggestedCategory,
		Priority:    routing.SuggestPriority(sig),
		Status:      domain.TicketOpen,
		RequesterID: m.From,
		Source:      "email",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
