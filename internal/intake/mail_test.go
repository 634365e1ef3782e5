package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddockpulse/stablehand/internal/domain"
)

func TestExtractBodyPlainText(t *testing.T) {
	raw := "From: rider@example.com\r\n" +
		"Subject: feed schedule\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"The feed alerts stopped coming through.\r\n"

	body, err := ExtractBody(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, body, "feed alerts stopped")
}

func TestExtractBodyQuotedPrintable(t *testing.T) {
	raw := "From: rider@example.com\r\n" +
		"Subject: hello\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=C3=A9 opening hours\r\n"

	body, err := ExtractBody(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, body, "café")
}

func TestExtractBodyMultipartPicksTextPart(t *testing.T) {
	raw := "From: rider@example.com\r\n" +
		"Subject: mixed\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUND\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: application/pdf\r\n" +
		"\r\n" +
		"%PDF-fake\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"the actual question\r\n" +
		"--BOUND--\r\n"

	body, err := ExtractBody(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, body, "the actual question")
}

func TestExtractBodyMissingHeaders(t *testing.T) {
	_, err := ExtractBody(strings.NewReader("not an email at all"))
	assert.Error(t, err)
}

func TestTicketFromMail(t *testing.T) {
	m := Mail{
		From:    "rider@example.com",
		Subject: "  Billing question  ",
		Body:    "I was charged twice this month.",
	}
	sig := domain.ContentSignal{
		Sentiment:         domain.SentimentNegative,
		Complexity:        domain.ComplexityLow,
		SuggestedCategory: domain.CategoryBilling,
		Confidence:        0.8,
	}

	ticket := TicketFromMail(m, sig, "yard-1")
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, "yard-1", ticket.TenantID)
	assert.Equal(t, "Billing question", ticket.Subject)
	assert.Equal(t, domain.CategoryBilling, ticket.Category)
	assert.Equal(t, domain.PriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketOpen, ticket.Status)
	assert.Equal(t, "rider@example.com", ticket.RequesterID)
	assert.Equal(t, "email", ticket.Source)
}

func TestTicketFromMailEmptySubject(t *testing.T) {
	ticket := TicketFromMail(Mail{From: "a@b.c"}, domain.ContentSignal{
		Sentiment:         domain.SentimentNeutral,
		Complexity:        domain.ComplexityLow,
		SuggestedCategory: domain.CategoryGeneral,
	}, "")
	assert.Equal(t, "(no subject)", ticket.Subject)
	assert.Equal(t, domain.PriorityLow, ticket.Priority)
}
