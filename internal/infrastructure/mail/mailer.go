package mail

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
	"github.com/rs/zerolog"
)

const sendTimeout = 10 * time.Second

// Mailer delivers one rendered email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Mailgun delivers mail through the Mailgun HTTP API.
type Mailgun struct {
	client *mg.MailgunImpl
	sender string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{client: mg.NewMailgun(domain, apiKey), sender: sender}
}

func (m *Mailgun) Send(ctx context.Context, to, subject, html string) error {
	msg := m.client.NewMessage(m.sender, subject, "", to)
	msg.SetHtml(html)

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}

// LogMailer writes mail to the log instead of sending it. Used outside
// production and whenever no Mailgun key is configured.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to, subject, html string) error {
	m.log.Info().Str("to", to).Str("subject", subject).Msg("email not sent, logging content")
	m.log.Debug().Str("to", to).Msg(html)
	return nil
}
