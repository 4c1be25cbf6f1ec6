package mail

import (
	"context"
	"fmt"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

// EmailSender renders notifications and hands them to a Mailer. It is the
// delivery end of the notification dispatcher.
type EmailSender struct {
	renderer *Renderer
	mailer   Mailer
}

func NewEmailSender(renderer *Renderer, mailer Mailer) *EmailSender {
	return &EmailSender{renderer: renderer, mailer: mailer}
}

func (s *EmailSender) Send(ctx context.Context, n domain.Notification) error {
	if n.Recipient == "" {
		return fmt.Errorf("send %s: empty recipient", n.Kind)
	}
	subject, html, err := s.renderer.Render(n)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, n.Recipient, subject, html); err != nil {
		return fmt.Errorf("send %s to mail provider: %w", n.Kind, err)
	}
	return nil
}
