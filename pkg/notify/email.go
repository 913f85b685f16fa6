package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/printdesk/printdesk/pkg/config"
)

type Email struct {
	To      string
	Subject string
	HTML    string
}

type EmailSender interface {
	Send(ctx context.Context, email Email) (externalID string, err error)
}

type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(cfg config.EmailConfig) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(cfg.APIKey),
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
	}
}

func (s *ResendSender) Send(ctx context.Context, email Email) (string, error) {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
	}
	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", err
	}
	return sent.Id, nil
}
