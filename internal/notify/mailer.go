package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/config"
)

// Mailer sends one plain-text e-mail.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, body string) error
}

// NewMailer returns a SendGrid mailer when an API key and sender are
// configured and a LogMailer otherwise.
func NewMailer(cfg config.Mail, log *zap.Logger) Mailer {
	if cfg.SendGridAPIKey == "" || cfg.FromEmail == "" {
		log.Info("sendgrid not configured, e-mails are only logged")
		return &LogMailer{log: log.Named("mail")}
	}
	return NewSendGridMailer(cfg)
}

// SendGridMailer delivers through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(cfg config.Mail) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail(toName, toEmail), body, "")
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer only writes the e-mail to the log.
type LogMailer struct{ log *zap.Logger }

func NewLogMailer(log *zap.Logger) *LogMailer { return &LogMailer{log: log} }

func (m *LogMailer) Send(_ context.Context, toEmail, toName, subject, body string) error {
	m.log.Info("simulated e-mail",
		zap.String("to", toEmail),
		zap.String("name", toName),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
