// Package alert delivers operator escalation notices for chronically failing
// webhooks.
package alert

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/event-notify/pkg/logger"
)

// Notifier escalates a chronic webhook failure to a tenant contact.
type Notifier interface {
	NotifyFailure(ctx context.Context, recipient, webhookID, webhookURL string, failures int) error
}

// SMTPConfig configures the mail-backed notifier.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Mailer sends escalation emails over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *Mailer) NotifyFailure(_ context.Context, recipient, webhookID, webhookURL string, failures int) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", fmt.Sprintf("Webhook %s is failing", webhookID))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Webhook %s (%s) has failed %d deliveries in the current monitoring window. "+
			"Check the endpoint's availability and its signature verification.",
		webhookID, webhookURL, failures))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send escalation email to %s: %w", recipient, err)
	}
	return nil
}

// LogNotifier logs escalations instead of mailing them; used in development
// and when SMTP is not configured.
type LogNotifier struct {
	Logger *logger.Logger
}

func (n *LogNotifier) NotifyFailure(_ context.Context, recipient, webhookID, webhookURL string, failures int) error {
	n.Logger.Warn("webhook failure escalation",
		"recipient", recipient,
		"webhook_id", webhookID,
		"url", webhookURL,
		"failures", fmt.Sprintf("%d", failures))
	return nil
}
