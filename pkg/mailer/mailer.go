// Package mailer delivers verification emails.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/aitarf0921/AI-Secretary/pkg/config"
)

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTP sends through an SMTP relay.
type SMTP struct {
	from string
	opts []mail.Option
	host string
}

// NewSMTP returns an SMTP sender for cfg.
func NewSMTP(cfg config.SMTPConfig, from string) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp: host is required")
	}
	if from == "" {
		return nil, errors.New("smtp: from address is required")
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return &SMTP{from: from, opts: opts, host: cfg.Host}, nil
}

// Send implements Sender.
func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("smtp: from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("smtp: to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.host, s.opts...)
	if err != nil {
		return fmt.Errorf("smtp: client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp: send: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	Logger *zap.Logger
}

// Send implements Sender.
func (l LogSender) Send(_ context.Context, to, subject, body string) error {
	l.Logger.Info("email not sent, no smtp host configured",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// New returns an SMTP sender when a host is configured and a LogSender otherwise.
func New(cfg config.OTPConfig, logger *zap.Logger) (Sender, error) {
	if cfg.SMTP.Host == "" {
		return LogSender{Logger: logger}, nil
	}
	return NewSMTP(cfg.SMTP, cfg.From)
}
