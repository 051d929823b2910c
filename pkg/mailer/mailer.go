package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config contains credentials required to talk to an SMTP relay.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Sender   string
}

// SMTPMailer implements Mailer over an authenticated SMTP relay.
type SMTPMailer struct {
	cfg    Config
	logger zerolog.Logger
}

// NewSMTP constructs an SMTP mailer.
func NewSMTP(cfg Config, logger zerolog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.Sender == "" {
		return nil, fmt.Errorf("smtp host and sender must be provided")
	}

	return &SMTPMailer{
		cfg:    cfg,
		logger: logger.With().Str("component", "smtp_mailer").Logger(),
	}, nil
}

// Send delivers one message. The context is checked before dialing; net/smtp
// does not support cancellation mid-send.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.cfg.Sender),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.Sender, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Info().Str("to", to).Str("subject", subject).Msg("mail sent")
	return nil
}

// LogMailer is a basic provider that logs messages instead of sending them.
// Used in development when no SMTP relay is configured.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLog constructs a logging mailer.
func NewLog(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "log_mailer").Logger()}
}

// Send logs the message and returns nil to indicate success.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.Info().Str("to", to).Str("subject", subject).Msg("mail delivery skipped, logging only")
	return nil
}
