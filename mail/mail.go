// Package mail provides the outbound mailers used by the password-reset
// flow: an SMTP sender for real delivery and a log-only sender for
// development.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"
)

// SMTPConfig locates the outbound SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPMailer sends multipart text+HTML mail over authenticated SMTP with
// STARTTLS, which net/smtp negotiates when the server advertises it.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTP builds an SMTPMailer.
func NewSMTP(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("mail: host and from address are required")
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	return &SMTPMailer{cfg: cfg}, nil
}

const multipartBoundary = "=_authkit_alt"

func buildMessage(from, to, subject, textBody, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	if htmlBody == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(textBody)
		b.WriteString("\r\n")
		return []byte(b.String())
	}

	b.WriteString("Content-Type: multipart/alternative; boundary=\"" + multipartBoundary + "\"\r\n\r\n")
	b.WriteString("--" + multipartBoundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(textBody)
	b.WriteString("\r\n--" + multipartBoundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n--" + multipartBoundary + "--\r\n")
	return []byte(b.String())
}

// SendMail delivers one message. Context cancellation is checked before the
// dial; net/smtp itself does not take a context.
func (m *SMTPMailer) SendMail(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := m.cfg.Host + ":" + m.cfg.Port
	msg := buildMessage(m.cfg.From, to, subject, textBody, htmlBody)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes mail to a logger instead of sending it. Useful in
// development where no SMTP relay exists.
type LogMailer struct {
	log *slog.Logger
}

// NewLog builds a LogMailer.
func NewLog(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendMail(ctx context.Context, to, subject, textBody, _ string) error {
	m.log.InfoContext(ctx, "mail (not sent)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", textBody),
	)
	return nil
}
