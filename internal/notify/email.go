// Package notify - email.go implements the best-effort SMTP side channel for
// notification emails. Delivery failures are reported to the caller, who logs
// and swallows them; an email problem never fails the write that triggered it.
package notify

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"github.com/learnstack/lms-backend/internal/config"
)

// Emailer sends one plain-text email
type Emailer interface {
	Send(toEmail, subject, body string) error
}

// SMTPEmailer delivers mail through the configured SMTP server
type SMTPEmailer struct {
	cfg *config.SMTPConfig
}

// NewSMTPEmailer creates an emailer for the given SMTP configuration
func NewSMTPEmailer(cfg *config.SMTPConfig) *SMTPEmailer {
	return &SMTPEmailer{cfg: cfg}
}

// Send composes and delivers a plain-text email via SMTP
func (e *SMTPEmailer) Send(toEmail, subject, body string) error {
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		e.cfg.From, toEmail, subject,
	)
	msg := []byte(headers + body + "\r\n")

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)

	if e.cfg.UseTLS {
		return sendMailTLS(addr, e.cfg.Host, auth, e.cfg.From, []string{toEmail}, msg)
	}
	return smtp.SendMail(addr, auth, e.cfg.From, []string{toEmail}, msg)
}

// sendMailTLS connects via implicit TLS (port 465 / SMTPS) and sends a message.
// Use this when UseTLS=true and the port is 465; for port 587 STARTTLS,
// smtp.SendMail handles the upgrade automatically — but we call this path for
// both so the config is unambiguous: UseTLS=true always means an encrypted connection.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		// Fall back to STARTTLS via the standard smtp.SendMail path (port 587 pattern)
		return smtp.SendMail(addr, auth, from, to, msg)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}

	return nil
}
