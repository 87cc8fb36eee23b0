// Package mail sends the contact form to the operator's mailbox over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Message is a rendered email with plain-text and HTML alternatives.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// ErrNotConfigured is returned when no SMTP relay was configured.
var ErrNotConfigured = errors.New("mail: smtp relay not configured")

// SMTPMailer dials the relay for every message; contact mail is rare enough
// that a pooled connection would mostly sit idle.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer returns a mailer that authenticates as user. When user is
// empty the mailer rejects every message with ErrNotConfigured.
func NewSMTPMailer(host string, port int, user, pass string) *SMTPMailer {
	if user == "" {
		return &SMTPMailer{}
	}
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, pass), from: user}
}

// Mailbox is the address contact messages are delivered to.
func (s *SMTPMailer) Mailbox() string { return s.from }

func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	if s.dialer == nil {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", orDefault(m.From, s.from))
	msg.SetHeader("To", orDefault(m.To, s.from))
	if m.ReplyTo != "" {
		msg.SetHeader("Reply-To", m.ReplyTo)
	}
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Text)
	if m.HTML != "" {
		msg.AddAlternative("text/html", m.HTML)
	}

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
