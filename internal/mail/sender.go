package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Sender delivers a rendered message
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPSender sends messages through an SMTP relay
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a sender for the given relay
func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

// Send dials the relay and sends msg. gomail has no context support, so ctx
// is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(s.build(msg)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) build(msg *Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return m
}
