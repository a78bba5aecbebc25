package notify

import (
	"context"
	"fmt"
	"io"
	"log"

	"gopkg.in/gomail.v2"
)

type Attachment struct {
	Name string
	Data []byte
}

type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers one email. Delivery is at least once: a Send that returned
// an error may still have reached the recipient.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
}

type SMTPMailer struct {
	cfg  SMTPConfig
	send func(...*gomail.Message) error
	// busy holds a token while an SMTP exchange runs, including one whose
	// caller already gave up.
	busy chan struct{}
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPMailer{
		cfg:  cfg,
		send: dialer.DialAndSend,
		busy: make(chan struct{}, 1),
	}
}

// Send delivers e over SMTP. gomail has no context support, so when ctx ends
// first Send returns ctx.Err() while the exchange finishes in the background;
// a retry of the same email can then duplicate it. Exchanges never overlap:
// a new Send waits for an abandoned one to finish.
func (m *SMTPMailer) Send(ctx context.Context, e Email) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.Username, m.cfg.FromName)
	msg.SetHeader("To", e.To)
	msg.SetHeader("Subject", e.Subject)
	msg.SetBody("text/html", e.HTML)
	for _, a := range e.Attachments {
		data := a.Data
		msg.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	select {
	case m.busy <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	done := make(chan error, 1)
	go func() {
		defer func() { <-m.busy }()
		done <- m.send(msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("error sending email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogMailer writes emails to the log. Used when SMTP is not configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, e Email) error {
	log.Printf("notify: email to=%s subject=%q attachments=%d (smtp disabled)", e.To, e.Subject, len(e.Attachments))
	return nil
}
