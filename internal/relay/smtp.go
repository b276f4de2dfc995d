// ABOUTME: SMTP Mailer built on wneessen/go-mail
// ABOUTME: Submits single-part text/plain messages with STARTTLS and PLAIN auth

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// implicitTLSPort is the SMTPS port; everything else negotiates STARTTLS.
const implicitTLSPort = 465

// SMTPOptions configures SMTPMailer.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPMailer delivers mail through an authenticated submission endpoint.
// A new connection is dialled for every message.
type SMTPMailer struct {
	opts   SMTPOptions
	logger *slog.Logger
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(opts SMTPOptions, logger *slog.Logger) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPMailer{
		opts:   opts,
		logger: logger.With("component", "smtp"),
	}
}

// Deliver sends one message and waits for the server to accept it.
func (m *SMTPMailer) Deliver(ctx context.Context, from, to, subject, body string) error {
	msg, err := buildMessage(from, to, subject, body)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.opts.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	if m.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()
	}

	m.logger.Debug("submitting message", "host", m.opts.Host, "port", m.opts.Port, "to", to)
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.opts.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.opts.Username),
		mail.WithPassword(m.opts.Password),
	}
	if m.opts.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if m.opts.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.opts.Timeout))
	}
	return opts
}

// buildMessage assembles a single-part text/plain message.
func buildMessage(from, to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
