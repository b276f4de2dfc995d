// ABOUTME: Message relay: delivers a confirmed message by mail and records it in the audit log
// ABOUTME: Failures come back as an Outcome value, never as a panic or a returned error

package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-mailer/internal/metrics"
	"github.com/2389/coven-mailer/internal/store"
)

// Status tags an Outcome.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Status Status
	// Reason is a human-readable rendering of the transport error. Empty when delivered.
	Reason string
}

// Delivered returns the successful Outcome.
func Delivered() Outcome {
	return Outcome{Status: StatusDelivered}
}

// Failed returns a failed Outcome carrying reason.
func Failed(reason string) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason}
}

// OK reports whether the message was delivered.
func (o Outcome) OK() bool {
	return o.Status == StatusDelivered
}

// Mailer delivers a single plain-text message.
type Mailer interface {
	Deliver(ctx context.Context, from, to, subject, body string) error
}

// AuditLog is the subset of store.Store the relay writes to.
type AuditLog interface {
	AppendRecord(ctx context.Context, r *store.Record) error
}

// Service sends confirmed messages and audits successful deliveries.
type Service struct {
	mailer  Mailer
	audit   AuditLog
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a relay Service. subject is used for every outgoing message.
func New(mailer Mailer, audit AuditLog, subject string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		mailer:  mailer,
		audit:   audit,
		subject: subject,
		logger:  logger.With("component", "relay"),
		now:     time.Now,
	}
}

// Relay delivers body from sender to recipient. On success it appends one audit
// record; an append failure is logged and does not change the Delivered outcome.
// Delivery is attempted exactly once.
func (s *Service) Relay(ctx context.Context, sender, recipient, body string) Outcome {
	attemptID := uuid.New().String()
	logger := s.logger.With("attempt_id", attemptID, "to", recipient)

	start := time.Now()
	err := s.mailer.Deliver(ctx, sender, recipient, s.subject, body)
	metrics.DeliveryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Warn("mail delivery failed", "error", err)
		metrics.DeliveriesTotal.WithLabelValues(string(StatusFailed)).Inc()
		return Failed(err.Error())
	}

	logger.Info("mail delivered", "length", len(body))
	metrics.DeliveriesTotal.WithLabelValues(string(StatusDelivered)).Inc()

	record := &store.Record{
		Timestamp:     s.now(),
		SenderEmail:   sender,
		ReceiverEmail: recipient,
		MessageText:   body,
	}
	// The mail is already out; a cancelled request must not skip the audit row.
	if err := s.audit.AppendRecord(context.WithoutCancel(ctx), record); err != nil {
		logger.Error("failed to append audit record", "error", err)
		metrics.AuditAppendFailuresTotal.Inc()
	}

	return Delivered()
}
