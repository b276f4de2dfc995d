// Package metrics provides Prometheus metrics for the mail relay bot.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// No session or room ids in labels.

var (
	// EventsTotal counts inbound chat events by kind (start, text, ignored, duplicate).
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coven_mailer_events_total",
		Help: "Total number of inbound chat events, by kind.",
	}, []string{"kind"})

	// TransitionsTotal counts conversation state transitions.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coven_mailer_transitions_total",
		Help: "Total number of conversation state transitions, by from and to state.",
	}, []string{"from", "to"})

	// DeliveriesTotal counts relay attempts by outcome (delivered, failed).
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coven_mailer_deliveries_total",
		Help: "Total number of mail delivery attempts, by outcome.",
	}, []string{"outcome"})

	// AuditAppendFailuresTotal counts audit records that could not be written.
	AuditAppendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coven_mailer_audit_append_failures_total",
		Help: "Total number of audit log appends that failed after a successful delivery.",
	})

	// DeliveryDuration observes how long the SMTP attempt took.
	DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coven_mailer_delivery_duration_seconds",
		Help:    "Duration of mail delivery attempts.",
		Buckets: prometheus.DefBuckets,
	})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listener started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down metrics listener: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics listener: %w", err)
	}
}
