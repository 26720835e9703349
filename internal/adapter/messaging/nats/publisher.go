// Package nats publishes ledger events to NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// Publisher implements ports.EventPublisher by JSON-encoding each event.
type Publisher struct {
	conn Conn
	log  zerolog.Logger
}

// NewPublisher creates a Publisher over an established connection.
func NewPublisher(conn Conn, log zerolog.Logger) *Publisher {
	return &Publisher{conn: conn, log: log}
}

// Connect dials url. An empty url returns a nil connection and no error.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}

	nc, err := nats.Connect(url,
		nats.Name("wallet-service"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS connection established")
	return nc, nil
}

// Publish encodes payload and publishes it on subject, flushing so that a
// broken connection is reported to the caller.
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}

	p.log.Debug().Str("subject", subject).Int("bytes", len(data)).Msg("event published")
	return nil
}

// HealthCheck implements ports.HealthChecker for NATS.
type HealthCheck struct {
	conn *nats.Conn
}

// NewHealthCheck creates a NATS health checker.
func NewHealthCheck(conn *nats.Conn) *HealthCheck {
	return &HealthCheck{conn: conn}
}

// Ping reports whether the connection is currently up.
func (h *HealthCheck) Ping(_ context.Context) error {
	if !h.conn.IsConnected() {
		return fmt.Errorf("nats status %s", h.conn.Status())
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "nats"
}
