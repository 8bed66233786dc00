// Package events announces finished workflow invocations on NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"yieldpilot/internal/model"
)

const DefaultSubject = "yieldpilot.results"

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends each journal entry as JSON on
// <subject>.<intent>.<status>.
type Publisher struct {
	conn    Conn
	nc      *nats.Conn
	subject string
}

func NewPublisher(conn Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

// Connect dials url and keeps reconnecting in the background.
func Connect(url, subject string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("yieldpilot"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	p := NewPublisher(nc, subject)
	p.nc = nc
	return p, nil
}

// Subject returns the subject an entry is published on.
func (p *Publisher) Subject(entry model.JournalEntry) string {
	status := string(entry.Result.Status)
	if entry.Err != "" {
		status = "error"
	}
	if status == "" {
		status = "unknown"
	}
	return fmt.Sprintf("%s.%s.%s", p.subject, entry.Result.Intent, status)
}

func (p *Publisher) Publish(_ context.Context, entry model.JournalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := p.Subject(entry)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection opened by Connect.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
