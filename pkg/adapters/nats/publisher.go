// Package nats publishes variant events to a NATS bus.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/ports"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix is prepended to the event kind ("variants.created").
const DefaultSubjectPrefix = "variants"

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Publisher implements ports.EventPublisher on core NATS.
type Publisher struct {
	nc     conn
	prefix string
	logger *zap.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Option configures the Publisher.
type Option func(*Publisher)

// WithSubjectPrefix overrides DefaultSubjectPrefix.
func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = strings.TrimSuffix(prefix, ".")
	}
}

// WithLogger configures a logger for the Publisher.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// Connect dials url and returns a Publisher that owns the connection.
func Connect(url string, opts ...Option) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("configurator"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return newPublisher(nc, opts...), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(nc *nats.Conn, opts ...Option) *Publisher {
	return newPublisher(nc, opts...)
}

func newPublisher(nc conn, opts ...Option) *Publisher {
	p := &Publisher{nc: nc, prefix: DefaultSubjectPrefix, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subject returns the subject an event is published on.
func (p *Publisher) Subject(t domain.EventType) string {
	kind := string(t)
	if i := strings.LastIndexByte(kind, '.'); i >= 0 {
		kind = kind[i+1:]
	}
	return p.prefix + "." + kind
}

// Publish implements ports.EventPublisher. The event is flushed before returning.
func (p *Publisher) Publish(ctx context.Context, event domain.VariantEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := p.Subject(event.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	p.logger.Debug("event published", zap.String("subject", subject), zap.Int64("variant_id", event.Variant.ID))
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
