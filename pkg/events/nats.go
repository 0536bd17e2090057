package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes events as JSON on "{prefix}.{type}" subjects.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("agent-arena"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType Type) string {
	if p.prefix == "" {
		return string(eventType)
	}
	return p.prefix + "." + string(eventType)
}

// Publish implements Publisher. The call returns once the server has
// acknowledged the message or ctx is done.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.nc.Publish(p.Subject(event.Type), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush %s: %w", event.Type, err)
	}

	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
