// Package events publishes Agent Arena domain events such as new battles,
// shared posts and comments.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	BattleCreated  Type = "battle.created"
	PostShared     Type = "post.shared"
	CommentCreated Type = "comment.created"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// New builds an event with a fresh ID and the current time.
func New(eventType Type, payload any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers events to subscribers outside the process.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Nop) Close() {}
