// Package pubsub provides a generic publish/subscribe event system used to
// fan out log lines, section session transitions and file-change notices.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"

	// StateChangedEvent marks a section session transition.
	StateChangedEvent EventType = "state_changed"
	// FileChangedEvent marks a debounced change under the watched site tree.
	FileChangedEvent EventType = "file_changed"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Filter reports whether a subscriber wants an event.
type Filter[T any] func(Event[T]) bool

// OfType returns a Filter accepting only the listed event types.
func OfType[T any](types ...EventType) Filter[T] {
	return func(e Event[T]) bool {
		for _, t := range types {
			if e.Type == t {
				return true
			}
		}
		return false
	}
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
