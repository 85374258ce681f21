package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// ListenCmd returns a Bubble Tea command that yields the next event on ch as a
// tea.Msg, or nil once ctx is cancelled or ch is closed.
func ListenCmd[T any](ctx context.Context, ch <-chan Event[T]) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			return event
		}
	}
}

// ContinuousListener keeps one broker subscription alive across Update calls.
// Re-issue Listen after handling each event to keep receiving.
type ContinuousListener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewContinuousListener subscribes to broker for the lifetime of ctx.
func NewContinuousListener[T any](ctx context.Context, broker *Broker[T]) *ContinuousListener[T] {
	return NewFilteredListener(ctx, broker, nil)
}

// NewFilteredListener is NewContinuousListener restricted by filter.
func NewFilteredListener[T any](ctx context.Context, broker *Broker[T], filter Filter[T]) *ContinuousListener[T] {
	return &ContinuousListener[T]{
		ctx: ctx,
		ch:  broker.SubscribeFiltered(ctx, filter),
	}
}

// Listen returns a tea.Cmd that waits for the next event.
func (l *ContinuousListener[T]) Listen() tea.Cmd {
	if l == nil {
		return nil
	}
	return ListenCmd(l.ctx, l.ch)
}
