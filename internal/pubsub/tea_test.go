package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCmd_ReceivesEvent(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(UpdatedEvent, "hello world")

	msg := ListenCmd(ctx, ch)()

	event, ok := msg.(Event[string])
	require.True(t, ok, "msg should be Event[string]")
	require.Equal(t, "hello world", event.Payload)
}

func TestListenCmd_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan Event[string])
	require.Nil(t, ListenCmd(ctx, ch)())
}

func TestListenCmd_ChannelClosed(t *testing.T) {
	ch := make(chan Event[string])
	close(ch)

	require.Nil(t, ListenCmd(context.Background(), ch)())
}

func TestFilteredListener_SkipsOtherTypes(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewFilteredListener(ctx, broker, OfType[string](StateChangedEvent))
	broker.Publish(FileChangedEvent, "data/theme.json")
	broker.Publish(StateChangedEvent, "theme:loading")

	event, ok := l.Listen()().(Event[string])
	require.True(t, ok)
	require.Equal(t, "theme:loading", event.Payload)
}

func TestContinuousListener_NilSafe(t *testing.T) {
	var l *ContinuousListener[string]
	require.Nil(t, l.Listen())
}
