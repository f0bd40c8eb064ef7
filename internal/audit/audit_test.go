package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	ctx := context.Background()
	d.Emit(ctx, Event{EventType: EventLoginSuccess, UserID: "1"})
	d.Emit(ctx, Event{EventType: EventLogout, UserID: "1"})
	d.Close()

	first := <-sink.Events()
	second := <-sink.Events()
	assert.Equal(t, EventLoginSuccess, first.EventType)
	assert.Equal(t, EventLogout, second.EventType)
}

func TestDispatcherDisabled(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NewChannelSink(1))
	assert.Nil(t, d)

	// Nil dispatchers are safe to use.
	d.Emit(context.Background(), Event{EventType: EventLogout})
	d.Close()
	assert.Zero(t, d.Dropped())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	blocked := make(chan struct{})
	sink := sinkFunc(func(context.Context, Event) { <-blocked })
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		d.Emit(ctx, Event{EventType: EventLoginFailure})
	}
	assert.NotZero(t, d.Dropped())

	close(blocked)
	d.Close()
}

type sinkFunc func(context.Context, Event)

func (f sinkFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		EventType: EventRefreshReuseDetected,
		UserID:    "42",
		TokenID:   "jti-1",
	})

	var got Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, EventRefreshReuseDetected, got.EventType)
	assert.Equal(t, "42", got.UserID)
	assert.Equal(t, "jti-1", got.TokenID)
}
