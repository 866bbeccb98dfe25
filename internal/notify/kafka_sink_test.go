package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
	"github.com/zxc1031408077/line-bot-ordering/pkg/circuitbreaker"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func sampleEvent() Event {
	return Event{
		OrderID: "5c1e7c0a-0000-4000-8000-000000000001",
		UserID:  "U123",
		From:    domain.OrderStatusPending,
		To:      domain.OrderStatusConfirmed,
		At:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaSink_PublishesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, nil)

	require.NoError(t, sink.StatusChanged(context.Background(), sampleEvent()))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "5c1e7c0a-0000-4000-8000-000000000001", string(msg.Key))
	require.NotEmpty(t, msg.Headers)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventTypeStatusChanged, string(msg.Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, sampleEvent(), got)
}

func TestKafkaSink_BreakerOpensOnRepeatedFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	sink := newKafkaSink(w, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := sink.StatusChanged(ctx, sampleEvent())
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}

	assert.ErrorIs(t, sink.StatusChanged(ctx, sampleEvent()), circuitbreaker.ErrOpen)
}

type recordingSink struct {
	events []Event
	err    error
}

func (r *recordingSink) StatusChanged(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestMulti_DeliversToAllAndReturnsFirstError(t *testing.T) {
	first := &recordingSink{err: errors.New("first")}
	second := &recordingSink{}

	err := Multi{NewLogSink(nil), first, second}.StatusChanged(context.Background(), sampleEvent())

	assert.EqualError(t, err, "first")
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}
