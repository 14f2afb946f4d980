package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

type fakeReader struct {
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestOrderPaidMessage(t *testing.T) {
	e := NewOrderPaid("ref-1", 42, []int{3, 4})
	m, err := e.Message()
	require.NoError(t, err)
	assert.Equal(t, "42", string(m.Key))
	assert.Equal(t, TypeOrderPaid, string(m.Headers[0].Value))

	got, err := DecodeOrderPaid(m)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, got.EventID)
	assert.Equal(t, []int{3, 4}, got.ProductIDs)

	_, err = DecodeOrderPaid(kafka.Message{Value: []byte(`{"userId":1}`)})
	assert.Error(t, err)
}

func TestProducerFlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 8, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, p.PublishOrderPaid(ctx, NewOrderPaid("ref", i, nil)))
	}
	p.Close()

	assert.Len(t, w.msgs, 5)
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.PublishOrderPaid(ctx, NewOrderPaid("ref", 9, nil)), ErrProducerClosed)
	p.Close()
}

func TestConsumerRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	good, err := NewOrderPaid("ok", 1, []int{1}).Message()
	require.NoError(t, err)
	good.Offset = 1
	flaky, err := NewOrderPaid("flaky", 1, []int{2}).Message()
	require.NoError(t, err)
	flaky.Offset = 2
	later, err := NewOrderPaid("later", 1, []int{3}).Message()
	require.NoError(t, err)
	later.Offset = 3
	garbage := kafka.Message{Offset: 4, Value: []byte("not json")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{queue: []kafka.Message{good, flaky, later, garbage}, cancel: cancel}
	c := newConsumer(r, nil)
	c.backoff = time.Millisecond
	c.maxBackoff = 2 * time.Millisecond

	var handled []string
	failures := 0
	err = c.Run(ctx, func(_ context.Context, e OrderPaid) error {
		handled = append(handled, e.OrderRef)
		if e.OrderRef == "flaky" {
			assert.Equal(t, []int64{1}, r.committed, "nothing past a failing offset is committed")
			if failures < 2 {
				failures++
				return errors.New("boom")
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "flaky", "flaky", "flaky", "later"}, handled)
	assert.Equal(t, []int64{1, 2, 3, 4}, r.committed)
}

func TestConsumerStopsRetryingOnCancel(t *testing.T) {
	stuck, err := NewOrderPaid("stuck", 1, []int{1}).Message()
	require.NoError(t, err)
	stuck.Offset = 7

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeReader{queue: []kafka.Message{stuck}, cancel: cancel}
	c := newConsumer(r, nil)
	c.backoff = time.Millisecond

	attempts := 0
	err = c.Run(ctx, func(context.Context, OrderPaid) error {
		if attempts++; attempts == 3 {
			cancel()
		}
		return errors.New("boom")
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Empty(t, r.committed)
}
