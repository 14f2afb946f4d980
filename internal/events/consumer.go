package events

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type OrderPaidHandler func(ctx context.Context, e OrderPaid) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	retryBackoff    = 500 * time.Millisecond
	maxRetryBackoff = 30 * time.Second
)

// Consumer commits an offset only after its handler succeeds. A failing
// message is retried with backoff and blocks its partition until it is
// handled, since commits are cumulative. Messages that cannot be decoded
// are logged and committed.
type Consumer struct {
	r          messageReader
	log        *zap.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, log *zap.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	}), log)
}

func newConsumer(r messageReader, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{r: r, log: log, backoff: retryBackoff, maxBackoff: maxRetryBackoff}
}

// Run processes messages until ctx is canceled.
func (c *Consumer) Run(ctx context.Context, h OrderPaidHandler) error {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		e, err := DecodeOrderPaid(m)
		if err != nil {
			c.log.Warn("dropping undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
			c.commit(ctx, m)
			continue
		}
		if err := c.handle(ctx, h, e); err != nil {
			return nil
		}
		c.commit(ctx, m)
	}
}

// handle retries h until it succeeds. It only fails when ctx is done.
func (c *Consumer) handle(ctx context.Context, h OrderPaidHandler, e OrderPaid) error {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, e)
		if err == nil {
			return nil
		}
		c.log.Error("event handler failed", zap.String("order_ref", e.OrderRef),
			zap.Int("attempt", attempt), zap.Duration("retry_in", wait), zap.Error(err))
		if ctx.Err() != nil {
			return ctx.Err()
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if wait *= 2; wait > c.maxBackoff {
			wait = c.maxBackoff
		}
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.r.CommitMessages(ctx, m); err != nil {
		c.log.Warn("failed to commit offset", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}
