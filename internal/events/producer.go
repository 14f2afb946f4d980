package events

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrProducerClosed = errors.New("producer closed")

type Publisher interface {
	PublishOrderPaid(ctx context.Context, e OrderPaid) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues messages on a buffered inbox and writes them from a
// single goroutine. Close drains the inbox before closing the writer.
type Producer struct {
	w      messageWriter
	inbox  chan kafka.Message
	done   chan struct{}
	log    *zap.Logger
	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, buf, log)
}

func newProducer(w messageWriter, buf int, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Producer{
		w:     w,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
		log:   log,
	}
	go p.loop()
	return p
}

func (p *Producer) loop() {
	defer close(p.done)
	for m := range p.inbox {
		if err := p.w.WriteMessages(context.Background(), m); err != nil {
			p.log.Error("failed to publish event", zap.ByteString("key", m.Key), zap.Error(err))
		}
	}
	if err := p.w.Close(); err != nil {
		p.log.Warn("failed to close kafka writer", zap.Error(err))
	}
}

// PublishOrderPaid enqueues the event. It blocks only while the inbox is full.
func (p *Producer) PublishOrderPaid(ctx context.Context, e OrderPaid) error {
	m, err := e.Message()
	if err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes queued messages and waits for the writer to shut down.
func (p *Producer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}
