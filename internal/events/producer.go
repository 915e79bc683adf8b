package events

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher is the narrow interface services depend on. A nil *Producer is a
// valid Publisher that drops events, so the stream can be disabled by config.
type Publisher interface {
	Publish(env Envelope)
}

// Producer buffers envelopes in an inbox channel and writes them to Kafka
// asynchronously from a single goroutine. The inbox channel is never closed;
// shutdown is signalled through quit, so Publish can never hit a closed
// channel no matter how Close and context cancellation interleave.
type Producer struct {
	w         *kafka.Writer
	inbox     chan kafka.Message
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox: make(chan kafka.Message, buf),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start runs the writer loop until ctx is cancelled or Close is called, then
// flushes whatever the inbox still holds.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		defer func() { _ = p.w.Close() }()
		for {
			select {
			case <-ctx.Done():
				p.flush()
				return
			case <-p.quit:
				p.flush()
				return
			case m := <-p.inbox:
				if err := p.w.WriteMessages(context.Background(), m); err != nil {
					log.Printf("events: write: %v", err)
				}
			}
		}
	}()
}

// flush drains the buffered messages without waiting for new ones.
func (p *Producer) flush() {
	for {
		select {
		case m := <-p.inbox:
			_ = p.w.WriteMessages(context.Background(), m)
		default:
			return
		}
	}
}

// Publish enqueues the envelope. A nil producer, a closed producer, or a full
// inbox drops the event; the durable notification record remains the reliable
// path.
func (p *Producer) Publish(env Envelope) {
	if p == nil {
		return
	}
	select {
	case <-p.quit:
		return
	default:
	}
	b, err := json.Marshal(env)
	if err != nil {
		log.Printf("events: marshal: %v", err)
		return
	}
	m := kafka.Message{
		Key:   PartitionKey(env.CorrelationID),
		Value: b,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	}
	select {
	case p.inbox <- m:
	default:
		log.Printf("events: inbox full, dropping %s for order %s", env.EventType, env.CorrelationID)
	}
}

// Close stops accepting events and lets the loop flush what remains. Safe to
// call more than once, and in any order relative to context cancellation.
func (p *Producer) Close() { p.closeOnce.Do(func() { close(p.quit) }) }

// WaitClosed blocks until the writer loop has exited.
func (p *Producer) WaitClosed() { <-p.done }
