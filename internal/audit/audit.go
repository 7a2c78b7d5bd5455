// Package audit publishes call audit events to Kafka. The core treats the
// trail as advisory: publish failures are logged and never surface to the
// conversation.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event kinds recorded on the trail.
const (
	KindCallStarted         = "call_started"
	KindCallEnded           = "call_ended"
	KindGovernanceViolation = "governance_violation"
	KindHandoff             = "handoff"
	KindToolFailure         = "tool_failure"
)

// Event is one audit trail entry.
type Event struct {
	CallID string         `json:"call_id"`
	Kind   string         `json:"kind"`
	Detail string         `json:"detail,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
	Ts     time.Time      `json:"ts"`
}

// Publisher records audit events. Publish must return without waiting on
// the trail's backend: callers sit on conversational paths.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
	Close() error
}

// messageWriter is the slice of kafka.Writer the worker needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes audit events to one topic, keyed by call id so a
// call's trail stays ordered within a partition. Publish enqueues and
// returns; a worker goroutine does the broker writes, so a slow or
// unreachable broker never stalls a call.
type KafkaPublisher struct {
	writer messageWriter
	queue  chan kafka.Message

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	})
}

func newPublisher(w messageWriter) *KafkaPublisher {
	p := &KafkaPublisher{
		writer: w,
		queue:  make(chan kafka.Message, 256),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish enqueues one event and returns. When the queue is full the
// event is dropped and logged; the trail is advisory, the call is not.
func (p *KafkaPublisher) Publish(_ context.Context, ev Event) {
	if ev.Ts.IsZero() {
		ev.Ts = time.Now()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		slog.Error("audit event marshal failed", "call", ev.CallID, "kind", ev.Kind, "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(ev.CallID),
		Value: value,
		Time:  ev.Ts,
	}
	select {
	case <-p.done:
	case p.queue <- msg:
	default:
		slog.Warn("audit queue full, dropping event", "call", ev.CallID, "kind", ev.Kind)
	}
}

func (p *KafkaPublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			// Flush what is already queued before exiting.
			for {
				select {
				case msg := <-p.queue:
					p.write(msg)
				default:
					return
				}
			}
		case msg := <-p.queue:
			p.write(msg)
		}
	}
}

func (p *KafkaPublisher) write(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("audit publish failed", "call", string(msg.Key), "error", err)
	}
}

// Close drains the queue, stops the worker and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()
	return p.writer.Close()
}

// NopPublisher drops all events. Used when no brokers are configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, Event) {}

// Close does nothing.
func (NopPublisher) Close() error { return nil }
