// Package bus provides the async event bus between the telephony relay
// and the call sessions.
package bus

import (
	"context"
	"sync"
	"time"
)

// Inbound event kinds.
const (
	EventCallStarted = "call_started"
	EventCallEnded   = "call_ended"
	EventHumanText   = "human_text"
	EventHumanDTMF   = "human_dtmf"
	// EventBargeIn signals the caller started talking over the bot; the
	// session aborts the in-flight completion.
	EventBargeIn = "barge_in"
)

// Outbound command kinds.
const (
	CommandSpeak    = "speak"
	CommandSendDTMF = "send_dtmf"
	CommandSendSMS  = "send_sms"
	CommandEndCall  = "end_call"
)

// InboundEvent is a transcript-side event from the relay to a session.
type InboundEvent struct {
	CallID     string         `json:"call_id"`
	Kind       string         `json:"kind"`
	Content    string         `json:"content,omitempty"`
	CallerID   string         `json:"caller_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ReceivedAt time.Time      `json:"received_at"`
}

// OutboundCommand is a speech-side command from a session to the relay.
type OutboundCommand struct {
	CallID string `json:"call_id"`
	Kind   string `json:"kind"`
	Text   string `json:"text,omitempty"`
	// Interruptible marks speech the caller may barge in over.
	Interruptible bool           `json:"interruptible,omitempty"`
	Digits        string         `json:"digits,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// Bus decouples the relay from the call sessions.
type Bus struct {
	inbound  chan *InboundEvent
	outbound chan *OutboundCommand
	subs     map[string][]func(*OutboundCommand)
	mu       sync.RWMutex
}

// New creates an event bus.
func New() *Bus {
	return &Bus{
		inbound:  make(chan *InboundEvent, 100),
		outbound: make(chan *OutboundCommand, 100),
		subs:     make(map[string][]func(*OutboundCommand)),
	}
}

// PublishInbound sends a transcript event toward the sessions.
func (b *Bus) PublishInbound(ev *InboundEvent) {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	b.inbound <- ev
}

// ConsumeInbound blocks until an event is available or ctx is cancelled.
func (b *Bus) ConsumeInbound(ctx context.Context) (*InboundEvent, error) {
	select {
	case ev := <-b.inbound:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PublishOutbound sends a command toward the relay.
func (b *Bus) PublishOutbound(cmd *OutboundCommand) {
	b.outbound <- cmd
}

// Subscribe registers a callback for commands addressed to one call.
func (b *Bus) Subscribe(callID string, callback func(*OutboundCommand)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[callID] = append(b.subs[callID], callback)
}

// Unsubscribe drops all callbacks for a call.
func (b *Bus) Unsubscribe(callID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, callID)
}

// DispatchOutbound runs the outbound command dispatcher. Run as a
// goroutine; returns when ctx is cancelled.
func (b *Bus) DispatchOutbound(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-b.outbound:
			b.mu.RLock()
			callbacks := b.subs[cmd.CallID]
			b.mu.RUnlock()
			for _, cb := range callbacks {
				cb(cmd)
			}
		}
	}
}
