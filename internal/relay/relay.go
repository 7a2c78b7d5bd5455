// Package relay bridges call sessions to the telephony transport. The
// core never touches audio; it sees transcript events and issues speech
// commands.
package relay

import (
	"github.com/ringline/ringline/internal/bus"
)

// Relay is the speech side of the transport collaborator.
type Relay interface {
	// Speak plays text to the caller. Interruptible speech may be cut
	// off by barge-in.
	Speak(text string, interruptible bool) error
	// SendDTMF emits keypad digits toward the far end.
	SendDTMF(digits string) error
	// EndCall hangs up, optionally carrying a handoff payload for the
	// switch (transfer target, ticket reference).
	EndCall(payload map[string]any) error
}

// BusRelay implements Relay by publishing commands for one call onto the
// event bus. The transport listening on the other side does the talking.
type BusRelay struct {
	bus    *bus.Bus
	callID string
}

// NewBusRelay creates a relay bound to one call.
func NewBusRelay(b *bus.Bus, callID string) *BusRelay {
	return &BusRelay{bus: b, callID: callID}
}

// Speak publishes a speak command.
func (r *BusRelay) Speak(text string, interruptible bool) error {
	r.bus.PublishOutbound(&bus.OutboundCommand{
		CallID:        r.callID,
		Kind:          bus.CommandSpeak,
		Text:          text,
		Interruptible: interruptible,
	})
	return nil
}

// SendDTMF publishes a dtmf command.
func (r *BusRelay) SendDTMF(digits string) error {
	r.bus.PublishOutbound(&bus.OutboundCommand{
		CallID: r.callID,
		Kind:   bus.CommandSendDTMF,
		Digits: digits,
	})
	return nil
}

// EndCall publishes an end-call command.
func (r *BusRelay) EndCall(payload map[string]any) error {
	r.bus.PublishOutbound(&bus.OutboundCommand{
		CallID:  r.callID,
		Kind:    bus.CommandEndCall,
		Payload: payload,
	})
	return nil
}
