package relay

import (
	"context"

	"github.com/ringline/ringline/internal/bus"
)

// BusSMSSender delivers text messages through the telephony transport's
// messaging side-channel.
type BusSMSSender struct {
	bus    *bus.Bus
	callID string
}

// NewBusSMSSender creates a sender bound to one call.
func NewBusSMSSender(b *bus.Bus, callID string) *BusSMSSender {
	return &BusSMSSender{bus: b, callID: callID}
}

// SendSMS publishes a send_sms command.
func (s *BusSMSSender) SendSMS(_ context.Context, to, body string) error {
	s.bus.PublishOutbound(&bus.OutboundCommand{
		CallID: s.callID,
		Kind:   bus.CommandSendSMS,
		Payload: map[string]any{
			"to":   to,
			"body": body,
		},
	})
	return nil
}
