package tools

import (
	"context"
	"fmt"
)

// EndCallTool hangs up after the farewell has been spoken.
type EndCallTool struct{}

func (EndCallTool) Name() string { return "end_call" }

func (EndCallTool) Description() string {
	return "End the call. Say goodbye first; this hangs up immediately. Pass ticket_id when transferring to a human."
}

func (EndCallTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason":    map[string]any{"type": "string"},
			"ticket_id": map[string]any{"type": "string"},
		},
	}
}

func (EndCallTool) Execute(ctx context.Context, args Args, env *Env) (string, error) {
	payload := map[string]any{}
	if reason := args.GetString("reason", ""); reason != "" {
		payload["reason"] = reason
	}
	if ticket := args.GetString("ticket_id", ""); ticket != "" {
		payload["ticket_id"] = ticket
	}
	if env.Engine != nil {
		env.Engine.Finish()
	}
	if err := env.Relay.EndCall(payload); err != nil {
		return "", fmt.Errorf("hangup failed: %w", err)
	}
	return `{"ended":true}`, nil
}

// SendDTMFTool emits keypad digits, for bridging into IVR menus.
type SendDTMFTool struct{}

func (SendDTMFTool) Name() string { return "send_dtmf" }

func (SendDTMFTool) Description() string {
	return "Send DTMF keypad digits on the call."
}

func (SendDTMFTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"digits": map[string]any{"type": "string", "description": "Digits 0-9, * and #"},
		},
		"required": []string{"digits"},
	}
}

func (SendDTMFTool) Execute(ctx context.Context, args Args, env *Env) (string, error) {
	digits := args.GetString("digits", "")
	if digits == "" {
		return "", fmt.Errorf("digits is required")
	}
	if err := env.Relay.SendDTMF(digits); err != nil {
		return "", fmt.Errorf("dtmf failed: %w", err)
	}
	return `{"sent":true}`, nil
}

// DefaultRegistry builds the registry with the standard tool set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FindUserTool{})
	r.Register(GetUserOrdersTool{})
	r.Register(GetOrderEventsTool{})
	r.Register(SendSMSTool{})
	r.Register(TakePaymentTool{})
	r.Register(HandoffTool{})
	r.Register(SendDTMFTool{})
	r.Register(EndCallTool{})
	return r
}
