package tools

import (
	"context"
	"fmt"
)

// SendSMSTool texts the caller a written confirmation.
type SendSMSTool struct{}

func (SendSMSTool) Name() string { return "send_sms" }

func (SendSMSTool) Description() string {
	return "Send the caller an SMS, e.g. a receipt or order confirmation. Defaults to the identified caller's number."
}

func (SendSMSTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to":   map[string]any{"type": "string", "description": "Destination number; defaults to the caller"},
			"body": map[string]any{"type": "string"},
		},
		"required": []string{"body"},
	}
}

func (SendSMSTool) Execute(ctx context.Context, args Args, env *Env) (string, error) {
	if env.SMS == nil {
		return "", fmt.Errorf("sms is not available on this deployment")
	}
	body := args.GetString("body", "")
	if body == "" {
		return "", fmt.Errorf("body is required")
	}
	to := args.GetString("to", "")
	if to == "" {
		c := env.Store.Context()
		if c.Caller == nil {
			return "", fmt.Errorf("no destination: caller not identified and no 'to' given")
		}
		to = c.Caller.Phone
	}
	if err := env.SMS.SendSMS(ctx, to, body); err != nil {
		// Transport failures are reported as this invocation's result,
		// not as a call-level error.
		return "", fmt.Errorf("sms delivery failed: %w", err)
	}
	return jsonResult(map[string]any{"sent": true, "to": to})
}
