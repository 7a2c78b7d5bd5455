package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/ringline/ringline/internal/audit"
	"github.com/ringline/ringline/internal/handoff"
)

// HandoffTool opens an operator ticket and prepares the transfer.
type HandoffTool struct{}

func (HandoffTool) Name() string { return "handoff_human" }

func (HandoffTool) Description() string {
	return "Open a ticket for a human agent and transfer the call. Use when the caller asks for a person or the request is out of policy."
}

func (HandoffTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason":  map[string]any{"type": "string"},
			"summary": map[string]any{"type": "string", "description": "What the agent needs to know before picking up"},
		},
		"required": []string{"reason"},
	}
}

func (HandoffTool) Execute(ctx context.Context, args Args, env *Env) (string, error) {
	if env.Handoff == nil {
		return "", fmt.Errorf("no human agents are reachable from this deployment")
	}
	reason := args.GetString("reason", "")
	summary := args.GetString("summary", "")
	if summary == "" {
		summary = env.Store.Context().Summary
	}

	caller := "unknown caller"
	if c := env.Store.Context().Caller; c != nil {
		caller = fmt.Sprintf("%s (%s)", c.Name, c.Phone)
	}

	ticketID := env.Handoff.Open(ctx, &handoff.Ticket{
		CallID:  env.Store.CallID(),
		Caller:  caller,
		Reason:  reason,
		Summary: summary,
	})
	// Operator decisions arrive later; surface them through the parking
	// lot so the next completion can relay the outcome.
	store := env.Store
	mgr := env.Handoff
	go func() {
		waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		accepted, err := mgr.Wait(waitCtx, ticketID)
		if err != nil {
			return
		}
		if accepted {
			store.EnqueueNotice(fmt.Sprintf("An agent accepted handoff ticket %s and is ready to take the call.", ticketID))
		} else {
			store.EnqueueNotice(fmt.Sprintf("No agent is available for ticket %s; apologize and offer a callback.", ticketID))
		}
	}()

	if env.Audit != nil {
		env.Audit.Publish(ctx, audit.Event{
			CallID: env.Store.CallID(),
			Kind:   audit.KindHandoff,
			Detail: reason,
			Meta:   map[string]any{"ticket_id": ticketID},
		})
	}
	return jsonResult(map[string]any{
		"ticket_id": ticketID,
		"next":      "say goodbye, then call end_call with this ticket_id so the switch transfers the caller",
	})
}

func (HandoffTool) FillerPhrase(args Args) string {
	return "Let me get someone on the line for you."
}
