package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/provider"
)

// BuildMessages translates a turn snapshot into the provider message
// list. Pure: given the same snapshot it always produces the same list.
// Every bot tool turn expands into one assistant entry carrying the tool
// calls followed by exactly one tool entry per invocation, in invocation
// order, as the upstream protocol requires.
func BuildMessages(systemPrompt string, ctx convo.Context, views []convo.TurnView) []provider.Message {
	messages := make([]provider.Message, 0, len(views)+2)
	messages = append(messages, provider.Message{Role: "system", Content: systemPrompt})
	if block := contextBlock(ctx); block != "" {
		messages = append(messages, provider.Message{Role: "system", Content: block})
	}

	for _, v := range views {
		switch {
		case v.Role == convo.RoleHuman && v.Kind == convo.KindText:
			messages = append(messages, provider.Message{Role: "user", Content: v.Content})

		case v.Role == convo.RoleHuman && v.Kind == convo.KindDTMF:
			messages = append(messages, provider.Message{Role: "user", Content: "[keypad] " + v.Content})

		case v.Role == convo.RoleSystem:
			messages = append(messages, provider.Message{Role: "system", Content: v.Content})

		case v.Role == convo.RoleBot && v.Kind == convo.KindText:
			content := v.Content
			if v.Interrupted {
				content += " [interrupted by caller]"
			}
			messages = append(messages, provider.Message{Role: "assistant", Content: content})

		case v.Role == convo.RoleBot && v.Kind == convo.KindTool:
			assistant := provider.Message{Role: "assistant"}
			for _, inv := range v.Invocations {
				assistant.ToolCalls = append(assistant.ToolCalls, provider.ToolCall{
					ID:        inv.ID,
					Name:      inv.Name,
					Arguments: inv.Args,
				})
			}
			messages = append(messages, assistant)
			for _, inv := range v.Invocations {
				messages = append(messages, provider.Message{
					Role:       "tool",
					ToolCallID: inv.ID,
					Content:    invocationResult(inv),
				})
			}
		}
	}
	return messages
}

// invocationResult renders an invocation's result slot. An unresolved
// invocation (abort mid-batch) is reported as such, never as a
// fabricated success.
func invocationResult(inv *convo.Invocation) string {
	switch inv.Status {
	case convo.InvocationSucceeded:
		return inv.Result
	case convo.InvocationFailed:
		return fmt.Sprintf(`{"error":%q}`, inv.Error)
	default:
		return `{"error":"tool did not finish: the call moved on"}`
	}
}

func contextBlock(ctx convo.Context) string {
	var b strings.Builder
	if ctx.Caller != nil {
		fmt.Fprintf(&b, "Caller: %s (%s), user id %s.\n", ctx.Caller.Name, ctx.Caller.Phone, ctx.Caller.UserID)
	}
	if ctx.Summary != "" {
		fmt.Fprintf(&b, "Conversation so far: %s\n", ctx.Summary)
	}
	if len(ctx.Recall) > 0 {
		b.WriteString("Possibly relevant history:\n")
		for _, r := range ctx.Recall {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if len(ctx.Governance) > 0 {
		b.WriteString("Procedure progress:\n")
		keys := make([]string, 0, len(ctx.Governance))
		for key := range ctx.Governance {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", key, ctx.Governance[key])
		}
	}
	return strings.TrimSpace(b.String())
}
