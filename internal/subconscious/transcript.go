package subconscious

import (
	"fmt"
	"strings"

	"github.com/ringline/ringline/internal/convo"
)

// Transcript renders the non-system turns for an analysis prompt. Tool
// results are truncated to the character budget so the prompt stays
// small regardless of what the tools returned.
func Transcript(views []convo.TurnView, toolResultBudget int) string {
	var b strings.Builder
	for _, v := range views {
		switch {
		case v.Role == convo.RoleSystem:
			continue
		case v.Role == convo.RoleHuman && v.Kind == convo.KindDTMF:
			fmt.Fprintf(&b, "caller (keypad): %s\n", v.Content)
		case v.Role == convo.RoleHuman:
			fmt.Fprintf(&b, "caller: %s\n", v.Content)
		case v.Kind == convo.KindTool:
			for _, inv := range v.Invocations {
				fmt.Fprintf(&b, "bot used %s -> %s\n", inv.Name, truncate(invocationOutcome(inv), toolResultBudget))
			}
		default:
			fmt.Fprintf(&b, "bot: %s\n", v.Content)
		}
	}
	return b.String()
}

func invocationOutcome(inv *convo.Invocation) string {
	switch inv.Status {
	case convo.InvocationSucceeded:
		return inv.Result
	case convo.InvocationFailed:
		return "error: " + inv.Error
	default:
		return "(pending)"
	}
}

func truncate(s string, budget int) string {
	if budget <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= budget {
		return s
	}
	return string(r[:budget]) + "…"
}

// lastHumanText returns the most recent caller utterance, if any.
func lastHumanText(views []convo.TurnView) (string, bool) {
	for i := len(views) - 1; i >= 0; i-- {
		v := views[i]
		if v.Role == convo.RoleHuman && v.Kind == convo.KindText {
			return v.Content, true
		}
	}
	return "", false
}
