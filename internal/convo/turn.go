// Package convo provides the per-call turn log and call context.
package convo

import (
	"time"
)

// Turn roles.
const (
	RoleHuman  = "human"
	RoleBot    = "bot"
	RoleSystem = "system"
)

// Turn kinds.
const (
	KindText = "text"
	KindDTMF = "dtmf"
	KindTool = "tool"
)

// Invocation result status.
const (
	InvocationPending   = "pending"
	InvocationSucceeded = "succeeded"
	InvocationFailed    = "failed"
)

// Turn is one entry in a call's conversation log.
type Turn struct {
	ID        string    `json:"id"`
	CallID    string    `json:"call_id"`
	Role      string    `json:"role"`
	Kind      string    `json:"kind"`
	Seq       int64     `json:"seq"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// Interrupted is set on bot text turns whose playback was cut off.
	Interrupted bool `json:"interrupted,omitempty"`
	// Invocations is populated on bot tool turns. All invocations of one
	// turn share the turn's Seq; each resolves independently.
	Invocations []*Invocation `json:"invocations,omitempty"`
}

// Invocation is a single tool call inside a bot tool turn.
type Invocation struct {
	ID string `json:"id"`
	// Index is the invocation's position among parallel calls in the batch.
	Index int    `json:"index"`
	Name  string `json:"name"`
	// Args is the raw argument buffer. It is streamed as string fragments
	// and stays opaque until the stream is complete.
	Args   string `json:"args"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Resolved reports whether the invocation has a final result.
func (inv *Invocation) Resolved() bool {
	return inv.Status != InvocationPending
}

// TurnView is a snapshot entry: a copy of a turn annotated with its
// position in the seq-ordered log. Position is for display and targeting
// only; ordering logic always uses Seq.
type TurnView struct {
	Turn
	Position int `json:"position"`
}

func copyTurn(t *Turn) Turn {
	cp := *t
	if t.Invocations != nil {
		cp.Invocations = make([]*Invocation, len(t.Invocations))
		for i, inv := range t.Invocations {
			ic := *inv
			cp.Invocations[i] = &ic
		}
	}
	return cp
}
