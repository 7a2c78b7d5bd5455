package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ringline/ringline/internal/audit"
	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/tools"
)

// executeBatch resolves every invocation of the current tool turn
// concurrently with settle-all semantics: one invocation failing never
// aborts its siblings. A filler timer covers the latency; if the batch
// settles first the timer is canceled and nothing is spoken.
func (e *Engine) executeBatch(ctx context.Context, r *run) {
	e.mu.Lock()
	tool := r.tool
	e.mu.Unlock()
	if tool == nil {
		return
	}
	invs := tool.Invocations()

	settled := make(chan struct{})
	timer := time.AfterFunc(e.cfg.FillerDelay, func() {
		e.speakFiller(r, invs, settled)
	})
	defer timer.Stop()

	var wg sync.WaitGroup
	for _, inv := range invs {
		wg.Add(1)
		go func(inv convo.Invocation) {
			defer wg.Done()
			e.executeInvocation(ctx, inv)
		}(inv)
	}
	wg.Wait()
	close(settled)

	tool.Finalize()
}

// executeInvocation runs one invocation end to end and records its
// result. Unknown tool names are fatal for the invocation, never for
// the batch; execution errors are captured as the invocation's own
// result so the model can react in-conversation.
func (e *Engine) executeInvocation(ctx context.Context, inv convo.Invocation) {
	callID := e.store.CallID()

	tool, ok := e.registry.Get(inv.Name)
	if !ok {
		err := fmt.Errorf("unknown tool: %q", inv.Name)
		slog.Error("tool lookup failed", "call", callID, "tool", inv.Name)
		e.events.ToolFailed(callID, inv.Name, err)
		e.resolve(inv.ID, convo.InvocationFailed, "", err.Error())
		return
	}

	e.events.ToolStarted(callID, inv.Name)
	args := tools.ParseArgs(inv.Args)
	env := e.env

	result, err := tool.Execute(ctx, args, &env)
	if err != nil {
		slog.Warn("tool failed", "call", callID, "tool", inv.Name, "error", err)
		e.events.ToolFailed(callID, inv.Name, err)
		if env.Audit != nil {
			env.Audit.Publish(ctx, audit.Event{
				CallID: callID,
				Kind:   audit.KindToolFailure,
				Detail: inv.Name,
				Meta:   map[string]any{"error": err.Error()},
			})
		}
		e.resolve(inv.ID, convo.InvocationFailed, "", err.Error())
		return
	}
	e.events.ToolFinished(callID, inv.Name)
	e.resolve(inv.ID, convo.InvocationSucceeded, result, "")
}

func (e *Engine) resolve(invocationID, status, result, errMsg string) {
	if err := e.store.ResolveInvocation(invocationID, status, result, errMsg); err != nil {
		slog.Error("resolve invocation failed", "call", e.store.CallID(), "invocation", invocationID, "error", err)
	}
}

// speakFiller runs when the filler timer fires before the batch
// settles. The first tool in invocation order that offers a phrase for
// its arguments wins; a batch speaks at most one filler.
func (e *Engine) speakFiller(r *run, invs []convo.Invocation, settled <-chan struct{}) {
	select {
	case <-settled:
		return
	default:
	}

	var phrase string
	for _, inv := range invs {
		tool, ok := e.registry.Get(inv.Name)
		if !ok {
			continue
		}
		if p, ok := tools.Filler(tool, tools.ParseArgs(inv.Args)); ok {
			phrase = p
			break
		}
	}
	if phrase == "" {
		return
	}

	e.mu.Lock()
	if r.aborted || e.finished {
		e.mu.Unlock()
		return
	}
	e.store.Append(&convo.Turn{Role: convo.RoleBot, Kind: convo.KindText, Content: phrase})
	e.mu.Unlock()
	e.events.FillerSpoken(e.store.CallID(), phrase)
}
