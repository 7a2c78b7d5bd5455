// Package engine drives the conscious completion loop for one call:
// it turns the turn history into provider requests, materializes the
// delta stream into store mutations and executes requested tool batches
// until the model produces a final spoken turn.
package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/provider"
	"github.com/ringline/ringline/internal/tools"
)

// Engine states. Finished is terminal; every other state can be left.
const (
	StateIdle           = "idle"
	StateAwaitingModel  = "awaiting_model"
	StateExecutingTools = "executing_tools"
	StateFinished       = "finished"
	StateAborted        = "aborted"
)

// Config tunes one call's completion loop.
type Config struct {
	// Model overrides the provider default when non-empty.
	Model       string
	MaxTokens   int
	Temperature float64
	// MaxRounds caps how many tool batches one Run may execute before
	// the loop gives up and settles. Guards against a model that keeps
	// requesting tools forever.
	MaxRounds int
	// FillerDelay is how long a tool batch may run silently before a
	// filler phrase is spoken.
	FillerDelay time.Duration
}

func (c *Config) defaults() {
	if c.MaxRounds <= 0 {
		c.MaxRounds = 8
	}
	if c.FillerDelay <= 0 {
		c.FillerDelay = 500 * time.Millisecond
	}
}

// run is the per-Run mutable state. A new one supersedes the old on
// every Run; Abort flags the current one so late deltas are dropped.
type run struct {
	cancel  context.CancelFunc
	aborted bool
	text    *convo.TextHandle
	tool    *convo.ToolHandle
}

// Engine owns the conscious loop of a single call. At most one
// completion is in flight at a time; starting a new one aborts the
// previous one first.
type Engine struct {
	store        *convo.Store
	prov         provider.Provider
	registry     *tools.Registry
	env          tools.Env
	events       Events
	systemPrompt string
	cfg          Config

	mu       sync.Mutex
	state    string
	current  *run
	finished bool

	wg sync.WaitGroup
}

// New builds an engine for one call. The env's Engine slot is filled in
// here so tools can stop the loop.
func New(store *convo.Store, prov provider.Provider, registry *tools.Registry, env tools.Env, events Events, systemPrompt string, cfg Config) *Engine {
	cfg.defaults()
	if events == nil {
		events = NopEvents{}
	}
	if cfg.Model == "" {
		cfg.Model = prov.DefaultModel()
	}
	e := &Engine{
		store:        store,
		prov:         prov,
		registry:     registry,
		env:          env,
		events:       events,
		systemPrompt: systemPrompt,
		cfg:          cfg,
		state:        StateIdle,
	}
	e.env.Store = store
	e.env.Engine = e
	return e
}

// State returns the current loop state.
func (e *Engine) State() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Run starts a completion over the current history. If a completion is
// already in flight it is aborted before any new store mutation. The
// loop runs on its own goroutine; Wait blocks until it settles.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return
	}
	old := e.current
	e.abortLocked()
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel}
	e.current = r
	e.state = StateAwaitingModel
	e.mu.Unlock()
	if old != nil {
		old.cancel()
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		e.loop(runCtx, r)
	}()
}

// Wait blocks until no completion is in flight.
func (e *Engine) Wait() { e.wg.Wait() }

// Abort stops the active completion, if any. Idempotent and safe to
// call when nothing is running. Text spoken so far stays in the store
// marked interrupted; unresolved invocations stay unresolved.
func (e *Engine) Abort() {
	e.mu.Lock()
	r := e.current
	e.abortLocked()
	e.mu.Unlock()
	if r != nil {
		r.cancel()
	}
}

// abortLocked flags the current run as aborted. Callers hold e.mu.
func (e *Engine) abortLocked() {
	r := e.current
	if r == nil || r.aborted {
		return
	}
	r.aborted = true
	if r.text != nil {
		r.text.MarkInterrupted()
	}
	if !e.finished {
		e.state = StateAborted
	}
}

// Finish stops the loop for good once the current batch resolves. Used
// by tools that terminate the call; no follow-up completion is started.
func (e *Engine) Finish() {
	e.mu.Lock()
	e.finished = true
	e.state = StateFinished
	e.mu.Unlock()
}

func (e *Engine) isAborted(r *run) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return r.aborted
}

// settle moves the loop to its rest state unless this run was
// superseded or the call finished in the meantime.
func (e *Engine) settle(r *run, state string) {
	e.mu.Lock()
	if e.current == r && !r.aborted && !e.finished {
		e.state = state
		e.current = nil
	}
	e.mu.Unlock()
}

// loop runs completion rounds until the model stops asking for tools,
// the round cap is hit, the run is aborted or a tool finishes the call.
func (e *Engine) loop(ctx context.Context, r *run) {
	for round := 0; round < e.cfg.MaxRounds; round++ {
		finish, ok := e.completeOnce(ctx, r)
		if !ok {
			return
		}
		if finish != provider.FinishToolCalls {
			e.settle(r, StateIdle)
			return
		}

		e.mu.Lock()
		if r.aborted {
			e.mu.Unlock()
			return
		}
		e.state = StateExecutingTools
		e.mu.Unlock()

		e.executeBatch(ctx, r)

		e.mu.Lock()
		done := e.finished || r.aborted
		if !r.aborted && !e.finished {
			e.state = StateAwaitingModel
		}
		// a fresh round streams into fresh handles
		r.text, r.tool = nil, nil
		e.mu.Unlock()
		if done {
			return
		}
	}
	slog.Warn("completion round cap reached", "call", e.store.CallID(), "rounds", e.cfg.MaxRounds)
	e.settle(r, StateIdle)
}

// completeOnce drives a single provider completion to its finish
// reason. Returns ok=false when the run was aborted or failed.
func (e *Engine) completeOnce(ctx context.Context, r *run) (string, bool) {
	e.drainParkingLot()

	req := &provider.ChatRequest{
		Messages:    BuildMessages(e.systemPrompt, e.store.Context(), e.store.Snapshot()),
		Tools:       e.registry.Definitions(),
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	}
	stream, err := e.prov.ChatStream(ctx, req)
	if err != nil {
		if !e.isAborted(r) {
			slog.Error("completion request failed", "call", e.store.CallID(), "error", err)
			e.settle(r, StateIdle)
		}
		return "", false
	}
	defer stream.Close()

	var (
		finish string
		first  = true
	)
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !e.isAborted(r) {
				slog.Error("completion stream failed", "call", e.store.CallID(), "error", err)
				e.settle(r, StateIdle)
			}
			return "", false
		}
		if first {
			if delta.Text == "" && delta.ToolCall == nil {
				// the very first delta must carry content; anything
				// else is an upstream protocol violation
				slog.Error("completion opened without content", "call", e.store.CallID(), "finish", delta.FinishReason)
				e.Abort()
				return "", false
			}
			first = false
			e.events.CompletionStarted(e.store.CallID())
		}
		if !e.apply(r, delta) {
			return "", false
		}
		if delta.FinishReason != "" {
			finish = delta.FinishReason
		}
	}

	if first {
		slog.Error("completion stream ended without deltas", "call", e.store.CallID())
		e.Abort()
		return "", false
	}
	return e.finalize(r, finish)
}

// apply materializes one delta into the store. Returns false when the
// run was aborted; nothing is appended after abort.
func (e *Engine) apply(r *run, delta provider.Delta) bool {
	e.mu.Lock()
	if r.aborted {
		e.mu.Unlock()
		return false
	}
	switch {
	case delta.Text != "":
		if r.text == nil {
			r.text = e.store.BeginStreamingText("")
		}
		r.text.Append(delta.Text)
		e.mu.Unlock()
		e.events.TextFragment(e.store.CallID(), delta.Text)
		return true

	case delta.ToolCall != nil:
		tc := delta.ToolCall
		if r.tool == nil {
			r.tool = e.store.BeginStreamingTool()
		}
		if tc.ID != "" || tc.Name != "" {
			r.tool.StartInvocation(tc.Index, tc.ID)
		}
		if tc.Name != "" {
			r.tool.AppendName(tc.Index, tc.Name)
		}
		if tc.Args != "" {
			r.tool.AppendArgs(tc.Index, tc.Args)
		}
	}
	e.mu.Unlock()
	return true
}

// finalize marks the streamed turn for sync and emits the finished
// signal. Returns ok=false when the run was aborted meanwhile.
func (e *Engine) finalize(r *run, finish string) (string, bool) {
	e.mu.Lock()
	if r.aborted {
		e.mu.Unlock()
		return "", false
	}
	text, tool := r.text, r.tool
	e.mu.Unlock()

	var final convo.Turn
	switch {
	case finish == provider.FinishToolCalls && tool != nil:
		final = tool.Finalize()
	case text != nil:
		final = text.Finalize()
	case tool != nil:
		// model produced tool calls but reported another finish reason;
		// trust the content over the label
		finish = provider.FinishToolCalls
		final = tool.Finalize()
	}
	e.events.CompletionFinished(e.store.CallID(), final, finish)
	return finish, true
}

// drainParkingLot turns pending notices into system turns. A synthetic
// human turn follows so the model acknowledges the new material aloud.
func (e *Engine) drainParkingLot() {
	notices := e.store.DrainNotices()
	if len(notices) == 0 {
		return
	}
	for _, n := range notices {
		e.store.AppendSystem(n)
	}
	e.store.AppendHumanText("(updated guidance above: acknowledge it naturally, do not read it out)")
}
