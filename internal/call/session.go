// Package call ties one phone call together: the store, the conscious
// engine, the subconscious loop and the relay bound to that call.
package call

import (
	"context"
	"log/slog"
	"time"

	"github.com/ringline/ringline/internal/audit"
	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/engine"
	"github.com/ringline/ringline/internal/relay"
	"github.com/ringline/ringline/internal/subconscious"
)

// Session is the per-call aggregate. All mutation goes through the
// manager's event loop, one event at a time per call.
type Session struct {
	callID    string
	store     *convo.Store
	engine    *engine.Engine
	sub       *subconscious.Loop
	relay     relay.Relay
	audit     audit.Publisher
	startedAt time.Time
}

// CallID returns the session's call identifier.
func (s *Session) CallID() string { return s.callID }

// Store returns the session's message store.
func (s *Session) Store() *convo.Store { return s.store }

// State returns the engine state, for the status surface.
func (s *Session) State() string { return s.engine.State() }

// HumanText feeds a transcribed utterance and starts a completion. An
// in-flight completion is superseded.
func (s *Session) HumanText(ctx context.Context, content string) {
	s.store.AppendHumanText(content)
	s.engine.Run(ctx)
}

// HumanDTMF feeds keypad input and starts a completion.
func (s *Session) HumanDTMF(ctx context.Context, digits string) {
	s.store.AppendHumanDTMF(digits)
	s.engine.Run(ctx)
}

// BargeIn aborts the in-flight completion; the caller talked over the
// bot and the transport already cut playback.
func (s *Session) BargeIn() {
	s.engine.Abort()
}

// Close ends the session: aborts any completion, runs the final
// subconscious pass so lingering steps get their last verdict, and
// records the audit trail.
func (s *Session) Close(ctx context.Context) {
	s.engine.Abort()
	s.sub.Stop()
	s.sub.RunOnce(ctx)
	s.sub.Index(ctx)
	s.audit.Publish(ctx, audit.Event{
		CallID: s.callID,
		Kind:   audit.KindCallEnded,
		Meta:   map[string]any{"duration_ms": time.Since(s.startedAt).Milliseconds()},
		Ts:     time.Now(),
	})
	slog.Info("call ended", "call", s.callID, "duration", time.Since(s.startedAt))
}
