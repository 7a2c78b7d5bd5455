package subconscious

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ringline/ringline/internal/audit"
	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/procedure"
	"github.com/ringline/ringline/internal/provider"
	"github.com/ringline/ringline/internal/recall"
)

// Config tunes one call's subconscious loop.
type Config struct {
	// Model overrides the provider default when non-empty.
	Model string
	// Interval between periodic passes.
	Interval time.Duration
	// ToolResultBudget caps how many characters of a tool result make
	// it into an analysis prompt.
	ToolResultBudget int
	// RecallLimit caps similarity suggestions per pass.
	RecallLimit int
}

func (c *Config) defaults() {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.ToolResultBudget <= 0 {
		c.ToolResultBudget = 100
	}
	if c.RecallLimit <= 0 {
		c.RecallLimit = 3
	}
}

// Loop runs the background analyses for one call. It only ever reads
// store snapshots; its writes go through SetContext and the parking
// lot, so the conscious loop is never blocked on it.
type Loop struct {
	store   *convo.Store
	prov    provider.Provider
	tracker *Tracker
	vectors recall.VectorStore
	audit   audit.Publisher
	cfg     Config

	workflows string

	mu      sync.Mutex
	lastSeq int64
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewLoop builds a loop. Vectors may be nil (recall disabled); aud may
// be nil (no audit trail).
func NewLoop(store *convo.Store, prov provider.Provider, catalog *procedure.Catalog, vectors recall.VectorStore, aud audit.Publisher, cfg Config) *Loop {
	cfg.defaults()
	if cfg.Model == "" {
		cfg.Model = prov.DefaultModel()
	}
	if aud == nil {
		aud = audit.NopPublisher{}
	}
	return &Loop{
		store:     store,
		prov:      prov,
		tracker:   NewTracker(store.CallID(), catalog),
		vectors:   vectors,
		audit:     aud,
		cfg:       cfg,
		workflows: catalog.Describe(),
	}
}

// Tracker exposes the governance state machine, mostly for the status
// surface and tests.
func (l *Loop) Tracker() *Tracker { return l.tracker }

// Start runs periodic passes until Stop or ctx cancellation.
func (l *Loop) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.RunOnce(ctx)
			}
		}
	}()
}

// Stop halts the periodic passes and waits for an in-flight one.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// RunOnce executes a single analysis pass. Skipped when the transcript
// has not advanced since the previous pass. Also called directly on
// call end for the final verdict.
func (l *Loop) RunOnce(ctx context.Context) {
	views := l.store.Snapshot()
	if len(views) == 0 {
		return
	}
	top := views[len(views)-1].Seq

	l.mu.Lock()
	if top <= l.lastSeq {
		l.mu.Unlock()
		return
	}
	l.lastSeq = top
	l.mu.Unlock()

	transcript := Transcript(views, l.cfg.ToolResultBudget)
	l.governancePass(ctx, transcript)
	l.summaryPass(ctx, transcript)
	l.recallPass(ctx, views)
}

// Index writes the call's final summary into the vector store so future
// calls can surface it as a recall suggestion. Called once at call end,
// after the last analysis pass has refreshed the summary.
func (l *Loop) Index(ctx context.Context) {
	summary := l.store.Context().Summary
	if summary == "" {
		return
	}
	if err := indexSummary(ctx, l.prov, l.vectors, l.store.CallID(), summary); err != nil {
		slog.Warn("recall index failed", "call", l.store.CallID(), "error", err)
	}
}

func (l *Loop) governancePass(ctx context.Context, transcript string) {
	proposals, err := analyzeGovernance(ctx, l.prov, l.cfg.Model, l.workflows, transcript)
	if err != nil {
		slog.Warn("governance pass failed", "call", l.store.CallID(), "error", err)
		return
	}
	violations := l.tracker.Apply(proposals)
	l.store.SetContext(convo.ContextPatch{Governance: l.tracker.Snapshot()})

	for _, v := range violations {
		l.store.EnqueueNotice(v.Notice())
		l.audit.Publish(ctx, audit.Event{
			CallID: l.store.CallID(),
			Kind:   audit.KindGovernanceViolation,
			Detail: v.Notice(),
			Meta:   map[string]any{"procedure": v.Procedure, "step": v.Step, "status": v.Status},
			Ts:     time.Now(),
		})
	}
}

func (l *Loop) summaryPass(ctx context.Context, transcript string) {
	summary, err := summarize(ctx, l.prov, l.cfg.Model, transcript)
	if err != nil {
		slog.Warn("summary pass failed", "call", l.store.CallID(), "error", err)
		return
	}
	if summary != "" {
		l.store.SetContext(convo.ContextPatch{Summary: &summary})
	}
}

func (l *Loop) recallPass(ctx context.Context, views []convo.TurnView) {
	query, ok := lastHumanText(views)
	if !ok {
		return
	}
	suggestions, err := recallSuggestions(ctx, l.prov, l.vectors, query, l.cfg.RecallLimit)
	if err != nil {
		slog.Warn("recall pass failed", "call", l.store.CallID(), "error", err)
		return
	}
	if len(suggestions) > 0 {
		l.store.SetContext(convo.ContextPatch{Recall: suggestions})
	}
}
