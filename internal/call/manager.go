package call

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ringline/ringline/internal/audit"
	"github.com/ringline/ringline/internal/bus"
	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/database"
	"github.com/ringline/ringline/internal/engine"
	"github.com/ringline/ringline/internal/handoff"
	"github.com/ringline/ringline/internal/procedure"
	"github.com/ringline/ringline/internal/provider"
	"github.com/ringline/ringline/internal/recall"
	"github.com/ringline/ringline/internal/relay"
	"github.com/ringline/ringline/internal/subconscious"
	"github.com/ringline/ringline/internal/syncstore"
	"github.com/ringline/ringline/internal/tools"
)

// Deps are the shared collaborators for all calls. Registry, catalog
// and provider are immutable and safely shared; everything per-call is
// built by the manager.
type Deps struct {
	Bus      *bus.Bus
	Provider provider.Provider
	Registry *tools.Registry
	Catalog  *procedure.Catalog
	DB       *database.DB
	Sync     *syncstore.Syncer
	Durable  *syncstore.Store
	Vectors  recall.VectorStore
	Audit    audit.Publisher
	Handoff  *handoff.Manager

	Engine       engine.Config
	Subconscious subconscious.Config

	BotName  string
	Company  string
	Greeting string
}

// Manager routes inbound bus events to per-call sessions.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager.
func NewManager(deps Deps) *Manager {
	if deps.Audit == nil {
		deps.Audit = audit.NopPublisher{}
	}
	return &Manager{deps: deps, sessions: make(map[string]*Session)}
}

// Run consumes inbound events until ctx is cancelled. Events are
// handled one at a time, so per-call ordering matches arrival order.
func (m *Manager) Run(ctx context.Context) error {
	for {
		ev, err := m.deps.Bus.ConsumeInbound(ctx)
		if err != nil {
			return err
		}
		m.handle(ctx, ev)
	}
}

func (m *Manager) handle(ctx context.Context, ev *bus.InboundEvent) {
	switch ev.Kind {
	case bus.EventCallStarted:
		m.startSession(ctx, ev)
		return
	case bus.EventCallEnded:
		m.endSession(ctx, ev.CallID)
		return
	}

	s, ok := m.session(ev.CallID)
	if !ok {
		slog.Warn("event for unknown call", "call", ev.CallID, "kind", ev.Kind)
		return
	}
	switch ev.Kind {
	case bus.EventHumanText:
		s.HumanText(ctx, ev.Content)
	case bus.EventHumanDTMF:
		s.HumanDTMF(ctx, ev.Content)
	case bus.EventBargeIn:
		s.BargeIn()
	default:
		slog.Warn("unknown inbound event kind", "call", ev.CallID, "kind", ev.Kind)
	}
}

func (m *Manager) session(callID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[callID]
	return s, ok
}

// Sessions returns the ids of the currently active calls.
func (m *Manager) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	return out
}

func (m *Manager) startSession(ctx context.Context, ev *bus.InboundEvent) {
	m.mu.Lock()
	if _, dup := m.sessions[ev.CallID]; dup {
		m.mu.Unlock()
		slog.Warn("call already started", "call", ev.CallID)
		return
	}
	m.mu.Unlock()

	d := m.deps
	var sink convo.SyncSink
	if d.Sync != nil {
		sink = d.Sync
	}
	store := convo.NewStore(ev.CallID, sink)
	rel := relay.NewBusRelay(d.Bus, ev.CallID)

	env := tools.Env{
		DB:      d.DB,
		Relay:   rel,
		Handoff: d.Handoff,
		Audit:   d.Audit,
		SMS:     relay.NewBusSMSSender(d.Bus, ev.CallID),
	}
	prompt := engine.SystemPrompt(d.BotName, d.Company, d.Catalog)
	eng := engine.New(store, d.Provider, d.Registry, env, speaker{rel: rel}, prompt, d.Engine)

	sub := subconscious.NewLoop(store, d.Provider, d.Catalog, d.Vectors, d.Audit, d.Subconscious)
	sub.Start(ctx)

	s := &Session{
		callID:    ev.CallID,
		store:     store,
		engine:    eng,
		sub:       sub,
		relay:     rel,
		audit:     d.Audit,
		startedAt: time.Now(),
	}
	m.mu.Lock()
	m.sessions[ev.CallID] = s
	m.mu.Unlock()

	if d.Durable != nil {
		// durable record is fire-and-forget, like every sync
		go func() {
			if err := d.Durable.CreateCall(context.Background(), ev.CallID); err != nil {
				slog.Warn("call record create failed", "call", ev.CallID, "error", err)
			}
		}()
	}
	d.Audit.Publish(ctx, audit.Event{
		CallID: ev.CallID,
		Kind:   audit.KindCallStarted,
		Meta:   map[string]any{"caller_id": ev.CallerID},
		Ts:     time.Now(),
	})
	slog.Info("call started", "call", ev.CallID, "caller", ev.CallerID)

	if d.Greeting != "" {
		store.Append(&convo.Turn{Role: convo.RoleBot, Kind: convo.KindText, Content: d.Greeting})
		if err := rel.Speak(d.Greeting, true); err != nil {
			slog.Warn("greeting playback failed", "call", ev.CallID, "error", err)
		}
	}
}

func (m *Manager) endSession(ctx context.Context, callID string) {
	m.mu.Lock()
	s, ok := m.sessions[callID]
	delete(m.sessions, callID)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.Close(ctx)
}
