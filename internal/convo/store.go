package convo

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SyncSink receives fire-and-forget notifications whenever a turn or the
// call context changes. Implementations must not block: the conversation
// never waits on persistence.
type SyncSink interface {
	TurnDirty(callID string, turn Turn)
	ContextDirty(callID string, ctx Context)
}

// Store is the source of truth for one call's turn log and context.
// All methods are safe for concurrent use; the subconscious loop reads
// snapshots while the engine streams.
type Store struct {
	callID string

	mu          sync.Mutex
	seq         int64
	turns       []*Turn
	invocations map[string]*invocationRef
	context     Context
	notices     []string
	sink        SyncSink
}

type invocationRef struct {
	turn *Turn
	inv  *Invocation
}

// NewStore creates an empty store for a call. Sink may be nil.
func NewStore(callID string, sink SyncSink) *Store {
	return &Store{
		callID:      callID,
		invocations: make(map[string]*invocationRef),
		sink:        sink,
	}
}

// CallID returns the owning call's identifier.
func (s *Store) CallID() string { return s.callID }

// Append assigns id, timestamp and the next sequence number, inserts the
// turn and returns it.
func (s *Store) Append(t *Turn) *Turn {
	s.mu.Lock()
	s.stamp(t)
	s.turns = append(s.turns, t)
	cp := copyTurn(t)
	s.mu.Unlock()

	s.turnDirty(cp)
	return t
}

// AppendHumanText appends a transcribed caller utterance.
func (s *Store) AppendHumanText(content string) *Turn {
	return s.Append(&Turn{Role: RoleHuman, Kind: KindText, Content: content})
}

// AppendHumanDTMF appends caller keypad input.
func (s *Store) AppendHumanDTMF(digits string) *Turn {
	return s.Append(&Turn{Role: RoleHuman, Kind: KindDTMF, Content: digits})
}

// AppendSystem appends injected guidance that is never spoken aloud.
func (s *Store) AppendSystem(content string) *Turn {
	return s.Append(&Turn{Role: RoleSystem, Kind: KindText, Content: content})
}

// stamp must be called with the lock held.
func (s *Store) stamp(t *Turn) {
	s.seq++
	t.ID = uuid.NewString()
	t.CallID = s.callID
	t.Seq = s.seq
	t.CreatedAt = time.Now()
}

// BeginStreamingText creates a bot text turn and returns a handle through
// which the owning completion appends fragments. Only the engine that
// started the completion may use the handle.
func (s *Store) BeginStreamingText(initial string) *TextHandle {
	t := &Turn{Role: RoleBot, Kind: KindText, Content: initial}
	s.Append(t)
	return &TextHandle{store: s, turn: t}
}

// BeginStreamingTool creates a bot tool turn with an empty invocation
// list. Deltas fill in invocations by index through the handle.
func (s *Store) BeginStreamingTool() *ToolHandle {
	t := &Turn{Role: RoleBot, Kind: KindTool}
	s.Append(t)
	return &ToolHandle{store: s, turn: t}
}

// ResolveInvocation records an invocation's final result. Resolving the
// same invocation twice is a programming error and fails loudly.
func (s *Store) ResolveInvocation(invocationID, status, result, errMsg string) error {
	s.mu.Lock()
	ref, ok := s.invocations[invocationID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown invocation: %s", invocationID)
	}
	if ref.inv.Resolved() {
		s.mu.Unlock()
		slog.Error("invocation resolved twice", "call", s.callID, "invocation", invocationID)
		return fmt.Errorf("invocation %s already resolved", invocationID)
	}
	ref.inv.Status = status
	ref.inv.Result = result
	ref.inv.Error = errMsg
	cp := copyTurn(ref.turn)
	s.mu.Unlock()

	s.turnDirty(cp)
	return nil
}

// Snapshot returns all turns ordered by sequence number, each annotated
// with its position in that ordering.
func (s *Store) Snapshot() []TurnView {
	s.mu.Lock()
	views := make([]TurnView, len(s.turns))
	for i, t := range s.turns {
		views[i] = TurnView{Turn: copyTurn(t)}
	}
	s.mu.Unlock()

	sort.Slice(views, func(i, j int) bool { return views[i].Seq < views[j].Seq })
	for i := range views {
		views[i].Position = i
	}
	return views
}

// Context returns a copy of the call context.
func (s *Store) Context() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context.Clone()
}

// SetContext merges the patch into the call context and schedules an
// external sync. Failures of the sync are the sink's problem, never the
// caller's.
func (s *Store) SetContext(p ContextPatch) {
	s.mu.Lock()
	s.context.apply(p)
	cp := s.context.Clone()
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.ContextDirty(s.callID, cp)
	}
}

// EnqueueNotice appends a pending system notice to the parking lot. The
// engine drains it before building the next completion.
func (s *Store) EnqueueNotice(text string) {
	s.mu.Lock()
	s.notices = append(s.notices, text)
	s.mu.Unlock()
}

// DrainNotices removes and returns all pending notices in FIFO order.
func (s *Store) DrainNotices() []string {
	s.mu.Lock()
	out := s.notices
	s.notices = nil
	s.mu.Unlock()
	return out
}

func (s *Store) turnDirty(cp Turn) {
	if s.sink != nil {
		s.sink.TurnDirty(s.callID, cp)
	}
}

// TextHandle mutates a streaming bot text turn in place.
type TextHandle struct {
	store *Store
	turn  *Turn
}

// Append adds a text fragment to the turn's content.
func (h *TextHandle) Append(fragment string) {
	h.store.mu.Lock()
	h.turn.Content += fragment
	h.store.mu.Unlock()
}

// Content returns the accumulated content so far.
func (h *TextHandle) Content() string {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.turn.Content
}

// Seq returns the turn's sequence number.
func (h *TextHandle) Seq() int64 { return h.turn.Seq }

// MarkInterrupted flags the turn as cut off mid-playback.
func (h *TextHandle) MarkInterrupted() {
	h.store.mu.Lock()
	h.turn.Interrupted = true
	cp := copyTurn(h.turn)
	h.store.mu.Unlock()
	h.store.turnDirty(cp)
}

// Finalize marks the turn for external sync and returns a copy.
func (h *TextHandle) Finalize() Turn {
	h.store.mu.Lock()
	cp := copyTurn(h.turn)
	h.store.mu.Unlock()
	h.store.turnDirty(cp)
	return cp
}

// ToolHandle mutates a streaming bot tool turn in place. Invocations are
// extended by index as tool call fragments arrive.
type ToolHandle struct {
	store *Store
	turn  *Turn
}

// StartInvocation registers the invocation at the given index. The id is
// the call identifier from the upstream protocol; when absent a local one
// is generated.
func (h *ToolHandle) StartInvocation(index int, id string) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	for len(h.turn.Invocations) <= index {
		h.turn.Invocations = append(h.turn.Invocations, &Invocation{
			Index:  len(h.turn.Invocations),
			Status: InvocationPending,
		})
	}
	inv := h.turn.Invocations[index]
	if inv.ID != "" {
		// already registered; a repeated fragment never re-keys it
		return
	}
	if id == "" {
		id = uuid.NewString()
	}
	inv.ID = id
	h.store.invocations[id] = &invocationRef{turn: h.turn, inv: inv}
}

// AppendName concatenates a name fragment onto the invocation at index.
func (h *ToolHandle) AppendName(index int, fragment string) {
	h.store.mu.Lock()
	if index < len(h.turn.Invocations) {
		h.turn.Invocations[index].Name += fragment
	}
	h.store.mu.Unlock()
}

// AppendArgs concatenates an argument fragment verbatim. The buffer is
// parsed only after the stream ends.
func (h *ToolHandle) AppendArgs(index int, fragment string) {
	h.store.mu.Lock()
	if index < len(h.turn.Invocations) {
		h.turn.Invocations[index].Args += fragment
	}
	h.store.mu.Unlock()
}

// Seq returns the turn's sequence number.
func (h *ToolHandle) Seq() int64 { return h.turn.Seq }

// Invocations returns a copy of the invocation list.
func (h *ToolHandle) Invocations() []Invocation {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	out := make([]Invocation, len(h.turn.Invocations))
	for i, inv := range h.turn.Invocations {
		out[i] = *inv
	}
	return out
}

// Finalize marks the tool turn for external sync.
func (h *ToolHandle) Finalize() Turn {
	h.store.mu.Lock()
	cp := copyTurn(h.turn)
	h.store.mu.Unlock()
	h.store.turnDirty(cp)
	return cp
}
