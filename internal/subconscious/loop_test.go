package subconscious

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ringline/ringline/internal/audit"
	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/provider"
	"github.com/ringline/ringline/internal/recall"
)

// chatScript replays canned non-streaming completions.
type chatScript struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (p *chatScript) Chat(_ context.Context, _ *provider.ChatRequest) (*provider.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return &provider.ChatResponse{Content: r, FinishReason: provider.FinishStop}, nil
}

func (p *chatScript) ChatStream(context.Context, *provider.ChatRequest) (provider.Stream, error) {
	return nil, errors.New("not scripted")
}

func (p *chatScript) DefaultModel() string { return "test-model" }

func (p *chatScript) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// embedScript adds embedding support on top of the chat script.
type embedScript struct {
	chatScript
	embedded []string
}

func (p *embedScript) Embed(_ context.Context, req *provider.EmbeddingRequest) (*provider.EmbeddingResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.embedded = append(p.embedded, req.Input)
	return &provider.EmbeddingResponse{Vector: []float32{1, 0, 0}}, nil
}

type recordingVectors struct {
	mu      sync.Mutex
	ensured bool
	upserts map[string]map[string]any
}

func (v *recordingVectors) EnsureCollection(context.Context) error {
	v.mu.Lock()
	v.ensured = true
	v.mu.Unlock()
	return nil
}

func (v *recordingVectors) Upsert(_ context.Context, id string, _ []float32, payload map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.upserts == nil {
		v.upserts = make(map[string]map[string]any)
	}
	v.upserts[id] = payload
	return nil
}

func (v *recordingVectors) Search(context.Context, []float32, int) ([]recall.Result, error) {
	return nil, nil
}

type countingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *countingAudit) Publish(_ context.Context, ev audit.Event) {
	a.mu.Lock()
	a.events = append(a.events, ev)
	a.mu.Unlock()
}

func (a *countingAudit) Close() error { return nil }

func TestRunOncePublishesViolationOnce(t *testing.T) {
	missedVerdict := `[{"procedure":"order-inquiry","step":"identify-caller","status":"missed"}]`
	prov := &chatScript{replies: []string{
		missedVerdict, "Caller asked about an order without identifying.",
		missedVerdict, "Still unidentified.",
	}}
	aud := &countingAudit{}
	store := convo.NewStore("call-1", nil)
	loop := NewLoop(store, prov, testCatalog(t), nil, aud, Config{})

	store.AppendHumanText("what time does my event start")
	loop.RunOnce(context.Background())

	ctx := store.Context()
	if ctx.Governance["order-inquiry/identify-caller"] != StatusMissed {
		t.Fatalf("governance = %v", ctx.Governance)
	}
	if ctx.Summary == "" {
		t.Fatal("summary not written")
	}
	notices := store.DrainNotices()
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
	if len(aud.events) != 1 || aud.events[0].Kind != audit.KindGovernanceViolation {
		t.Fatalf("audit events = %+v", aud.events)
	}

	// same evidence on a later pass: no duplicate notice
	store.AppendHumanText("hello?")
	loop.RunOnce(context.Background())
	if notices := store.DrainNotices(); len(notices) != 0 {
		t.Fatalf("duplicate notices enqueued: %v", notices)
	}
	if len(aud.events) != 1 {
		t.Fatalf("duplicate audit events: %d", len(aud.events))
	}
}

func TestRunOnceSkipsWithoutNewTurns(t *testing.T) {
	prov := &chatScript{replies: []string{`[]`, "Quiet call."}}
	store := convo.NewStore("call-1", nil)
	loop := NewLoop(store, prov, testCatalog(t), nil, nil, Config{})

	store.AppendHumanText("hi")
	loop.RunOnce(context.Background())
	before := prov.callCount()

	loop.RunOnce(context.Background())
	if prov.callCount() != before {
		t.Fatal("pass ran although the transcript had not advanced")
	}
}

func TestIndexStoresFinalSummary(t *testing.T) {
	summary := "Ada confirmed her jazz tickets and paid the balance."
	prov := &embedScript{chatScript: chatScript{replies: []string{`[]`, summary}}}
	vecs := &recordingVectors{}
	store := convo.NewStore("call-9", nil)
	loop := NewLoop(store, prov, testCatalog(t), vecs, nil, Config{})

	store.AppendHumanText("pay my balance please")
	loop.RunOnce(context.Background())
	loop.Index(context.Background())

	payload, ok := vecs.upserts["call-9"]
	if !ok {
		t.Fatalf("summary not indexed, upserts = %v", vecs.upserts)
	}
	if payload["content"] != summary {
		t.Fatalf("indexed content = %v", payload["content"])
	}
	if !vecs.ensured {
		t.Fatal("collection not ensured before upsert")
	}
	// RunOnce embeds the recall query; Index embeds the summary last.
	if n := len(prov.embedded); n == 0 || prov.embedded[n-1] != summary {
		t.Fatalf("embedded inputs = %v", prov.embedded)
	}
}

func TestIndexSkipsWithoutSummary(t *testing.T) {
	prov := &embedScript{}
	vecs := &recordingVectors{}
	store := convo.NewStore("call-10", nil)
	loop := NewLoop(store, prov, testCatalog(t), vecs, nil, Config{})

	loop.Index(context.Background())
	if len(vecs.upserts) != 0 || len(prov.embedded) != 0 {
		t.Fatalf("indexed an empty call: upserts=%v embeds=%v", vecs.upserts, prov.embedded)
	}
}

func TestParseProposalsTolerantOfProse(t *testing.T) {
	text := "Here is my audit:\n```json\n[{\"procedure\":\"p\",\"step\":\"s\",\"status\":\"complete\"}]\n```"
	got, err := parseProposals(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Status != "complete" {
		t.Fatalf("parsed = %+v", got)
	}

	if _, err := parseProposals("no json here"); err == nil {
		t.Fatal("expected error for missing array")
	}
}

func TestTranscriptTruncatesToolResults(t *testing.T) {
	store := convo.NewStore("call-1", nil)
	store.AppendHumanText("show my orders")
	store.AppendSystem("internal note")
	h := store.BeginStreamingTool()
	h.StartInvocation(0, "c1")
	h.AppendName(0, "get_user_orders")
	h.Finalize()
	long := strings.Repeat("x", 300)
	if err := store.ResolveInvocation("c1", convo.InvocationSucceeded, long, ""); err != nil {
		t.Fatal(err)
	}

	out := Transcript(store.Snapshot(), 100)
	if len(out) > 200 {
		t.Fatalf("tool result not truncated, transcript length %d", len(out))
	}
	if !strings.Contains(out, "…") {
		t.Fatal("ellipsis marker missing")
	}
	if strings.Contains(out, "internal note") {
		t.Fatal("system turn leaked into the transcript")
	}
}
