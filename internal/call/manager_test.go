package call

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ringline/ringline/internal/bus"
	"github.com/ringline/ringline/internal/procedure"
	"github.com/ringline/ringline/internal/provider"
	"github.com/ringline/ringline/internal/tools"
)

// cannedProvider answers every streamed completion with the same text.
type cannedProvider struct {
	reply string
}

type cannedStream struct {
	deltas chan provider.Delta
}

func (s *cannedStream) Recv() (provider.Delta, error) {
	d, ok := <-s.deltas
	if !ok {
		return provider.Delta{}, io.EOF
	}
	return d, nil
}

func (s *cannedStream) Close() error { return nil }

func (p *cannedProvider) ChatStream(context.Context, *provider.ChatRequest) (provider.Stream, error) {
	ch := make(chan provider.Delta, 2)
	ch <- provider.Delta{Text: p.reply}
	ch <- provider.Delta{FinishReason: provider.FinishStop}
	close(ch)
	return &cannedStream{deltas: ch}, nil
}

func (p *cannedProvider) Chat(context.Context, *provider.ChatRequest) (*provider.ChatResponse, error) {
	return nil, errors.New("no background analyses in this test")
}

func (p *cannedProvider) DefaultModel() string { return "test-model" }

func collectCommands(t *testing.T, b *bus.Bus, callID string) <-chan *bus.OutboundCommand {
	t.Helper()
	out := make(chan *bus.OutboundCommand, 16)
	b.Subscribe(callID, func(cmd *bus.OutboundCommand) { out <- cmd })
	return out
}

func waitCommand(t *testing.T, ch <-chan *bus.OutboundCommand, kind string) *bus.OutboundCommand {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cmd := <-ch:
			if cmd.Kind == kind {
				return cmd
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s command", kind)
		}
	}
}

func TestManagerCallLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := procedure.Default()
	if err != nil {
		t.Fatal(err)
	}
	b := bus.New()
	go b.DispatchOutbound(ctx)

	mgr := NewManager(Deps{
		Bus:      b,
		Provider: &cannedProvider{reply: "Hi, how can I help?"},
		Registry: tools.NewRegistry(),
		Catalog:  catalog,
		BotName:  "Ring",
		Company:  "Ringline Tickets",
		Greeting: "Thanks for calling Ringline.",
	})
	go mgr.Run(ctx)

	cmds := collectCommands(t, b, "call-1")
	b.PublishInbound(&bus.InboundEvent{CallID: "call-1", Kind: bus.EventCallStarted, CallerID: "+15550100"})

	greeting := waitCommand(t, cmds, bus.CommandSpeak)
	if greeting.Text != "Thanks for calling Ringline." {
		t.Fatalf("greeting = %q", greeting.Text)
	}

	b.PublishInbound(&bus.InboundEvent{CallID: "call-1", Kind: bus.EventHumanText, Content: "hello"})
	reply := waitCommand(t, cmds, bus.CommandSpeak)
	if reply.Text != "Hi, how can I help?" {
		t.Fatalf("reply = %q", reply.Text)
	}

	if got := mgr.Sessions(); len(got) != 1 || got[0] != "call-1" {
		t.Fatalf("sessions = %v", got)
	}

	b.PublishInbound(&bus.InboundEvent{CallID: "call-1", Kind: bus.EventCallEnded})
	waitFor(t, func() bool { return len(mgr.Sessions()) == 0 })
}

func TestManagerIgnoresUnknownCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := procedure.Default()
	if err != nil {
		t.Fatal(err)
	}
	b := bus.New()
	mgr := NewManager(Deps{
		Bus:      b,
		Provider: &cannedProvider{reply: "hi"},
		Registry: tools.NewRegistry(),
		Catalog:  catalog,
	})
	go mgr.Run(ctx)

	// must not panic or create a session
	b.PublishInbound(&bus.InboundEvent{CallID: "ghost", Kind: bus.EventHumanText, Content: "anyone?"})
	time.Sleep(50 * time.Millisecond)
	if len(mgr.Sessions()) != 0 {
		t.Fatalf("sessions = %v", mgr.Sessions())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
