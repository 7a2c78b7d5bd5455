package syncstore

import (
	"context"
	"testing"
	"time"

	"github.com/ringline/ringline/internal/convo"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertTurnIsIdempotentPerTurnID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if err := s.CreateCall(ctx, "call-1"); err != nil {
		t.Fatal(err)
	}

	turn := convo.Turn{ID: "t1", CallID: "call-1", Role: convo.RoleBot, Kind: convo.KindText, Seq: 1, Content: "partial"}
	if err := s.UpsertTurn(ctx, turn); err != nil {
		t.Fatal(err)
	}
	turn.Content = "partial plus more"
	if err := s.UpsertTurn(ctx, turn); err != nil {
		t.Fatal(err)
	}

	turns, err := s.LoadTurns(ctx, "call-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 || turns[0].Content != "partial plus more" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestContextRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if err := s.CreateCall(ctx, "call-1"); err != nil {
		t.Fatal(err)
	}

	c := convo.Context{
		Caller:     &convo.Caller{UserID: "u1", Name: "Ada"},
		Governance: map[string]string{"order-inquiry/identify-caller": "complete"},
	}
	if err := s.UpdateContext(ctx, "call-1", c); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadContext(ctx, "call-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Caller == nil || got.Caller.Name != "Ada" {
		t.Fatalf("caller lost: %+v", got)
	}
	if got.Governance["order-inquiry/identify-caller"] != "complete" {
		t.Fatalf("governance lost: %+v", got)
	}
}

func TestSyncerFlushesDirtyState(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if err := s.CreateCall(ctx, "call-1"); err != nil {
		t.Fatal(err)
	}

	syncer := NewSyncer(s)
	syncer.TurnDirty("call-1", convo.Turn{ID: "t1", CallID: "call-1", Role: convo.RoleHuman, Kind: convo.KindText, Seq: 1, Content: "hi"})
	syncer.ContextDirty("call-1", convo.Context{Summary: "caller said hi"})
	syncer.Stop()

	turns, err := s.LoadTurns(ctx, "call-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 || turns[0].Content != "hi" {
		t.Fatalf("turn not flushed: %+v", turns)
	}
	got, err := s.LoadContext(ctx, "call-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != "caller said hi" {
		t.Fatalf("context not flushed: %+v", got)
	}
}

func TestSyncerStopIsIdempotent(t *testing.T) {
	s := openStore(t)
	syncer := NewSyncer(s)
	done := make(chan struct{})
	go func() {
		syncer.Stop()
		syncer.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop deadlocked")
	}
}
