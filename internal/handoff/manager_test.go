package handoff

import (
	"context"
	"testing"
	"time"
)

func TestOpenAndRespond(t *testing.T) {
	m := NewManager(nil)
	id := m.Open(context.Background(), &Ticket{CallID: "call-1", Reason: "billing dispute"})
	if id == "" {
		t.Fatal("empty ticket id")
	}

	go func() {
		if err := m.Respond(id, true); err != nil {
			t.Errorf("respond: %v", err)
		}
	}()

	accepted, err := m.Wait(context.Background(), id)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !accepted {
		t.Fatal("expected accepted")
	}
	tk, ok := m.Get(id)
	if !ok || tk.Status != "accepted" {
		t.Fatalf("ticket status: %+v", tk)
	}
}

func TestWaitTimesOut(t *testing.T) {
	m := NewManager(nil)
	id := m.Open(context.Background(), &Ticket{CallID: "call-1"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Wait(ctx, id); err == nil {
		t.Fatal("expected timeout error")
	}
	tk, _ := m.Get(id)
	if tk.Status != "timeout" {
		t.Fatalf("ticket status after timeout: %s", tk.Status)
	}
}

func TestRespondUnknownTicket(t *testing.T) {
	m := NewManager(nil)
	if err := m.Respond("nope", true); err == nil {
		t.Fatal("expected error for unknown ticket")
	}
}
