package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ringline/ringline/internal/bus"
)

func dialGateway(t *testing.T, g *Gateway) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(g.server.Handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/calls"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial gateway: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func nextInbound(t *testing.T, b *bus.Bus) *bus.InboundEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := b.ConsumeInbound(ctx)
	if err != nil {
		t.Fatalf("no inbound event: %v", err)
	}
	return ev
}

func TestGatewayHandshakePublishesCallStarted(t *testing.T) {
	b := bus.New()
	g := NewGateway(b, ":0")
	conn := dialGateway(t, g)

	if err := conn.WriteJSON(Frame{Kind: bus.EventCallStarted, CallID: "call-ws-1", CallerID: "+15550100"}); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	ev := nextInbound(t, b)
	if ev.Kind != bus.EventCallStarted || ev.CallID != "call-ws-1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.CallerID != "+15550100" {
		t.Fatalf("caller id not carried: %+v", ev)
	}
}

func TestGatewayFramesBecomeInboundEvents(t *testing.T) {
	b := bus.New()
	g := NewGateway(b, ":0")
	conn := dialGateway(t, g)

	if err := conn.WriteJSON(Frame{Kind: bus.EventCallStarted, CallID: "call-ws-2"}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	nextInbound(t, b) // call_started

	if err := conn.WriteJSON(Frame{Kind: bus.EventHumanText, Content: "two tickets please"}); err != nil {
		t.Fatalf("write text frame: %v", err)
	}
	ev := nextInbound(t, b)
	if ev.Kind != bus.EventHumanText || ev.Content != "two tickets please" {
		t.Fatalf("unexpected text event: %+v", ev)
	}

	if err := conn.WriteJSON(Frame{Kind: bus.EventHumanDTMF, Digits: "123"}); err != nil {
		t.Fatalf("write dtmf frame: %v", err)
	}
	ev = nextInbound(t, b)
	if ev.Kind != bus.EventHumanDTMF || ev.Content != "123" {
		t.Fatalf("dtmf digits not mapped: %+v", ev)
	}
}

func TestGatewayWritesOutboundCommands(t *testing.T) {
	b := bus.New()
	g := NewGateway(b, ":0")
	conn := dialGateway(t, g)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	if err := conn.WriteJSON(Frame{Kind: bus.EventCallStarted, CallID: "call-ws-3"}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	nextInbound(t, b)

	b.PublishOutbound(&bus.OutboundCommand{
		CallID:        "call-ws-3",
		Kind:          bus.CommandSpeak,
		Text:          "Hi, this is Ring.",
		Interruptible: true,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read outbound frame: %v", err)
	}
	if f.Kind != bus.CommandSpeak || f.Content != "Hi, this is Ring." || !f.Interruptible {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestGatewayDisconnectPublishesCallEnded(t *testing.T) {
	b := bus.New()
	g := NewGateway(b, ":0")
	conn := dialGateway(t, g)

	if err := conn.WriteJSON(Frame{Kind: bus.EventCallStarted, CallID: "call-ws-4"}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	nextInbound(t, b)

	conn.Close()

	ev := nextInbound(t, b)
	if ev.Kind != bus.EventCallEnded || ev.CallID != "call-ws-4" {
		t.Fatalf("unexpected event after disconnect: %+v", ev)
	}
}
