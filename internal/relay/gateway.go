package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ringline/ringline/internal/bus"
)

// Frame is the wire format spoken with the media gateway: one JSON object
// per websocket message, in both directions.
type Frame struct {
	Kind          string         `json:"kind"`
	CallID        string         `json:"call_id,omitempty"`
	CallerID      string         `json:"caller_id,omitempty"`
	Content       string         `json:"content,omitempty"`
	Digits        string         `json:"digits,omitempty"`
	Interruptible bool           `json:"interruptible,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// Gateway accepts one websocket per call from the telephony media
// gateway. Inbound frames become bus events; outbound commands for the
// call are written back as frames.
type Gateway struct {
	bus      *bus.Bus
	upgrader websocket.Upgrader
	server   *http.Server

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// NewGateway creates a gateway listening on addr.
func NewGateway(b *bus.Bus, addr string) *Gateway {
	g := &Gateway{
		bus: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		conns: make(map[string]*websocket.Conn),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/calls", g.handleCall)
	g.server = &http.Server{Addr: addr, Handler: mux}
	return g
}

// ListenAndServe blocks serving connections until Shutdown.
func (g *Gateway) ListenAndServe() error {
	err := g.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown closes the listener and all live sockets.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	for _, c := range g.conns {
		c.Close()
	}
	g.conns = make(map[string]*websocket.Conn)
	g.mu.Unlock()
	return g.server.Shutdown(ctx)
}

func (g *Gateway) handleCall(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	// The first frame announces the call.
	var hello Frame
	if err := conn.ReadJSON(&hello); err != nil || hello.Kind != bus.EventCallStarted {
		slog.Error("gateway handshake failed", "error", err)
		conn.Close()
		return
	}
	callID := hello.CallID
	if callID == "" {
		callID = uuid.NewString()
	}

	g.mu.Lock()
	g.conns[callID] = conn
	g.mu.Unlock()

	var writeMu sync.Mutex
	g.bus.Subscribe(callID, func(cmd *bus.OutboundCommand) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(Frame{
			Kind:          cmd.Kind,
			CallID:        cmd.CallID,
			Content:       cmd.Text,
			Digits:        cmd.Digits,
			Interruptible: cmd.Interruptible,
			Payload:       cmd.Payload,
		}); err != nil {
			slog.Error("gateway write failed", "call", callID, "error", err)
		}
	})

	g.bus.PublishInbound(&bus.InboundEvent{
		CallID:   callID,
		Kind:     bus.EventCallStarted,
		CallerID: hello.CallerID,
		Metadata: hello.Payload,
	})

	go g.readLoop(callID, conn)
}

func (g *Gateway) readLoop(callID string, conn *websocket.Conn) {
	defer func() {
		g.mu.Lock()
		delete(g.conns, callID)
		g.mu.Unlock()
		g.bus.Unsubscribe(callID)
		conn.Close()
		g.bus.PublishInbound(&bus.InboundEvent{CallID: callID, Kind: bus.EventCallEnded})
	}()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("gateway read failed", "call", callID, "error", err)
			}
			return
		}
		switch f.Kind {
		case bus.EventHumanText, bus.EventHumanDTMF, bus.EventBargeIn:
			g.bus.PublishInbound(&bus.InboundEvent{
				CallID:  callID,
				Kind:    f.Kind,
				Content: content(f),
			})
		case bus.EventCallEnded:
			return
		default:
			slog.Warn("gateway dropped unknown frame", "call", callID, "kind", f.Kind)
		}
	}
}

func content(f Frame) string {
	if f.Kind == bus.EventHumanDTMF {
		return f.Digits
	}
	return f.Content
}

// Addr returns the configured listen address.
func (g *Gateway) Addr() string {
	return g.server.Addr
}

// String implements fmt.Stringer for logs.
func (g *Gateway) String() string {
	return fmt.Sprintf("relay gateway on %s", g.server.Addr)
}
