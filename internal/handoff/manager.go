// Package handoff provides the bridge to human operators: tickets opened
// when the bot transfers a call, with optional Slack notification.
package handoff

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

// Ticket describes one pending transfer to a human agent.
type Ticket struct {
	ID        string    `json:"id"`
	CallID    string    `json:"call_id"`
	Caller    string    `json:"caller"`
	Reason    string    `json:"reason"`
	Summary   string    `json:"summary"`
	Status    string    `json:"status"` // pending, accepted, declined, timeout
	CreatedAt time.Time `json:"created_at"`
}

// Notifier tells human operators about a new ticket.
type Notifier interface {
	Notify(ctx context.Context, t *Ticket) error
}

// Manager handles ticket lifecycle: open, wait, respond.
type Manager struct {
	mu       sync.Mutex
	pending  map[string]chan bool
	tickets  map[string]*Ticket
	notifier Notifier
}

// NewManager creates a handoff manager. Notifier may be nil.
func NewManager(n Notifier) *Manager {
	return &Manager{
		pending:  make(map[string]chan bool),
		tickets:  make(map[string]*Ticket),
		notifier: n,
	}
}

// Open registers a ticket and notifies operators. Returns the ticket id.
func (m *Manager) Open(ctx context.Context, t *Ticket) string {
	t.ID = newTicketID()
	t.Status = "pending"
	t.CreatedAt = time.Now()

	ch := make(chan bool, 1)
	m.mu.Lock()
	m.pending[t.ID] = ch
	m.tickets[t.ID] = t
	m.mu.Unlock()

	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, t); err != nil {
			slog.Error("handoff notification failed", "ticket", t.ID, "error", err)
		}
	}
	return t.ID
}

// Wait blocks until an operator accepts or declines, or ctx expires.
func (m *Manager) Wait(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	ch, ok := m.pending[id]
	m.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("no pending ticket: %s", id)
	}

	select {
	case accepted := <-ch:
		status := "declined"
		if accepted {
			status = "accepted"
		}
		m.cleanup(id, status)
		return accepted, nil
	case <-ctx.Done():
		m.cleanup(id, "timeout")
		return false, ctx.Err()
	}
}

// Respond delivers an operator decision for a pending ticket.
func (m *Manager) Respond(id string, accepted bool) error {
	m.mu.Lock()
	ch, ok := m.pending[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending ticket: %s", id)
	}
	select {
	case ch <- accepted:
	default:
	}
	return nil
}

// Get returns a ticket by id.
func (m *Manager) Get(id string) (*Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	return t, ok
}

func (m *Manager) cleanup(id, status string) {
	m.mu.Lock()
	delete(m.pending, id)
	if t, ok := m.tickets[id]; ok {
		t.Status = status
	}
	m.mu.Unlock()
}

func newTicketID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return fmt.Sprintf("tick-%d", time.Now().UnixNano())
}

// SlackNotifier posts tickets into an operator channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier for the given bot token and channel.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{api: slack.New(token), channel: channel}
}

// Notify posts the ticket.
func (n *SlackNotifier) Notify(ctx context.Context, t *Ticket) error {
	text := fmt.Sprintf("Call handoff %s\ncaller: %s\nreason: %s\n%s", t.ID, t.Caller, t.Reason, t.Summary)
	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}
