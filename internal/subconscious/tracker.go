// Package subconscious runs the background analyses of a call:
// governance tracking against the procedure catalog, transcript
// summarization and similarity recall. All of them read store snapshots
// and write back only through call context or the parking lot.
package subconscious

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ringline/ringline/internal/procedure"
)

// Governance step statuses.
const (
	StatusNotStarted = "not-started"
	StatusMissed     = "missed"
	StatusInProgress = "in-progress"
	StatusComplete   = "complete"
	StatusUnresolved = "unresolved"
)

// legalTransition reports whether from→to is allowed. Re-proposing the
// current status is always a no-op accept.
func legalTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusNotStarted:
		return true
	case StatusMissed:
		return to != StatusNotStarted
	case StatusInProgress:
		return to == StatusComplete || to == StatusUnresolved
	case StatusComplete:
		return false
	case StatusUnresolved:
		return to == StatusInProgress || to == StatusComplete
	}
	return false
}

// Proposal is one analysis verdict: the status a step should carry now.
type Proposal struct {
	Procedure string `json:"procedure"`
	Step      string `json:"step"`
	Status    string `json:"status"`
}

// Violation is a newly detected governance problem, reported exactly
// once per (procedure, step, status).
type Violation struct {
	Procedure string
	Step      string
	Status    string
}

// Notice renders the violation as a parking-lot system notice.
func (v Violation) Notice() string {
	return fmt.Sprintf("Procedure check: step %q of %q is %s. Address it before moving on.", v.Step, v.Procedure, v.Status)
}

// Tracker holds the per-call governance state machine. Proposals that
// are not legal transitions are rejected and logged, never applied.
type Tracker struct {
	callID  string
	catalog *procedure.Catalog

	mu      sync.Mutex
	status  map[string]string // "procedureID/stepID"
	flagged map[string]bool   // violations already reported
}

// NewTracker starts every catalog step at not-started.
func NewTracker(callID string, catalog *procedure.Catalog) *Tracker {
	t := &Tracker{
		callID:  callID,
		catalog: catalog,
		status:  make(map[string]string),
		flagged: make(map[string]bool),
	}
	for _, p := range catalog.All() {
		for _, s := range p.Steps {
			t.status[stepKey(p.ID, s.ID)] = StatusNotStarted
		}
	}
	return t
}

func stepKey(procID, stepID string) string { return procID + "/" + stepID }

// Apply runs one analysis pass through the state machine and returns
// the violations detected for the first time in this pass.
func (t *Tracker) Apply(proposals []Proposal) []Violation {
	t.mu.Lock()
	defer t.mu.Unlock()

	proposals = t.reconcile(proposals)

	var fresh []Violation
	for _, p := range proposals {
		key := stepKey(p.Procedure, p.Step)
		current, ok := t.status[key]
		if !ok {
			slog.Warn("governance proposal for unknown step", "call", t.callID, "key", key)
			continue
		}
		if !validStatus(p.Status) {
			slog.Warn("governance proposal with unknown status", "call", t.callID, "key", key, "status", p.Status)
			continue
		}
		if !legalTransition(current, p.Status) {
			slog.Warn("illegal governance transition rejected",
				"call", t.callID, "key", key, "from", current, "to", p.Status)
			continue
		}
		t.status[key] = p.Status

		if p.Status != StatusMissed && p.Status != StatusUnresolved {
			continue
		}
		flagKey := key + ":" + p.Status
		if t.flagged[flagKey] {
			continue
		}
		t.flagged[flagKey] = true
		fresh = append(fresh, Violation{Procedure: p.Procedure, Step: p.Step, Status: p.Status})
	}
	return fresh
}

// reconcile enforces cross-procedure consistency: a step id observed as
// started anywhere must not be reported not-started elsewhere in the
// same pass. Callers hold t.mu.
func (t *Tracker) reconcile(proposals []Proposal) []Proposal {
	started := make(map[string]bool)
	for key, status := range t.status {
		if status != StatusNotStarted {
			started[stepID(key)] = true
		}
	}
	for _, p := range proposals {
		if p.Status != StatusNotStarted && p.Status != "" {
			started[p.Step] = true
		}
	}

	out := proposals[:0]
	for _, p := range proposals {
		if p.Status == StatusNotStarted && started[p.Step] {
			continue
		}
		out = append(out, p)
	}
	return out
}

func stepID(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}
	return key
}

func validStatus(s string) bool {
	switch s {
	case StatusNotStarted, StatusMissed, StatusInProgress, StatusComplete, StatusUnresolved:
		return true
	}
	return false
}

// Snapshot copies the current governance map.
func (t *Tracker) Snapshot() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.status))
	for k, v := range t.status {
		out[k] = v
	}
	return out
}
