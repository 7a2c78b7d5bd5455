package call

import (
	"log/slog"

	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/engine"
	"github.com/ringline/ringline/internal/relay"
)

// speaker turns engine lifecycle signals into relay speech. Finalized
// bot text is spoken whole; fragments are left to transports that do
// their own incremental playback.
type speaker struct {
	rel relay.Relay
}

// Speaker wraps a relay as an engine events sink. Used by the manager
// and by simulate mode, which talks to a console relay directly.
func Speaker(rel relay.Relay) engine.Events {
	return speaker{rel: rel}
}

func (s speaker) CompletionStarted(string)  {}
func (s speaker) TextFragment(string, string) {}

func (s speaker) FillerSpoken(callID, phrase string) {
	if err := s.rel.Speak(phrase, true); err != nil {
		slog.Warn("filler playback failed", "call", callID, "error", err)
	}
}

func (s speaker) CompletionFinished(callID string, turn convo.Turn, _ string) {
	if turn.Kind != convo.KindText || turn.Interrupted || turn.Content == "" {
		return
	}
	if err := s.rel.Speak(turn.Content, true); err != nil {
		slog.Warn("speech playback failed", "call", callID, "error", err)
	}
}

func (s speaker) ToolStarted(string, string)       {}
func (s speaker) ToolFinished(string, string)      {}
func (s speaker) ToolFailed(string, string, error) {}
