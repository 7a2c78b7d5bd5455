package engine

import "github.com/ringline/ringline/internal/convo"

// Events receives the engine's lifecycle signals. This is the only
// channel through which the transport learns what to speak.
type Events interface {
	// CompletionStarted fires on the first delta of a completion.
	CompletionStarted(callID string)
	// TextFragment fires per incremental text fragment, for live playback.
	TextFragment(callID, fragment string)
	// FillerSpoken fires when a filler phrase is played during tool latency.
	FillerSpoken(callID, phrase string)
	// CompletionFinished fires with the finalized turn and finish reason.
	CompletionFinished(callID string, turn convo.Turn, finishReason string)
	ToolStarted(callID, name string)
	ToolFinished(callID, name string)
	ToolFailed(callID, name string, err error)
}

// NopEvents discards all signals.
type NopEvents struct{}

func (NopEvents) CompletionStarted(string)                    {}
func (NopEvents) TextFragment(string, string)                 {}
func (NopEvents) FillerSpoken(string, string)                 {}
func (NopEvents) CompletionFinished(string, convo.Turn, string) {}
func (NopEvents) ToolStarted(string, string)                  {}
func (NopEvents) ToolFinished(string, string)                 {}
func (NopEvents) ToolFailed(string, string, error)            {}
