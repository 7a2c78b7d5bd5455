package provider

// Delta is one incremental event from a streaming completion. Exactly one
// of Text and ToolCall is set on content deltas; FinishReason is set on
// the terminating delta.
type Delta struct {
	Text         string
	ToolCall     *ToolCallDelta
	FinishReason string
	Usage        *Usage
}

// ToolCallDelta is a fragment of the Index-th tool call in a completion.
// ID and Name are present on the first fragment of a call; Args fragments
// must be concatenated verbatim by the consumer.
type ToolCallDelta struct {
	Index int
	ID    string
	Name  string
	Args  string
}

// Stream is a pull-based delta stream. Recv blocks until the next delta
// is available and returns io.EOF after the terminating delta. Close
// releases the underlying connection and is safe to call concurrently
// with Recv; a closed stream makes Recv return promptly.
type Stream interface {
	Recv() (Delta, error)
	Close() error
}
