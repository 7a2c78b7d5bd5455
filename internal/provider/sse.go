package provider

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// chatChunk is the OpenAI streaming chunk format.
type chatChunk struct {
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role      string          `json:"role,omitempty"`
			Content   string          `json:"content,omitempty"`
			ToolCalls []toolCallChunk `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// toolCallChunk is a tool call fragment inside a streaming chunk.
type toolCallChunk struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// SSEStream decodes an OpenAI-style server-sent-events body into deltas.
type SSEStream struct {
	reader  *bufio.Reader
	closer  io.Closer
	pending []Delta
	err     error

	closeOnce sync.Once
}

// NewSSEStream wraps a streaming response body.
func NewSSEStream(body io.ReadCloser) *SSEStream {
	return &SSEStream{
		reader: bufio.NewReader(body),
		closer: body,
	}
}

// Recv returns the next delta. It returns io.EOF once the stream has
// delivered its terminating frame.
func (s *SSEStream) Recv() (Delta, error) {
	for {
		if len(s.pending) > 0 {
			d := s.pending[0]
			s.pending = s.pending[1:]
			return d, nil
		}
		if s.err != nil {
			return Delta{}, s.err
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			s.err = err
			if err != io.EOF {
				return Delta{}, fmt.Errorf("read stream: %w", err)
			}
			return Delta{}, io.EOF
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			s.err = io.EOF
			return Delta{}, io.EOF
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.err = fmt.Errorf("decode chunk: %w", err)
			return Delta{}, s.err
		}
		s.enqueue(&chunk)
	}
}

// enqueue fans a chunk out into individual deltas, preserving order.
func (s *SSEStream) enqueue(chunk *chatChunk) {
	if len(chunk.Choices) == 0 {
		return
	}
	choice := chunk.Choices[0]
	if choice.Delta.Content != "" {
		s.pending = append(s.pending, Delta{Text: choice.Delta.Content})
	}
	for _, tc := range choice.Delta.ToolCalls {
		s.pending = append(s.pending, Delta{ToolCall: &ToolCallDelta{
			Index: tc.Index,
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Args:  tc.Function.Arguments,
		}})
	}
	if choice.FinishReason != "" {
		d := Delta{FinishReason: choice.FinishReason}
		if chunk.Usage != nil {
			d.Usage = &Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		s.pending = append(s.pending, d)
	}
}

// Close releases the underlying connection.
func (s *SSEStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.closer.Close()
	})
	return err
}
