package provider

import (
	"io"
	"strings"
	"testing"
)

func sseBody(frames ...string) io.ReadCloser {
	var b strings.Builder
	for _, f := range frames {
		b.WriteString("data: " + f + "\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return io.NopCloser(strings.NewReader(b.String()))
}

func collect(t *testing.T, s Stream) []Delta {
	t.Helper()
	var out []Delta
	for {
		d, err := s.Recv()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		out = append(out, d)
	}
}

func TestSSEStreamTextDeltas(t *testing.T) {
	s := NewSSEStream(sseBody(
		`{"choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"lo."}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
	))
	deltas := collect(t, s)
	if len(deltas) != 3 {
		t.Fatalf("expected 3 deltas, got %d: %+v", len(deltas), deltas)
	}
	if deltas[0].Text != "Hel" || deltas[1].Text != "lo." {
		t.Fatalf("text fragments wrong: %+v", deltas[:2])
	}
	if deltas[2].FinishReason != FinishStop {
		t.Fatalf("finish reason: %q", deltas[2].FinishReason)
	}
}

func TestSSEStreamToolCallFragments(t *testing.T) {
	s := NewSSEStream(sseBody(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"find_user","arguments":""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"phone\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"555-0100\"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	))
	deltas := collect(t, s)
	if len(deltas) != 4 {
		t.Fatalf("expected 4 deltas, got %d", len(deltas))
	}
	first := deltas[0].ToolCall
	if first == nil || first.ID != "call_1" || first.Name != "find_user" {
		t.Fatalf("first fragment wrong: %+v", first)
	}
	args := deltas[1].ToolCall.Args + deltas[2].ToolCall.Args
	if args != `{"phone":"555-0100"}` {
		t.Fatalf("argument fragments not verbatim: %q", args)
	}
	if deltas[3].FinishReason != FinishToolCalls {
		t.Fatalf("finish reason: %q", deltas[3].FinishReason)
	}
}

func TestSSEStreamSkipsKeepalives(t *testing.T) {
	body := io.NopCloser(strings.NewReader(
		": keepalive\n\n" +
			`data: {"choices":[{"index":0,"delta":{"content":"hi"},"finish_reason":"stop"}]}` + "\n\n" +
			"data: [DONE]\n\n",
	))
	deltas := collect(t, NewSSEStream(body))
	if len(deltas) != 2 || deltas[0].Text != "hi" {
		t.Fatalf("unexpected deltas: %+v", deltas)
	}
}

func TestSSEStreamMalformedChunk(t *testing.T) {
	body := io.NopCloser(strings.NewReader("data: {not json}\n\n"))
	_, err := NewSSEStream(body).Recv()
	if err == nil || err == io.EOF {
		t.Fatalf("expected decode error, got %v", err)
	}
}
