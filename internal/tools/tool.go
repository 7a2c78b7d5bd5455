// Package tools provides the tool framework and implementations for the
// voice bot.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ringline/ringline/internal/audit"
	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/database"
	"github.com/ringline/ringline/internal/handoff"
	"github.com/ringline/ringline/internal/provider"
	"github.com/ringline/ringline/internal/relay"
)

// Args carries one invocation's arguments. Parsed is nil when the raw
// buffer was not valid JSON; the tool then decides what to do with Raw.
// That boundary is deliberately permissive: argument garbage is the
// tool's failure to report, not the engine's.
type Args struct {
	Parsed map[string]any
	Raw    string
}

// ParseArgs parses a raw argument buffer.
func ParseArgs(raw string) Args {
	a := Args{Raw: raw}
	if raw == "" {
		a.Parsed = map[string]any{}
		return a
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		a.Parsed = parsed
	}
	return a
}

// Engine is the slice of the completion engine exposed to tools.
type Engine interface {
	// Finish stops the completion loop once the current batch resolves;
	// no follow-up completion is started.
	Finish()
}

// SMSSender sends text messages through the telephony side-channel.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Env is the execution context handed to every tool invocation.
type Env struct {
	Store   *convo.Store
	DB      *database.DB
	Relay   relay.Relay
	Engine  Engine
	Handoff *handoff.Manager
	Audit   audit.Publisher
	SMS     SMSSender
}

// Tool is the interface all bot tools implement.
type Tool interface {
	// Name returns the tool identifier used in function calls.
	Name() string
	// Description returns a human-readable description for the LLM.
	Description() string
	// Parameters returns the JSON Schema for tool parameters.
	Parameters() map[string]any
	// Execute runs the tool. On error, return a caller-friendly message
	// in the error; it is surfaced to the model as the tool result.
	Execute(ctx context.Context, args Args, env *Env) (string, error)
}

// FillerTool is an optional interface for tools that offer a phrase to
// speak while they are still running.
type FillerTool interface {
	Tool
	// FillerPhrase returns the phrase for the given arguments, or ""
	// when the tool has nothing to say this time.
	FillerPhrase(args Args) string
}

// Filler resolves a tool's filler phrase through the capability check.
func Filler(t Tool, args Args) (string, bool) {
	ft, ok := t.(FillerTool)
	if !ok {
		return "", false
	}
	phrase := ft.FillerPhrase(args)
	return phrase, phrase != ""
}

// Registry manages tool registration and lookup. Immutable after setup;
// safe to share across calls.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	if _, dup := r.tools[tool.Name()]; !dup {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	result := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}

// Definitions returns the tool schema catalog for the LLM request.
func (r *Registry) Definitions() []provider.ToolDefinition {
	result := make([]provider.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		result = append(result, provider.ToolDefinition{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return result
}

// GetString extracts a string parameter with a default value.
func (a Args) GetString(key, defaultVal string) string {
	if a.Parsed == nil {
		return defaultVal
	}
	if v, ok := a.Parsed[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// GetInt extracts an int parameter with a default value.
func (a Args) GetInt(key string, defaultVal int) int {
	if a.Parsed == nil {
		return defaultVal
	}
	if v, ok := a.Parsed[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return defaultVal
}

func jsonResult(v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(out), nil
}
