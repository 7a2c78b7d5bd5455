// Package procedure provides the static catalog of permitted call workflows.
package procedure

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// Step required-ness classes.
const (
	ClassAlways      = "always"
	ClassOnce        = "once"
	ClassConditional = "conditional"
)

// Step is one ordered step inside a procedure.
type Step struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Class     string   `json:"class"`
	Condition string   `json:"condition,omitempty"`
	Tools     []string `json:"tools,omitempty"`
}

// Procedure is an immutable catalog entry describing a permitted workflow.
type Procedure struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Catalog holds all procedures, loaded once at process start and never
// mutated. Safe to share across calls.
type Catalog struct {
	procedures []Procedure
	byID       map[string]*Procedure
}

//go:embed procedures.json
var defaultCatalogJSON []byte

// Load parses a catalog from JSON.
func Load(data []byte) (*Catalog, error) {
	var procs []Procedure
	if err := json.Unmarshal(data, &procs); err != nil {
		return nil, fmt.Errorf("failed to parse procedure catalog: %w", err)
	}
	c := &Catalog{procedures: procs, byID: make(map[string]*Procedure, len(procs))}
	for i := range c.procedures {
		p := &c.procedures[i]
		if p.ID == "" {
			return nil, fmt.Errorf("procedure %d has no id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate procedure id: %s", p.ID)
		}
		for _, s := range p.Steps {
			switch s.Class {
			case ClassAlways, ClassOnce, ClassConditional:
			default:
				return nil, fmt.Errorf("procedure %s step %s: unknown class %q", p.ID, s.ID, s.Class)
			}
		}
		c.byID[p.ID] = p
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Load(defaultCatalogJSON)
}

// All returns the procedures in declaration order.
func (c *Catalog) All() []Procedure {
	return c.procedures
}

// Get returns a procedure by id.
func (c *Catalog) Get(id string) (*Procedure, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Describe renders the catalog as prompt text for the conscious loop.
func (c *Catalog) Describe() string {
	out := ""
	for _, p := range c.procedures {
		out += fmt.Sprintf("Procedure %q (%s):\n", p.Name, p.ID)
		for i, s := range p.Steps {
			line := fmt.Sprintf("  %d. %s [%s]", i+1, s.Name, s.Class)
			if s.Condition != "" {
				line += " when " + s.Condition
			}
			if len(s.Tools) > 0 {
				line += fmt.Sprintf(" (tools: %v)", s.Tools)
			}
			out += line + "\n"
		}
	}
	return out
}
