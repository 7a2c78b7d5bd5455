package convo

// Caller is the resolved identity of the person on the line.
// Resolved lazily, usually by the find_user tool.
type Caller struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// Context is the per-call mutable state that lives outside the turn log.
// It is owned by the store; collaborators read it but mutate only through
// the store's setters.
type Context struct {
	Caller *Caller `json:"caller,omitempty"`
	// Governance maps "procedureID/stepID" to the tracked step status.
	Governance map[string]string `json:"governance,omitempty"`
	// Recall holds similarity-recall suggestions from the subconscious pass.
	Recall []string `json:"recall,omitempty"`
	// Summary is the running transcript summary.
	Summary string `json:"summary,omitempty"`
}

// ContextPatch is a partial context merged by Store.SetContext. Nil fields
// are left untouched.
type ContextPatch struct {
	Caller     *Caller
	Governance map[string]string
	Recall     []string
	Summary    *string
}

func (c *Context) apply(p ContextPatch) {
	if p.Caller != nil {
		c.Caller = p.Caller
	}
	if p.Governance != nil {
		if c.Governance == nil {
			c.Governance = make(map[string]string, len(p.Governance))
		}
		for k, v := range p.Governance {
			c.Governance[k] = v
		}
	}
	if p.Recall != nil {
		c.Recall = p.Recall
	}
	if p.Summary != nil {
		c.Summary = *p.Summary
	}
}

// Clone returns a deep copy safe to read without holding the store lock.
func (c *Context) Clone() Context {
	cp := Context{Summary: c.Summary}
	if c.Caller != nil {
		caller := *c.Caller
		cp.Caller = &caller
	}
	if c.Governance != nil {
		cp.Governance = make(map[string]string, len(c.Governance))
		for k, v := range c.Governance {
			cp.Governance[k] = v
		}
	}
	if c.Recall != nil {
		cp.Recall = append([]string(nil), c.Recall...)
	}
	return cp
}
