package grouping

import "sync"

// Expansion tracks which rule, groups and subgroups are open. The rule level
// is an accordion: opening a rule closes any other open rule. Groups and
// subgroups toggle independently; opening one never closes a sibling. The
// asymmetry is deliberate and must survive refactors.
type Expansion struct {
	mu        sync.Mutex
	openRule  string
	groups    map[string]bool
	subgroups map[string]bool
}

// NewExpansion creates an empty expansion state.
func NewExpansion() *Expansion {
	return &Expansion{
		groups:    make(map[string]bool),
		subgroups: make(map[string]bool),
	}
}

// ToggleRule opens a rule section, closing any other open rule. Toggling the
// already-open rule closes it. Returns true when the rule is now open, which
// is the signal to lazily load its grouped payload.
func (e *Expansion) ToggleRule(ruleID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openRule == ruleID {
		e.openRule = ""
		return false
	}
	e.openRule = ruleID
	return true
}

// OpenRule returns the currently open rule, or "".
func (e *Expansion) OpenRule() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openRule
}

// ToggleGroup flips a group's open state. Returns the new state.
func (e *Expansion) ToggleGroup(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groups[key] = !e.groups[key]
	return e.groups[key]
}

// ToggleSubgroup flips a subgroup's open state. Returns the new state.
func (e *Expansion) ToggleSubgroup(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subgroups[key] = !e.subgroups[key]
	return e.subgroups[key]
}

// GroupOpen reports a group's open state.
func (e *Expansion) GroupOpen(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.groups[key]
}

// SubgroupOpen reports a subgroup's open state.
func (e *Expansion) SubgroupOpen(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subgroups[key]
}
