package template

import (
	"regexp"
	"strings"
)

// token pattern for message templates: {variable_name}
var tokenPattern = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9_]*)\}`)

// Engine substitutes {name} tokens in message templates.
type Engine struct{}

// NewEngine creates a new template engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Render replaces every {name} token with its value from vars. A token whose
// value is absent or empty renders as the literal [name] so the operator sees
// the missing data instead of a silent blank. Inputs without tokens pass
// through unchanged; Render never fails.
func (e *Engine) Render(tmpl string, vars map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		name := token[1 : len(token)-1]
		if val, ok := vars[name]; ok && val != "" {
			return val
		}
		return "[" + name + "]"
	})
}

// Tokens returns the distinct variable names referenced by a template, in
// order of first appearance.
func (e *Engine) Tokens(tmpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range tokenPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// FirstName returns the text before the first space of a full name. Only the
// first name is ever substituted for contact_name.
func FirstName(full string) string {
	full = strings.TrimSpace(full)
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
