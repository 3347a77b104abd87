package template

import (
	"github.com/mverde/consola/internal/models"
)

// Resolve builds the variable map for rendering one pending item. Values are
// resolved in order: item metadata, then group-level data, then empty (which
// Render later surfaces as a bracketed placeholder). Only the variables the
// rule's category offers are resolved; contact_name always maps to the
// contact's first name.
func Resolve(category string, item models.PendingItem, groupData map[string]string) map[string]string {
	vars := make(map[string]string)
	for _, name := range models.VariablesFor(category) {
		if name == "contact_name" {
			vars[name] = FirstName(item.ContactName)
			continue
		}
		if val, ok := item.Metadata[name]; ok && val != "" {
			vars[name] = val
			continue
		}
		if val, ok := groupData[name]; ok && val != "" {
			vars[name] = val
		}
	}
	return vars
}

// RenderForItem resolves an item's variables and renders the template in one
// step.
func (e *Engine) RenderForItem(tmpl, category string, item models.PendingItem, groupData map[string]string) string {
	return e.Render(tmpl, Resolve(category, item, groupData))
}
