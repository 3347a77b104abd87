package models

// PendingItem is one recipient matched by one rule today. Items are produced
// by the external rule evaluator and consumed here for a single render pass;
// a successful send or a snooze removes the item from the pending set.
type PendingItem struct {
	ID          string            `json:"id"`
	ContactID   string            `json:"contact_id"`
	ContactName string            `json:"contact_name"`
	Address     string            `json:"address,omitempty"` // email or phone, may be absent
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Subgroup is the second bucketing level inside a group.
type Subgroup struct {
	ID    string            `json:"subgroup_id"`
	Name  string            `json:"subgroup_name"`
	Count int               `json:"count"`
	Items []PendingItem     `json:"contacts"`
	Data  map[string]string `json:"data,omitempty"`
}

// Group is the first bucketing level of one rule's pending items. When the
// parent payload declares subgroups, Items is empty and Subgroups carries the
// members; otherwise Subgroups is nil.
type Group struct {
	ID        string            `json:"group_id"`
	Name      string            `json:"group_name"`
	Count     int               `json:"count"`
	Items     []PendingItem     `json:"contacts,omitempty"`
	Subgroups []Subgroup        `json:"subgroups,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// GroupedPayload is one rule's pending items as shaped by the backend.
// HasSubgroups applies uniformly to every group in the payload.
type GroupedPayload struct {
	RuleID       string  `json:"rule_id"`
	Groups       []Group `json:"groups"`
	HasSubgroups bool    `json:"has_subgroups"`
}

// TotalItems returns the number of pending items across all buckets.
func (p *GroupedPayload) TotalItems() int {
	total := 0
	for _, g := range p.Groups {
		if p.HasSubgroups {
			for _, sg := range g.Subgroups {
				total += len(sg.Items)
			}
		} else {
			total += len(g.Items)
		}
	}
	return total
}
