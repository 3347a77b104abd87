package grouping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mverde/consola/internal/models"
)

// KeySeparator joins rule, group and subgroup ids into composite keys.
const KeySeparator = "|"

var (
	ErrMixedGrouping = errors.New("payload mixes grouped and ungrouped entries")
	ErrDuplicateItem = errors.New("pending item appears in more than one bucket")
	ErrUnknownKey    = errors.New("unknown group key")
)

// Key builds the composite key for a (rule, group, subgroup) triple. The
// subgroup id may be empty for rules without subgroup structure.
func Key(ruleID, groupID, subgroupID string) string {
	if subgroupID == "" {
		return ruleID + KeySeparator + groupID
	}
	return ruleID + KeySeparator + groupID + KeySeparator + subgroupID
}

// SplitKey decomposes a composite key into its parts.
func SplitKey(key string) (ruleID, groupID, subgroupID string) {
	parts := strings.SplitN(key, KeySeparator, 3)
	ruleID = parts[0]
	if len(parts) > 1 {
		groupID = parts[1]
	}
	if len(parts) > 2 {
		subgroupID = parts[2]
	}
	return
}

// Leaf is one addressable bucket of pending items: a group for flat rules,
// a (group, subgroup) pair for rules with subgroup structure.
type Leaf struct {
	Key          string
	GroupID      string
	GroupName    string
	SubgroupID   string
	SubgroupName string
	Data         map[string]string
	Items        []models.PendingItem
}

// Index is the display hierarchy of one rule's grouped payload. Leaves are
// ordered as the backend ordered them.
type Index struct {
	RuleID       string
	HasSubgroups bool
	Groups       []models.Group
	leaves       []Leaf
	byKey        map[string]int
}

// BuildIndex validates a grouped payload and indexes its leaves by composite
// key. Every pending item must land in exactly one (group, subgroup) bucket;
// a payload whose groups disagree with the collection-level has_subgroups
// flag is rejected rather than guessed at.
func BuildIndex(payload *models.GroupedPayload) (*Index, error) {
	idx := &Index{
		RuleID:       payload.RuleID,
		HasSubgroups: payload.HasSubgroups,
		Groups:       payload.Groups,
		byKey:        make(map[string]int),
	}
	seen := make(map[string]string) // item id -> leaf key

	addLeaf := func(leaf Leaf) error {
		for _, item := range leaf.Items {
			if prev, dup := seen[item.ID]; dup {
				return fmt.Errorf("%w: item %s in %s and %s", ErrDuplicateItem, item.ID, prev, leaf.Key)
			}
			seen[item.ID] = leaf.Key
		}
		idx.byKey[leaf.Key] = len(idx.leaves)
		idx.leaves = append(idx.leaves, leaf)
		return nil
	}

	for _, g := range payload.Groups {
		if payload.HasSubgroups {
			if len(g.Items) > 0 {
				return nil, fmt.Errorf("%w: group %s carries direct items", ErrMixedGrouping, g.ID)
			}
			for _, sg := range g.Subgroups {
				leaf := Leaf{
					Key:          Key(payload.RuleID, g.ID, sg.ID),
					GroupID:      g.ID,
					GroupName:    g.Name,
					SubgroupID:   sg.ID,
					SubgroupName: sg.Name,
					Data:         mergeData(g.Data, sg.Data),
					Items:        sg.Items,
				}
				if err := addLeaf(leaf); err != nil {
					return nil, err
				}
			}
		} else {
			if len(g.Subgroups) > 0 {
				return nil, fmt.Errorf("%w: group %s declares subgroups", ErrMixedGrouping, g.ID)
			}
			leaf := Leaf{
				Key:       Key(payload.RuleID, g.ID, ""),
				GroupID:   g.ID,
				GroupName: g.Name,
				Data:      g.Data,
				Items:     g.Items,
			}
			if err := addLeaf(leaf); err != nil {
				return nil, err
			}
		}
	}

	return idx, nil
}

// Leaf returns the bucket for a composite key.
func (idx *Index) Leaf(key string) (Leaf, error) {
	i, ok := idx.byKey[key]
	if !ok {
		return Leaf{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return idx.leaves[i], nil
}

// Leaves returns all buckets in backend order.
func (idx *Index) Leaves() []Leaf {
	return idx.leaves
}

// TotalItems returns the item count across all leaves.
func (idx *Index) TotalItems() int {
	total := 0
	for _, l := range idx.leaves {
		total += len(l.Items)
	}
	return total
}

// mergeData overlays subgroup data on top of group data. Subgroup values win.
func mergeData(group, sub map[string]string) map[string]string {
	if len(group) == 0 {
		return sub
	}
	out := make(map[string]string, len(group)+len(sub))
	for k, v := range group {
		out[k] = v
	}
	for k, v := range sub {
		out[k] = v
	}
	return out
}
