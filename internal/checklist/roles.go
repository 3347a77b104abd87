package checklist

import (
	"sort"
	"strings"

	"github.com/mverde/consola/internal/models"
)

// OthersRole is the synthetic bucket for contacts with no role labels.
const OthersRole = "others"

// rolePriority is the canonical ordering of role buckets. Unlisted roles
// share one rank below the canonical ones; others is always last.
var rolePriority = map[string]int{
	"deal_maker": 1,
	"champion":   2,
	"sponsor":    3,
	"finance":    4,
	"operations": 5,
	"legal":      6,
}

const (
	unknownRoleRank = 50
	othersRank      = 100
)

// roleLabels maps role ids to display labels.
var roleLabels = map[string]string{
	"deal_maker": "Deal maker",
	"champion":   "Champion",
	"sponsor":    "Sponsor",
	"finance":    "Finanzas",
	"operations": "Operaciones",
	"legal":      "Legal",
	OthersRole:   "Otros",
}

// RoleLabel returns the display label for a role id.
func RoleLabel(roleID string) string {
	if label, ok := roleLabels[roleID]; ok {
		return label
	}
	words := strings.Split(strings.ReplaceAll(roleID, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func roleRank(roleID string) int {
	if roleID == OthersRole {
		return othersRank
	}
	if rank, ok := rolePriority[roleID]; ok {
		return rank
	}
	return unknownRoleRank
}

// RoleGroup is the set of contacts sharing one role label within one case.
type RoleGroup struct {
	RoleID   string               `json:"role_id"`
	Label    string               `json:"label"`
	Contacts []models.CaseContact `json:"contacts"`
}

// GroupByRole buckets a case's contacts by role. This is a multimap, not a
// partition: a contact with roles {A, B} appears under both A and B, deduped
// by contact id within each bucket. Contacts with no roles land in the
// synthetic others bucket. Buckets follow the canonical priority order with
// others last; roles of equal rank sort alphabetically by display label.
func GroupByRole(contacts []models.CaseContact) []RoleGroup {
	buckets := make(map[string][]models.CaseContact)
	seen := make(map[string]map[string]bool) // role -> contact id -> present

	add := func(role string, c models.CaseContact) {
		if seen[role] == nil {
			seen[role] = make(map[string]bool)
		}
		if seen[role][c.ID] {
			return
		}
		seen[role][c.ID] = true
		buckets[role] = append(buckets[role], c)
	}

	for _, c := range contacts {
		if len(c.Roles) == 0 {
			add(OthersRole, c)
			continue
		}
		for _, role := range c.Roles {
			add(role, c)
		}
	}

	roles := make([]string, 0, len(buckets))
	for role := range buckets {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool {
		ri, rj := roleRank(roles[i]), roleRank(roles[j])
		if ri != rj {
			return ri < rj
		}
		return RoleLabel(roles[i]) < RoleLabel(roles[j])
	})

	groups := make([]RoleGroup, 0, len(roles))
	for _, role := range roles {
		groups = append(groups, RoleGroup{
			RoleID:   role,
			Label:    RoleLabel(role),
			Contacts: buckets[role],
		})
	}
	return groups
}
