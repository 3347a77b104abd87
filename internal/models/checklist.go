package models

import "time"

// Weekly traffic-light statuses. Gray is reserved for legacy history entries
// and is never emitted for the current week.
const (
	StatusGreen  = "green"
	StatusYellow = "yellow"
	StatusRed    = "red"
	StatusGray   = "gray"
)

// statusSeverity orders statuses worst-first for the global rollup.
var statusSeverity = map[string]int{
	StatusRed:    3,
	StatusYellow: 2,
	StatusGreen:  1,
	StatusGray:   0,
}

// WorseStatus returns the worse of two weekly statuses (red > yellow > green).
func WorseStatus(a, b string) string {
	if statusSeverity[a] >= statusSeverity[b] {
		return a
	}
	return b
}

// CaseContact is a contact attached to one case. Roles are scoped to the
// case, not global; a contact may carry zero or several. ProfileComplete is
// the weekly profile-completion checkbox, reset server-side each week.
type CaseContact struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Roles           []string `json:"roles"`
	ProfileComplete bool     `json:"profile_complete"`
}

// TaskColumn is a dynamic checklist column attached to one role-group of a
// case. Columns are ordered and the order is user-controlled. A deleted
// column is excluded from rendering but its cells are retained.
type TaskColumn struct {
	ID       string     `json:"id"`
	RoleID   string     `json:"role_id"`
	Title    string     `json:"title"`
	DueDate  *time.Time `json:"due_date,omitempty"`
	Position int        `json:"position"`
	Deleted  bool       `json:"deleted"`
}

// ChecklistCell is the (contact, column) intersection.
type ChecklistCell struct {
	ContactID string     `json:"contact_id"`
	ColumnID  string     `json:"column_id"`
	Checked   bool       `json:"checked"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
}

// Case is one delivery engagement with its contacts, columns and cells.
// WeeklyStatus is computed server-side; the console treats it as truth.
type Case struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	DeliveryStage string          `json:"delivery_stage"`
	Contacts      []CaseContact   `json:"contacts"`
	Columns       []TaskColumn    `json:"columns"`
	Cells         []ChecklistCell `json:"cells"`
	WeeklyStatus  string          `json:"weekly_status,omitempty"`
}

// CaseCollection is the full delivery payload from the backend.
type CaseCollection struct {
	Cases          []Case              `json:"cases"`
	GroupedByStage map[string][]string `json:"grouped_by_delivery_stage"`
}
