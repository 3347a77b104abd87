package checklist

import (
	"time"

	"github.com/mverde/consola/internal/models"
)

// weekStart returns the Monday 00:00 of the ISO week containing t, in t's
// location.
func weekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

// checkedThisWeek reports whether the cell was checked inside the current
// ISO week.
func checkedThisWeek(cell models.ChecklistCell, now time.Time) bool {
	if cell.CheckedAt == nil {
		return false
	}
	start := weekStart(now)
	return !cell.CheckedAt.Before(start) && cell.CheckedAt.Before(start.AddDate(0, 0, 7))
}

// WeeklyStatusFor derives a case's traffic status for the current week from
// its cells. Cells of deleted columns are not checkable. Green means every
// checkable cell is checked or its column is due in the future; yellow means
// there are overdue gaps but something was checked this week; red means
// overdue gaps with no activity this week. Gray is never produced here.
func WeeklyStatusFor(c models.Case, now time.Time) string {
	visible := make(map[string]models.TaskColumn)
	for _, col := range c.Columns {
		if !col.Deleted {
			visible[col.ID] = col
		}
	}

	anyThisWeek := false
	allCovered := true

	cellIndex := make(map[string]models.ChecklistCell, len(c.Cells))
	for _, cell := range c.Cells {
		cellIndex[cell.ContactID+"/"+cell.ColumnID] = cell
		if _, ok := visible[cell.ColumnID]; !ok {
			continue
		}
		if checkedThisWeek(cell, now) {
			anyThisWeek = true
		}
	}

	for _, contact := range c.Contacts {
		for id, col := range visible {
			cell, ok := cellIndex[contact.ID+"/"+id]
			if ok && cell.Checked {
				continue
			}
			if col.DueDate != nil && col.DueDate.After(now) {
				continue
			}
			allCovered = false
		}
	}

	switch {
	case allCovered:
		return models.StatusGreen
	case anyThisWeek:
		return models.StatusYellow
	default:
		return models.StatusRed
	}
}

// GlobalStatus is the worst weekly status among all cases: red if any case
// is red, else yellow if any is yellow, else green. A case without a status
// counts as green, and so does an empty case list. Gray is valid only in
// legacy history entries and is treated as green for the current week.
func GlobalStatus(cases []models.Case) string {
	global := models.StatusGreen
	for _, c := range cases {
		status := c.WeeklyStatus
		if status == "" || status == models.StatusGray {
			status = models.StatusGreen
		}
		global = models.WorseStatus(global, status)
	}
	return global
}
