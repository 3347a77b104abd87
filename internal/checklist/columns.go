package checklist

import (
	"errors"
	"sort"

	"github.com/mverde/consola/internal/models"
)

var ErrColumnNotFound = errors.New("column not found")

// VisibleColumns returns a role-group's columns in user order, excluding
// deleted ones. Deleted columns keep their historical cells but never render.
func VisibleColumns(cols []models.TaskColumn, roleID string) []models.TaskColumn {
	var out []models.TaskColumn
	for _, col := range cols {
		if col.Deleted || col.RoleID != roleID {
			continue
		}
		out = append(out, col)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

// MoveDirection is the direction of a column move.
type MoveDirection string

const (
	MoveLeft  MoveDirection = "left"
	MoveRight MoveDirection = "right"
)

// neighborColumn finds the id of the column a move would swap with, within
// the same role-group's visible ordering. Returns "" when the column is
// already at the edge.
func neighborColumn(cols []models.TaskColumn, columnID string, dir MoveDirection) (string, error) {
	var roleID string
	found := false
	for _, col := range cols {
		if col.ID == columnID {
			roleID = col.RoleID
			found = true
			break
		}
	}
	if !found {
		return "", ErrColumnNotFound
	}

	visible := VisibleColumns(cols, roleID)
	for i, col := range visible {
		if col.ID != columnID {
			continue
		}
		if dir == MoveLeft && i > 0 {
			return visible[i-1].ID, nil
		}
		if dir == MoveRight && i < len(visible)-1 {
			return visible[i+1].ID, nil
		}
		return "", nil
	}
	return "", ErrColumnNotFound
}
