package checklist

import (
	"errors"
	"testing"

	"github.com/mverde/consola/internal/models"
)

func testColumns() []models.TaskColumn {
	return []models.TaskColumn{
		{ID: "a", RoleID: "champion", Position: 1},
		{ID: "b", RoleID: "champion", Position: 2},
		{ID: "c", RoleID: "champion", Position: 3, Deleted: true},
		{ID: "d", RoleID: "champion", Position: 4},
		{ID: "x", RoleID: "sponsor", Position: 1},
	}
}

func TestVisibleColumns(t *testing.T) {
	visible := VisibleColumns(testColumns(), "champion")
	if len(visible) != 3 {
		t.Fatalf("visible = %d, want 3 (deleted excluded)", len(visible))
	}
	if visible[0].ID != "a" || visible[1].ID != "b" || visible[2].ID != "d" {
		t.Errorf("order = %s %s %s", visible[0].ID, visible[1].ID, visible[2].ID)
	}
}

func TestNeighborColumnSkipsDeleted(t *testing.T) {
	cols := testColumns()

	// moving d left must swap with b, not the deleted c
	other, err := neighborColumn(cols, "d", MoveLeft)
	if err != nil {
		t.Fatal(err)
	}
	if other != "b" {
		t.Errorf("neighbor = %s, want b", other)
	}
}

func TestNeighborColumnAtEdge(t *testing.T) {
	cols := testColumns()

	other, err := neighborColumn(cols, "a", MoveLeft)
	if err != nil {
		t.Fatal(err)
	}
	if other != "" {
		t.Errorf("left edge neighbor = %q, want none", other)
	}

	other, err = neighborColumn(cols, "d", MoveRight)
	if err != nil {
		t.Fatal(err)
	}
	if other != "" {
		t.Errorf("right edge neighbor = %q, want none", other)
	}
}

func TestNeighborColumnUnknown(t *testing.T) {
	if _, err := neighborColumn(testColumns(), "nope", MoveLeft); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("err = %v, want ErrColumnNotFound", err)
	}
}
