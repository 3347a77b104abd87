package grouping

import (
	"fmt"
	"testing"

	"github.com/mverde/consola/internal/models"
)

func makeItems(n int) []models.PendingItem {
	items := make([]models.PendingItem, n)
	for i := range items {
		items[i] = models.PendingItem{ID: fmt.Sprintf("item-%d", i+1)}
	}
	return items
}

func TestPaginatorSevenItemsDefaultSize(t *testing.T) {
	p := NewPaginator(nil)
	key := Key("E01", "g1", "")
	items := makeItems(7)

	page := p.Slice(key, items)
	if page.Number != 1 || page.Size != DefaultPageSize {
		t.Fatalf("page = %d size = %d", page.Number, page.Size)
	}
	if len(page.Items) != 5 || page.Items[0].ID != "item-1" || page.Items[4].ID != "item-5" {
		t.Errorf("first page items wrong: %v", page.Items)
	}
	if page.Label != "Pág 1/2" {
		t.Errorf("label = %q, want \"Pág 1/2\"", page.Label)
	}
	if !page.HasNext || page.HasPrev {
		t.Errorf("HasNext=%v HasPrev=%v", page.HasNext, page.HasPrev)
	}

	p.SetPage(key, 2)
	page = p.Slice(key, items)
	if len(page.Items) != 2 || page.Items[0].ID != "item-6" {
		t.Errorf("second page items wrong: %v", page.Items)
	}
	if page.Label != "Pág 2/2" {
		t.Errorf("label = %q", page.Label)
	}
	if page.HasNext {
		t.Error("next must be disabled on the last page")
	}
	if !page.HasPrev {
		t.Error("prev must be enabled on page 2")
	}
}

func TestPaginatorSizeChangeResetsPage(t *testing.T) {
	p := NewPaginator(nil)
	key := Key("E01", "g1", "")
	items := makeItems(30)

	p.SetPage(key, 3)
	if page := p.Slice(key, items); page.Number != 3 {
		t.Fatalf("page = %d, want 3", page.Number)
	}

	if err := p.SetPageSize(key, 10); err != nil {
		t.Fatalf("SetPageSize: %v", err)
	}
	page := p.Slice(key, items)
	if page.Number != 1 {
		t.Errorf("page after size change = %d, want 1", page.Number)
	}
	if page.Size != 10 || len(page.Items) != 10 {
		t.Errorf("size = %d len = %d", page.Size, len(page.Items))
	}
}

func TestPaginatorRejectsUnknownSize(t *testing.T) {
	p := NewPaginator(nil)
	if err := p.SetPageSize("k", 7); err == nil {
		t.Error("size 7 must be rejected")
	}
	for _, s := range PageSizes {
		if err := p.SetPageSize("k", s); err != nil {
			t.Errorf("size %d rejected: %v", s, err)
		}
	}
}

func TestPaginatorSliceNeverExceedsSize(t *testing.T) {
	p := NewPaginator(nil)
	for _, n := range []int{0, 1, 4, 5, 6, 49, 101} {
		key := fmt.Sprintf("E01|g%d", n)
		page := p.Slice(key, makeItems(n))
		if len(page.Items) > page.Size {
			t.Errorf("n=%d: slice %d exceeds size %d", n, len(page.Items), page.Size)
		}
	}
}

func TestPaginatorClampsShrunkCollection(t *testing.T) {
	p := NewPaginator(nil)
	key := Key("E01", "g1", "")
	p.SetPage(key, 4)

	page := p.Slice(key, makeItems(6)) // only 2 pages now
	if page.Number != 2 {
		t.Errorf("page = %d, want clamp to 2", page.Number)
	}
	if len(page.Items) != 1 {
		t.Errorf("items = %d, want 1", len(page.Items))
	}
}

func TestPaginatorEmptyItems(t *testing.T) {
	p := NewPaginator(nil)
	page := p.Slice("E01|g1", nil)
	if page.Number != 1 || page.TotalPages != 1 || len(page.Items) != 0 {
		t.Errorf("empty slice page = %+v", page)
	}
	if page.Label != "Pág 1/1" {
		t.Errorf("label = %q", page.Label)
	}
}

func TestPaginatorKeysAreIndependent(t *testing.T) {
	p := NewPaginator(nil)
	a, b := Key("E01", "g1", ""), Key("E01", "g2", "")
	p.SetPage(a, 2)
	if err := p.SetPageSize(b, 25); err != nil {
		t.Fatal(err)
	}

	items := makeItems(30)
	if page := p.Slice(a, items); page.Number != 2 || page.Size != DefaultPageSize {
		t.Errorf("key a page = %d size = %d", page.Number, page.Size)
	}
	if page := p.Slice(b, items); page.Number != 1 || page.Size != 25 {
		t.Errorf("key b page = %d size = %d", page.Number, page.Size)
	}
}

type fakePrefs struct {
	sizes map[string]int
}

func (f *fakePrefs) PageSize(key string) (int, bool) {
	s, ok := f.sizes[key]
	return s, ok
}

func (f *fakePrefs) SetPageSize(key string, size int) error {
	f.sizes[key] = size
	return nil
}

func TestPaginatorUsesStoredPreference(t *testing.T) {
	prefs := &fakePrefs{sizes: map[string]int{"E01|g1": 25}}
	p := NewPaginator(prefs)

	page := p.Slice("E01|g1", makeItems(30))
	if page.Size != 25 {
		t.Errorf("size = %d, want stored 25", page.Size)
	}

	if err := p.SetPageSize("E01|g2", 50); err != nil {
		t.Fatal(err)
	}
	if prefs.sizes["E01|g2"] != 50 {
		t.Error("preference not persisted")
	}
}
