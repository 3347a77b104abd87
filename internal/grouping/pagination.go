package grouping

import (
	"fmt"
	"sync"

	"github.com/mverde/consola/internal/models"
)

// DefaultPageSize is applied to keys with no stored preference.
const DefaultPageSize = 5

// PageSizes are the selectable page sizes.
var PageSizes = []int{5, 10, 25, 50, 100}

// Page is one rendered slice of a leaf's items.
type Page struct {
	Items      []models.PendingItem `json:"items"`
	Number     int                  `json:"page"`
	Size       int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
	TotalItems int                  `json:"total_items"`
	Label      string               `json:"label"`
	HasPrev    bool                 `json:"has_prev"`
	HasNext    bool                 `json:"has_next"`
}

// PrefStore persists page-size preferences across sessions. Implementations
// may be a no-op.
type PrefStore interface {
	PageSize(key string) (int, bool)
	SetPageSize(key string, size int) error
}

type pageState struct {
	page int
	size int
}

// Paginator tracks current page and page size per composite key. State is
// scoped to one rule's keys and survives cache invalidation; only an explicit
// size change resets a key's page.
type Paginator struct {
	mu    sync.Mutex
	state map[string]*pageState
	prefs PrefStore
}

// NewPaginator creates a paginator. prefs may be nil.
func NewPaginator(prefs PrefStore) *Paginator {
	return &Paginator{
		state: make(map[string]*pageState),
		prefs: prefs,
	}
}

func (p *Paginator) get(key string) *pageState {
	st, ok := p.state[key]
	if !ok {
		size := DefaultPageSize
		if p.prefs != nil {
			if stored, found := p.prefs.PageSize(key); found && validPageSize(stored) {
				size = stored
			}
		}
		st = &pageState{page: 1, size: size}
		p.state[key] = st
	}
	return st
}

// SetPage moves a key to the given page. Out-of-range pages are clamped when
// slicing, not here; the stored value floor is 1.
func (p *Paginator) SetPage(key string, page int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if page < 1 {
		page = 1
	}
	p.get(key).page = page
}

// SetPageSize changes a key's page size and resets its page to 1. Unknown
// sizes are rejected.
func (p *Paginator) SetPageSize(key string, size int) error {
	if !validPageSize(size) {
		return fmt.Errorf("invalid page size %d", size)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.get(key)
	st.size = size
	st.page = 1
	if p.prefs != nil {
		if err := p.prefs.SetPageSize(key, size); err != nil {
			return err
		}
	}
	return nil
}

// Slice returns the current page of a leaf's items. The current page is
// clamped to the last page when the item count shrank underneath it.
func (p *Paginator) Slice(key string, items []models.PendingItem) Page {
	p.mu.Lock()
	st := p.get(key)
	page, size := st.page, st.size

	total := len(items)
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
		st.page = page
	}
	p.mu.Unlock()

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Items:      items[start:end],
		Number:     page,
		Size:       size,
		TotalPages: totalPages,
		TotalItems: total,
		Label:      fmt.Sprintf("Pág %d/%d", page, totalPages),
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}

func validPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}
