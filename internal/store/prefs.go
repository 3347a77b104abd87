package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PrefRepository persists per-key page-size preferences. It backs the
// grouping.PrefStore interface so sizes survive cache invalidation and
// process restarts.
type PrefRepository struct {
	db *sql.DB
}

func NewPrefRepository(db *sql.DB) *PrefRepository {
	return &PrefRepository{db: db}
}

// PageSize returns the stored page size for a group key.
func (r *PrefRepository) PageSize(key string) (int, bool) {
	var size int
	err := r.db.QueryRow(`SELECT page_size FROM page_prefs WHERE group_key = ?`, key).Scan(&size)
	if err != nil {
		return 0, false
	}
	return size, true
}

// SetPageSize stores (or replaces) the page size for a group key.
func (r *PrefRepository) SetPageSize(key string, size int) error {
	_, err := r.db.Exec(`
		INSERT INTO page_prefs (group_key, page_size, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(group_key) DO UPDATE SET page_size = excluded.page_size, updated_at = excluded.updated_at`,
		key, size, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to store page size: %w", err)
	}
	return nil
}
