// Package cache persists grouped pending-items payloads between requests.
// Entries are keyed by rule id; different rules never share entries. The
// cache survives a process restart but any manual refresh or job completion
// clears it.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mverde/consola/internal/models"
)

var bucketPayloads = []byte("grouped_payloads")

// BoltCache stores grouped payloads in a BoltDB file.
type BoltCache struct {
	db  *bolt.DB
	ttl time.Duration
}

type entry struct {
	Payload  *models.GroupedPayload `json:"payload"`
	StoredAt time.Time              `json:"stored_at"`
}

// NewBoltCache opens (or creates) the cache file. A non-zero ttl expires
// entries on read.
func NewBoltCache(path string, ttl time.Duration) (*BoltCache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPayloads)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &BoltCache{db: db, ttl: ttl}, nil
}

// Get returns one rule's cached payload, if present and fresh.
func (c *BoltCache) Get(ruleID string) (*models.GroupedPayload, bool) {
	var e entry
	found := false

	c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPayloads).Get([]byte(ruleID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &e); err != nil {
			return nil
		}
		found = true
		return nil
	})

	if !found {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.StoredAt) > c.ttl {
		// stale entry, drop it lazily
		c.Invalidate(ruleID)
		return nil, false
	}
	return e.Payload, true
}

// Put stores one rule's payload, replacing any previous entry.
func (c *BoltCache) Put(ruleID string, payload *models.GroupedPayload) error {
	data, err := json.Marshal(entry{Payload: payload, StoredAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPayloads).Put([]byte(ruleID), data)
	})
}

// Invalidate drops one rule's entry.
func (c *BoltCache) Invalidate(ruleID string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPayloads).Delete([]byte(ruleID))
	})
}

// InvalidateAll drops every entry.
func (c *BoltCache) InvalidateAll() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketPayloads); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketPayloads)
		return err
	})
}

// Close closes the underlying database.
func (c *BoltCache) Close() error {
	return c.db.Close()
}
