package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnoozeRecord is one locally logged snooze.
type SnoozeRecord struct {
	ID          string    `json:"id"`
	ContactID   string    `json:"contact_id"`
	RuleID      string    `json:"rule_id"`
	QueueItemID string    `json:"queue_item_id,omitempty"`
	SnoozeDays  int       `json:"snooze_days"`
	CreatedAt   time.Time `json:"created_at"`
}

// SnoozeRepository logs snoozes locally. The backend owns the snooze itself;
// the log only feeds the "recently snoozed" panel.
type SnoozeRepository struct {
	db *sql.DB
}

func NewSnoozeRepository(db *sql.DB) *SnoozeRepository {
	return &SnoozeRepository{db: db}
}

// Record inserts one snooze.
func (r *SnoozeRepository) Record(contactID, ruleID, queueItemID string, days int) error {
	_, err := r.db.Exec(`
		INSERT INTO snoozes (id, contact_id, rule_id, queue_item_id, snooze_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), contactID, ruleID, queueItemID, days, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record snooze: %w", err)
	}
	return nil
}

// Recent returns the latest snoozes, newest first.
func (r *SnoozeRepository) Recent(limit int) ([]SnoozeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`
		SELECT id, contact_id, rule_id, COALESCE(queue_item_id, ''), snooze_days, created_at
		FROM snoozes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snoozes: %w", err)
	}
	defer rows.Close()

	var records []SnoozeRecord
	for rows.Next() {
		var rec SnoozeRecord
		if err := rows.Scan(&rec.ID, &rec.ContactID, &rec.RuleID, &rec.QueueItemID, &rec.SnoozeDays, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
