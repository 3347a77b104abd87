package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mverde/consola/internal/models"
)

// JobRunRepository persists job runs so the console can show recent refresh
// and dispatch history. Implements the jobs.Recorder interface.
type JobRunRepository struct {
	db *sql.DB
}

func NewJobRunRepository(db *sql.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// RecordStart inserts a freshly started run.
func (r *JobRunRepository) RecordStart(run models.JobRun) error {
	_, err := r.db.Exec(`
		INSERT INTO job_runs (id, kind, remote_id, status, message, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.RemoteID, run.Status, run.Message, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record job start: %w", err)
	}
	return nil
}

// RecordFinish marks a run terminal.
func (r *JobRunRepository) RecordFinish(id, status, message string) error {
	_, err := r.db.Exec(`
		UPDATE job_runs SET status = ?, message = ?, finished_at = ? WHERE id = ?`,
		status, message, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record job finish: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (r *JobRunRepository) Recent(limit int) ([]models.JobRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`
		SELECT id, kind, remote_id, status, COALESCE(message, ''), started_at, finished_at
		FROM job_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}
	defer rows.Close()

	var runs []models.JobRun
	for rows.Next() {
		var run models.JobRun
		var finishedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.Kind, &run.RemoteID, &run.Status, &run.Message, &run.StartedAt, &finishedAt); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LastFinished returns the most recent terminal run of a kind, or nil.
func (r *JobRunRepository) LastFinished(kind string) (*models.JobRun, error) {
	run := &models.JobRun{}
	var finishedAt sql.NullTime
	err := r.db.QueryRow(`
		SELECT id, kind, remote_id, status, COALESCE(message, ''), started_at, finished_at
		FROM job_runs WHERE kind = ? AND finished_at IS NOT NULL
		ORDER BY finished_at DESC LIMIT 1`, kind,
	).Scan(&run.ID, &run.Kind, &run.RemoteID, &run.Status, &run.Message, &run.StartedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return run, nil
}
