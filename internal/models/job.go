package models

import "time"

// Job statuses as reported by the backend. TimedOut is assigned locally when
// the poll attempt cap is reached; the backend never reports it.
const (
	JobUploaded   = "uploaded"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
	JobCancelled  = "cancelled"
	JobTimedOut   = "timed_out"
)

// JobKind names the batch operations the console can start. Only one job of
// a given kind may be in flight at a time.
const (
	KindQueueRefresh  = "queue_refresh"
	KindEmailQueue    = "email_queue"
	KindWhatsAppQueue = "whatsapp_queue"
	KindBatchDispatch = "batch_dispatch"
	KindContactImport = "contact_import"
)

// JobStatus is one observation of a server-tracked asynchronous job.
// Polling may skip intermediate progress values; only "terminal beats
// non-terminal" ordering is guaranteed.
type JobStatus struct {
	ID       string     `json:"job_id"`
	Status   string     `json:"status"`
	Progress int        `json:"progress"` // 0-100
	Current  int        `json:"current,omitempty"`
	Total    int        `json:"total,omitempty"`
	Message  string     `json:"message,omitempty"`
	Result   *JobResult `json:"result,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// JobResult carries completion counters.
type JobResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Sent    int `json:"sent"`
	Errors  int `json:"errors"`
}

// Terminal reports whether the status ends the polling loop.
func (s *JobStatus) Terminal() bool {
	switch s.Status {
	case JobCompleted, JobFailed, JobCancelled, JobTimedOut:
		return true
	}
	return false
}

// JobRun is a locally persisted record of one job the console started.
type JobRun struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	RemoteID   string     `json:"remote_id"`
	Status     string     `json:"status"`
	Message    string     `json:"message,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
