package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mverde/consola/internal/metrics"
	"github.com/mverde/consola/internal/models"
)

// State is the polling loop's phase for one job run.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StatePolling  State = "polling"
	StateTerminal State = "terminal"
)

// Backend starts, observes and cancels server-side jobs.
type Backend interface {
	StartJob(ctx context.Context, kind string, payload any) (StartResult, error)
	JobStatus(ctx context.Context, jobID string) (*models.JobStatus, error)
	CancelJob(ctx context.Context, jobID string) error
}

// StartResult is the backend's answer to a start call. AlreadyRunning means
// no new job was created; that is a no-op success, not an error.
type StartResult struct {
	JobID          string `json:"job_id"`
	AlreadyRunning bool   `json:"already_running"`
}

// Config tunes the polling loop.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultConfig returns the default polling configuration: a fixed 2s
// interval, capped at 100 attempts before the run is declared timed out.
func DefaultConfig() Config {
	return Config{
		Interval:    2 * time.Second,
		MaxAttempts: 100,
	}
}

// Run is one tracked job: a remote job id plus the local polling loop that
// observes it. Intermediate progress values may be missed; only the terminal
// transition is guaranteed to be observed.
type Run struct {
	ID       string
	Kind     string
	RemoteID string

	mu     sync.Mutex
	state  State
	status *models.JobStatus

	cancel context.CancelFunc
	done   chan struct{}
}

func newRun(kind, remoteID string) *Run {
	return &Run{
		ID:       uuid.New().String(),
		Kind:     kind,
		RemoteID: remoteID,
		state:    StateStarting,
		status:   &models.JobStatus{ID: remoteID, Status: models.JobUploaded},
		done:     make(chan struct{}),
	}
}

// State returns the run's current phase.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns the last observed job status.
func (r *Run) Status() *models.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := *r.status
	return &st
}

// Done is closed when the polling loop has stopped.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

func (r *Run) setStatus(st *models.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = st
	if st.Terminal() {
		r.state = StateTerminal
	} else {
		r.state = StatePolling
	}
}

// poll drives the loop for one run. It polls at a fixed interval, retries
// individual poll failures, stops on the first terminal status, and caps the
// total attempts: hitting the cap assigns the local timed_out status, which
// is distinct from a server-reported failure.
func (r *Run) poll(ctx context.Context, backend Backend, cfg Config, logger *slog.Logger, onTerminal func(*models.JobStatus)) {
	defer close(r.done)
	defer metrics.PollerStopped()
	metrics.PollerStarted()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			// Cancelled locally. The run was either cancelled server-side by
			// Manager.Cancel or abandoned on shutdown.
			st := r.Status()
			if !st.Terminal() {
				st.Status = models.JobCancelled
				r.setStatus(st)
			}
			finish(r, logger, onTerminal)
			return
		case <-ticker.C:
		}

		attempts++
		st, err := backend.JobStatus(ctx, r.RemoteID)
		if err != nil {
			metrics.Poll(r.Kind, true)
			logger.Warn("poll failed, retrying", "kind", r.Kind, "job_id", r.RemoteID, "attempt", attempts, "error", err)
		} else {
			metrics.Poll(r.Kind, false)
			r.setStatus(st)
			if st.Terminal() {
				finish(r, logger, onTerminal)
				return
			}
		}

		if attempts >= cfg.MaxAttempts {
			st := r.Status()
			st.Status = models.JobTimedOut
			st.Message = "polling timed out before the job finished"
			r.setStatus(st)
			finish(r, logger, onTerminal)
			return
		}
	}
}

func finish(r *Run, logger *slog.Logger, onTerminal func(*models.JobStatus)) {
	st := r.Status()
	metrics.JobFinished(r.Kind, st.Status)
	logger.Info("job finished", "kind", r.Kind, "job_id", r.RemoteID, "status", st.Status)
	if onTerminal != nil {
		onTerminal(st)
	}
}
