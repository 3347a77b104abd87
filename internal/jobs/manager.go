package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mverde/consola/internal/metrics"
	"github.com/mverde/consola/internal/models"
)

var (
	ErrAlreadyRunning = errors.New("a job of this kind is already in flight")
	ErrNoActiveJob    = errors.New("no active job of this kind")
)

// Recorder persists job runs locally so the console can show history across
// reloads. Implementations may be nil.
type Recorder interface {
	RecordStart(run models.JobRun) error
	RecordFinish(id, status, message string) error
}

// Manager owns one polling loop per job kind. Different kinds run
// concurrently and independently; starting a second job of an active kind is
// rejected locally before the server is ever called.
type Manager struct {
	backend  Backend
	cfg      Config
	logger   *slog.Logger
	recorder Recorder

	mu        sync.Mutex
	active    map[string]*Run
	starting  map[string]struct{}
	listeners map[string][]func(*models.JobStatus)
}

// NewManager creates a job manager. recorder may be nil.
func NewManager(backend Backend, cfg Config, recorder Recorder, logger *slog.Logger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Manager{
		backend:   backend,
		cfg:       cfg,
		logger:    logger.With("component", "jobs"),
		recorder:  recorder,
		active:    make(map[string]*Run),
		starting:  make(map[string]struct{}),
		listeners: make(map[string][]func(*models.JobStatus)),
	}
}

// OnTerminal registers a hook fired when a job of the given kind reaches a
// terminal status. Used to refresh whatever collection the job mutated.
func (m *Manager) OnTerminal(kind string, fn func(*models.JobStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[kind] = append(m.listeners[kind], fn)
}

// Start asks the backend to start a job of the given kind and begins polling
// it. When a job of that kind is already tracked locally the start is
// rejected without a server call. A server-side already_running answer is a
// no-op success: the existing run (if any) is returned and no second loop is
// created.
func (m *Manager) Start(ctx context.Context, kind string, payload any) (*Run, error) {
	// Reserve the kind's slot before the server call so a concurrent Start
	// of the same kind is rejected locally instead of racing to the server.
	m.mu.Lock()
	if existing, ok := m.active[kind]; ok && existing.State() != StateTerminal {
		m.mu.Unlock()
		return existing, ErrAlreadyRunning
	}
	if _, ok := m.starting[kind]; ok {
		m.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	m.starting[kind] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.starting, kind)
		m.mu.Unlock()
	}()

	result, err := m.backend.StartJob(ctx, kind, payload)
	if err != nil {
		return nil, fmt.Errorf("start %s job: %w", kind, err)
	}

	if result.AlreadyRunning {
		m.logger.Info("job already running server-side, not starting a second loop", "kind", kind)
		m.mu.Lock()
		existing := m.active[kind]
		m.mu.Unlock()
		return existing, nil
	}

	metrics.JobStarted(kind)
	run := newRun(kind, result.JobID)

	if m.recorder != nil {
		record := models.JobRun{
			ID:        run.ID,
			Kind:      kind,
			RemoteID:  run.RemoteID,
			Status:    models.JobUploaded,
			StartedAt: time.Now(),
		}
		if err := m.recorder.RecordStart(record); err != nil {
			m.logger.Warn("failed to record job start", "kind", kind, "error", err)
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	run.cancel = cancel

	m.mu.Lock()
	m.active[kind] = run
	m.mu.Unlock()

	go run.poll(loopCtx, m.backend, m.cfg, m.logger, func(st *models.JobStatus) {
		m.finishRun(run, st)
	})

	m.logger.Info("job started", "kind", kind, "job_id", run.RemoteID)
	return run, nil
}

func (m *Manager) finishRun(run *Run, st *models.JobStatus) {
	if m.recorder != nil {
		if err := m.recorder.RecordFinish(run.ID, st.Status, st.Message); err != nil {
			m.logger.Warn("failed to record job finish", "job_id", run.RemoteID, "error", err)
		}
	}

	m.mu.Lock()
	if m.active[run.Kind] == run {
		delete(m.active, run.Kind)
	}
	listeners := append([]func(*models.JobStatus){}, m.listeners[run.Kind]...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

// Status returns the last observed status for the active run of a kind.
func (m *Manager) Status(kind string) (*models.JobStatus, error) {
	m.mu.Lock()
	run, ok := m.active[kind]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNoActiveJob
	}
	return run.Status(), nil
}

// Active reports whether a job of the kind is currently tracked.
func (m *Manager) Active(kind string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.active[kind]
	return ok && run.State() != StateTerminal
}

// Cancel asks the backend to cancel the active job of a kind and stops its
// polling loop, releasing the timer.
func (m *Manager) Cancel(ctx context.Context, kind string) error {
	m.mu.Lock()
	run, ok := m.active[kind]
	m.mu.Unlock()
	if !ok {
		return ErrNoActiveJob
	}

	if err := m.backend.CancelJob(ctx, run.RemoteID); err != nil {
		return fmt.Errorf("cancel %s job: %w", kind, err)
	}
	run.cancel()
	return nil
}

// Shutdown stops every polling loop and waits for them to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	runs := make([]*Run, 0, len(m.active))
	for _, run := range m.active {
		runs = append(runs, run)
	}
	m.mu.Unlock()

	for _, run := range runs {
		run.cancel()
	}
	for _, run := range runs {
		<-run.Done()
	}
}
