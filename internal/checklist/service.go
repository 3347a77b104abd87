package checklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mverde/consola/internal/models"
	"github.com/mverde/consola/internal/optimistic"
)

var (
	ErrCaseNotFound    = errors.New("case not found")
	ErrContactNotFound = errors.New("contact not found")
	ErrNotLoaded       = errors.New("case collection not loaded")
)

// Backend is the slice of the delivery backend the checklist needs.
type Backend interface {
	DeliveryCases(ctx context.Context) (*models.CaseCollection, error)
	SetCell(ctx context.Context, caseID, contactID, columnID string, checked bool) error
	SetProfileComplete(ctx context.Context, caseID, contactID string, complete bool) error
	CreateColumn(ctx context.Context, caseID string, col models.TaskColumn) error
	UpdateColumn(ctx context.Context, caseID string, col models.TaskColumn) error
	DeleteColumn(ctx context.Context, caseID, columnID string) error
	SwapColumns(ctx context.Context, caseID, columnID, otherID string) error
	TrafficLightStatus(ctx context.Context) (map[string]string, error)
}

// Service owns the console's view of the delivery checklist. Cell toggles are
// optimistic; everything structural goes straight to the backend and reloads
// the whole collection, because server-side recomputation of the weekly and
// global statuses is the source of truth.
type Service struct {
	backend Backend
	logger  *slog.Logger

	mu         sync.RWMutex
	collection *models.CaseCollection
}

// NewService creates a checklist service.
func NewService(backend Backend, logger *slog.Logger) *Service {
	return &Service{
		backend: backend,
		logger:  logger.With("component", "checklist"),
	}
}

// Reload fetches the full case collection from the backend and replaces the
// local copy.
func (s *Service) Reload(ctx context.Context) error {
	collection, err := s.backend.DeliveryCases(ctx)
	if err != nil {
		return fmt.Errorf("load case collection: %w", err)
	}
	now := time.Now()
	for i := range collection.Cases {
		if collection.Cases[i].WeeklyStatus == "" {
			collection.Cases[i].WeeklyStatus = WeeklyStatusFor(collection.Cases[i], now)
		}
	}
	s.mu.Lock()
	s.collection = collection
	s.mu.Unlock()
	s.logger.Debug("case collection reloaded", "cases", len(collection.Cases))
	return nil
}

// Collection returns the last loaded collection.
func (s *Service) Collection() (*models.CaseCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return nil, ErrNotLoaded
	}
	return s.collection, nil
}

// Case returns one case by id from the local collection.
func (s *Service) Case(caseID string) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return nil, ErrNotLoaded
	}
	for i := range s.collection.Cases {
		if s.collection.Cases[i].ID == caseID {
			return &s.collection.Cases[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
}

// CaseGrid is a case shaped for rendering: contacts bucketed by role with
// each role-group's visible columns.
type CaseGrid struct {
	CaseID       string        `json:"case_id"`
	Name         string        `json:"name"`
	WeeklyStatus string        `json:"weekly_status"`
	Rows         []GridSection `json:"rows"`
}

// GridSection is one role-group with its columns.
type GridSection struct {
	Role    RoleGroup           `json:"role"`
	Columns []models.TaskColumn `json:"columns"`
}

// Grid builds the render shape for one case.
func (s *Service) Grid(caseID string) (*CaseGrid, error) {
	c, err := s.Case(caseID)
	if err != nil {
		return nil, err
	}
	grid := &CaseGrid{
		CaseID:       c.ID,
		Name:         c.Name,
		WeeklyStatus: c.WeeklyStatus,
	}
	for _, rg := range GroupByRole(c.Contacts) {
		grid.Rows = append(grid.Rows, GridSection{
			Role:    rg,
			Columns: VisibleColumns(c.Columns, rg.RoleID),
		})
	}
	return grid, nil
}

// cell returns a pointer into the local collection for one (contact, column)
// intersection, creating the cell when it does not exist yet. Caller holds
// the lock.
func (s *Service) cell(caseID, contactID, columnID string) (*models.ChecklistCell, error) {
	if s.collection == nil {
		return nil, ErrNotLoaded
	}
	for i := range s.collection.Cases {
		c := &s.collection.Cases[i]
		if c.ID != caseID {
			continue
		}
		for j := range c.Cells {
			if c.Cells[j].ContactID == contactID && c.Cells[j].ColumnID == columnID {
				return &c.Cells[j], nil
			}
		}
		c.Cells = append(c.Cells, models.ChecklistCell{ContactID: contactID, ColumnID: columnID})
		return &c.Cells[len(c.Cells)-1], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
}

// ToggleCell flips a checklist cell. The flip lands in local state before the
// backend call; on success the whole collection is re-fetched so the
// server-recomputed weekly and global statuses replace any local guess; on
// failure the snapshot is restored and the error surfaced.
func (s *Service) ToggleCell(ctx context.Context, caseID, contactID, columnID string, current bool) error {
	newValue := !current

	// The snapshot covers the whole cell so a rollback restores the
	// original check timestamp, not a freshly stamped one.
	newCell := models.ChecklistCell{ContactID: contactID, ColumnID: columnID, Checked: newValue}
	if newValue {
		now := time.Now()
		newCell.CheckedAt = &now
	}

	mutation := optimistic.Mutation[models.ChecklistCell]{
		Snapshot: func() models.ChecklistCell {
			s.mu.RLock()
			defer s.mu.RUnlock()
			cell, err := s.cellLocked(caseID, contactID, columnID)
			if err != nil {
				return models.ChecklistCell{ContactID: contactID, ColumnID: columnID, Checked: current}
			}
			return *cell
		},
		Apply: func(v models.ChecklistCell) {
			s.mu.Lock()
			defer s.mu.Unlock()
			cell, err := s.cell(caseID, contactID, columnID)
			if err != nil {
				return
			}
			cell.Checked = v.Checked
			cell.CheckedAt = v.CheckedAt
		},
		NewValue: newCell,
		Commit: func(ctx context.Context) (*models.ChecklistCell, error) {
			if err := s.backend.SetCell(ctx, caseID, contactID, columnID, newValue); err != nil {
				return nil, err
			}
			return nil, nil
		},
	}

	if err := optimistic.Run(ctx, mutation); err != nil {
		s.logger.Warn("cell toggle rejected", "case_id", caseID, "contact_id", contactID, "column_id", columnID, "error", err)
		return err
	}

	// Server recomputes weekly/global status; re-fetch rather than approximate.
	if err := s.Reload(ctx); err != nil {
		return err
	}
	return nil
}

// contact returns a pointer into the local collection for one case contact.
// Caller holds the lock.
func (s *Service) contact(caseID, contactID string) (*models.CaseContact, error) {
	if s.collection == nil {
		return nil, ErrNotLoaded
	}
	for i := range s.collection.Cases {
		c := &s.collection.Cases[i]
		if c.ID != caseID {
			continue
		}
		for j := range c.Contacts {
			if c.Contacts[j].ID == contactID {
				return &c.Contacts[j], nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrContactNotFound, contactID)
	}
	return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
}

// ToggleProfile flips a contact's weekly profile-completion checkbox. Same
// contract as ToggleCell: optimistic local flip, rollback on rejection,
// reload on success.
func (s *Service) ToggleProfile(ctx context.Context, caseID, contactID string, current bool) error {
	newValue := !current

	s.mu.RLock()
	_, err := s.contact(caseID, contactID)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	mutation := optimistic.Mutation[bool]{
		Snapshot: func() bool {
			s.mu.RLock()
			defer s.mu.RUnlock()
			contact, err := s.contact(caseID, contactID)
			if err != nil {
				return current
			}
			return contact.ProfileComplete
		},
		Apply: func(v bool) {
			s.mu.Lock()
			defer s.mu.Unlock()
			contact, err := s.contact(caseID, contactID)
			if err != nil {
				return
			}
			contact.ProfileComplete = v
		},
		NewValue: newValue,
		Commit: func(ctx context.Context) (*bool, error) {
			if err := s.backend.SetProfileComplete(ctx, caseID, contactID, newValue); err != nil {
				return nil, err
			}
			return nil, nil
		},
	}

	if err := optimistic.Run(ctx, mutation); err != nil {
		s.logger.Warn("profile toggle rejected", "case_id", caseID, "contact_id", contactID, "error", err)
		return err
	}

	return s.Reload(ctx)
}

// cellLocked is the read-only variant of cell. Caller holds at least the
// read lock; a missing cell is reported instead of created.
func (s *Service) cellLocked(caseID, contactID, columnID string) (*models.ChecklistCell, error) {
	if s.collection == nil {
		return nil, ErrNotLoaded
	}
	for i := range s.collection.Cases {
		c := &s.collection.Cases[i]
		if c.ID != caseID {
			continue
		}
		for j := range c.Cells {
			if c.Cells[j].ContactID == contactID && c.Cells[j].ColumnID == columnID {
				return &c.Cells[j], nil
			}
		}
		return nil, fmt.Errorf("cell not found")
	}
	return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
}

// CreateColumn adds a task column. No optimism for structural changes.
func (s *Service) CreateColumn(ctx context.Context, caseID string, col models.TaskColumn) error {
	if err := s.backend.CreateColumn(ctx, caseID, col); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// UpdateColumn edits a task column's title or due date.
func (s *Service) UpdateColumn(ctx context.Context, caseID string, col models.TaskColumn) error {
	if err := s.backend.UpdateColumn(ctx, caseID, col); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// DeleteColumn soft-deletes a column; its cells survive server-side.
func (s *Service) DeleteColumn(ctx context.Context, caseID, columnID string) error {
	if err := s.backend.DeleteColumn(ctx, caseID, columnID); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// MoveColumn shifts a column left or right within its role-group. A move at
// the edge is a no-op.
func (s *Service) MoveColumn(ctx context.Context, caseID, columnID string, dir MoveDirection) error {
	c, err := s.Case(caseID)
	if err != nil {
		return err
	}
	otherID, err := neighborColumn(c.Columns, columnID, dir)
	if err != nil {
		return err
	}
	if otherID == "" {
		return nil
	}
	if err := s.backend.SwapColumns(ctx, caseID, columnID, otherID); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// GlobalStatus computes the worst weekly status across the loaded cases.
func (s *Service) GlobalStatus() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return "", ErrNotLoaded
	}
	return GlobalStatus(s.collection.Cases), nil
}

// TrafficLight passes the backend's per-section statuses through.
func (s *Service) TrafficLight(ctx context.Context) (map[string]string, error) {
	return s.backend.TrafficLightStatus(ctx)
}
