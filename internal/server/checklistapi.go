package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mverde/consola/internal/checklist"
	"github.com/mverde/consola/internal/models"
)

// CellToggleRequest flips one checklist cell.
type CellToggleRequest struct {
	ContactID string `json:"contact_id"`
	ColumnID  string `json:"column_id"`
	Current   bool   `json:"current"`
}

// ProfileToggleRequest flips one contact's weekly profile-completion flag.
type ProfileToggleRequest struct {
	Current bool `json:"current"`
}

// ColumnRequest creates or updates a task column.
type ColumnRequest struct {
	ID      string     `json:"id,omitempty"`
	RoleID  string     `json:"role_id"`
	Title   string     `json:"title"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

// MoveColumnRequest shifts a column one slot left or right.
type MoveColumnRequest struct {
	Direction string `json:"direction"`
}

// CaseStatusesResponse carries the per-case weekly statuses and the
// worst-of global roll-up.
type CaseStatusesResponse struct {
	Global string            `json:"global"`
	Cases  map[string]string `json:"cases"`
}

// loadedCollection returns the case collection, fetching it on first use.
func (s *Server) loadedCollection(r *http.Request) (*models.CaseCollection, error) {
	col, err := s.deps.Checklist.Collection()
	if errors.Is(err, checklist.ErrNotLoaded) {
		if err := s.deps.Checklist.Reload(r.Context()); err != nil {
			return nil, err
		}
		col, err = s.deps.Checklist.Collection()
	}
	return col, err
}

// handleCases handles GET /api/v1/cases
func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if err := s.deps.Checklist.Reload(r.Context()); err != nil {
			s.handleError(w, err)
			return
		}
	}

	col, err := s.loadedCollection(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, col)
}

// handleCaseStatuses handles GET /api/v1/cases/status
func (s *Server) handleCaseStatuses(w http.ResponseWriter, r *http.Request) {
	col, err := s.loadedCollection(r)
	if err != nil {
		s.handleError(w, err)
		return
	}

	resp := CaseStatusesResponse{Cases: make(map[string]string, len(col.Cases))}
	for _, c := range col.Cases {
		resp.Cases[c.ID] = c.WeeklyStatus
	}

	global, err := s.deps.Checklist.GlobalStatus()
	if err != nil {
		s.handleError(w, err)
		return
	}
	resp.Global = global

	s.sendJSON(w, http.StatusOK, resp)
}

// handleCaseGrid handles GET /api/v1/cases/{caseID}/grid
func (s *Server) handleCaseGrid(w http.ResponseWriter, r *http.Request) {
	if _, err := s.loadedCollection(r); err != nil {
		s.handleError(w, err)
		return
	}

	grid, err := s.deps.Checklist.Grid(chi.URLParam(r, "caseID"))
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, grid)
}

// handleToggleCell handles POST /api/v1/cases/{caseID}/cells
func (s *Server) handleToggleCell(w http.ResponseWriter, r *http.Request) {
	var req CellToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ContactID == "" || req.ColumnID == "" {
		s.sendError(w, http.StatusBadRequest, "contact_id and column_id are required")
		return
	}

	caseID := chi.URLParam(r, "caseID")
	if err := s.deps.Checklist.ToggleCell(r.Context(), caseID, req.ContactID, req.ColumnID, req.Current); err != nil {
		s.handleError(w, err)
		return
	}

	grid, err := s.deps.Checklist.Grid(caseID)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, grid)
}

// handleToggleProfile handles POST /api/v1/cases/{caseID}/contacts/{contactID}/profile
func (s *Server) handleToggleProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := s.loadedCollection(r); err != nil {
		s.handleError(w, err)
		return
	}

	caseID := chi.URLParam(r, "caseID")
	contactID := chi.URLParam(r, "contactID")
	if err := s.deps.Checklist.ToggleProfile(r.Context(), caseID, contactID, req.Current); err != nil {
		s.handleError(w, err)
		return
	}

	grid, err := s.deps.Checklist.Grid(caseID)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, grid)
}

// handleCreateColumn handles POST /api/v1/cases/{caseID}/columns
func (s *Server) handleCreateColumn(w http.ResponseWriter, r *http.Request) {
	var req ColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RoleID == "" || req.Title == "" {
		s.sendError(w, http.StatusBadRequest, "role_id and title are required")
		return
	}

	caseID := chi.URLParam(r, "caseID")
	col := models.TaskColumn{
		ID:      req.ID,
		RoleID:  req.RoleID,
		Title:   req.Title,
		DueDate: req.DueDate,
	}

	if err := s.deps.Checklist.CreateColumn(r.Context(), caseID, col); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleUpdateColumn handles PATCH /api/v1/cases/{caseID}/columns/{columnID}
func (s *Server) handleUpdateColumn(w http.ResponseWriter, r *http.Request) {
	var req ColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caseID := chi.URLParam(r, "caseID")
	col := models.TaskColumn{
		ID:      chi.URLParam(r, "columnID"),
		RoleID:  req.RoleID,
		Title:   req.Title,
		DueDate: req.DueDate,
	}

	if err := s.deps.Checklist.UpdateColumn(r.Context(), caseID, col); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteColumn handles DELETE /api/v1/cases/{caseID}/columns/{columnID}
func (s *Server) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	columnID := chi.URLParam(r, "columnID")

	if err := s.deps.Checklist.DeleteColumn(r.Context(), caseID, columnID); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMoveColumn handles POST /api/v1/cases/{caseID}/columns/{columnID}/move
func (s *Server) handleMoveColumn(w http.ResponseWriter, r *http.Request) {
	var req MoveColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	dir := checklist.MoveDirection(req.Direction)
	if dir != checklist.MoveLeft && dir != checklist.MoveRight {
		s.sendError(w, http.StatusBadRequest, "direction must be left or right")
		return
	}

	caseID := chi.URLParam(r, "caseID")
	columnID := chi.URLParam(r, "columnID")

	if err := s.deps.Checklist.MoveColumn(r.Context(), caseID, columnID, dir); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTrafficLight handles GET /api/v1/traffic-light
func (s *Server) handleTrafficLight(w http.ResponseWriter, r *http.Request) {
	sections, err := s.deps.Checklist.TrafficLight(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, sections)
}
