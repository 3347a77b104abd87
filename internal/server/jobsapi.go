package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mverde/consola/internal/models"
)

var validJobKinds = map[string]bool{
	models.KindQueueRefresh:  true,
	models.KindEmailQueue:    true,
	models.KindWhatsAppQueue: true,
	models.KindBatchDispatch: true,
	models.KindContactImport: true,
}

// StartJobResponse reports the run started (or already in flight) for a kind.
type StartJobResponse struct {
	RunID          string `json:"run_id,omitempty"`
	Kind           string `json:"kind"`
	AlreadyRunning bool   `json:"already_running"`
}

// JobStatusResponse is the last observed status of a kind's active run.
type JobStatusResponse struct {
	Kind   string            `json:"kind"`
	Active bool              `json:"active"`
	Status *models.JobStatus `json:"status,omitempty"`
}

// JobHistoryResponse lists recent runs from the local log.
type JobHistoryResponse struct {
	Runs []models.JobRun `json:"runs"`
}

// handleStartJob handles POST /api/v1/jobs/{kind}
func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !validJobKinds[kind] {
		s.sendError(w, http.StatusBadRequest, "unknown job kind")
		return
	}

	var payload any
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.sendError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	run, err := s.deps.Jobs.Start(r.Context(), kind, payload)
	if err != nil {
		s.handleError(w, err)
		return
	}

	resp := StartJobResponse{Kind: kind}
	if run == nil {
		// The server already had this kind in flight and the console had no
		// local run to attach to. Treated as success.
		resp.AlreadyRunning = true
		s.sendJSON(w, http.StatusOK, resp)
		return
	}

	resp.RunID = run.ID
	s.sendJSON(w, http.StatusAccepted, resp)
}

// handleJobStatus handles GET /api/v1/jobs/{kind}
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !validJobKinds[kind] {
		s.sendError(w, http.StatusBadRequest, "unknown job kind")
		return
	}

	resp := JobStatusResponse{Kind: kind, Active: s.deps.Jobs.Active(kind)}
	if st, err := s.deps.Jobs.Status(kind); err == nil {
		resp.Status = st
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// handleCancelJob handles DELETE /api/v1/jobs/{kind}
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !validJobKinds[kind] {
		s.sendError(w, http.StatusBadRequest, "unknown job kind")
		return
	}

	if err := s.deps.Jobs.Cancel(r.Context(), kind); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleJobHistory handles GET /api/v1/jobs
func (s *Server) handleJobHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 200 {
			s.sendError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	if s.deps.JobLog == nil {
		s.sendJSON(w, http.StatusOK, JobHistoryResponse{Runs: []models.JobRun{}})
		return
	}

	runs, err := s.deps.JobLog.Recent(limit)
	if err != nil {
		s.handleError(w, err)
		return
	}
	if runs == nil {
		runs = []models.JobRun{}
	}
	s.sendJSON(w, http.StatusOK, JobHistoryResponse{Runs: runs})
}
