package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mverde/consola/internal/backend"
	"github.com/mverde/consola/internal/checklist"
	"github.com/mverde/consola/internal/grouping"
	"github.com/mverde/consola/internal/jobs"
	"github.com/mverde/consola/internal/models"
	"github.com/mverde/consola/internal/variation"
)

// CountsFetcher reads per-rule pending counts from the backend.
type CountsFetcher interface {
	PendingCounts(ctx context.Context) (map[string]int, error)
}

// Snoozer postpones one pending item on the backend.
type Snoozer interface {
	Snooze(ctx context.Context, req *backend.SnoozeRequest) (*backend.SnoozeResponse, error)
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// StagesResponse carries the rule catalog with pending counts merged in.
type StagesResponse struct {
	Stages []models.Stage `json:"stages"`
	Counts map[string]int `json:"counts"`
}

// SubgroupView is one openable subgroup row.
type SubgroupView struct {
	Key   string         `json:"key"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Open  bool           `json:"open"`
	Total int            `json:"total_items"`
	Page  *grouping.Page `json:"page,omitempty"`
}

// GroupView is one group row. Flat rules carry a page directly; rules with
// subgroup structure carry subgroup rows instead.
type GroupView struct {
	Key       string         `json:"key"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Open      bool           `json:"open"`
	Total     int            `json:"total_items"`
	Page      *grouping.Page `json:"page,omitempty"`
	Subgroups []SubgroupView `json:"subgroups,omitempty"`
}

// RuleView is the rendered queue of one rule.
type RuleView struct {
	RuleID       string      `json:"rule_id"`
	HasSubgroups bool        `json:"has_subgroups"`
	TotalItems   int         `json:"total_items"`
	Groups       []GroupView `json:"groups"`
}

// ToggleRuleResponse reports the accordion state after a rule toggle.
type ToggleRuleResponse struct {
	Open bool      `json:"open"`
	View *RuleView `json:"view,omitempty"`
}

// ToggleRequest flips one group or subgroup by composite key.
type ToggleRequest struct {
	Key string `json:"key"`
}

// ToggleResponse reports the new open state.
type ToggleResponse struct {
	Open bool `json:"open"`
}

// PageRequest moves one leaf to a page.
type PageRequest struct {
	Key  string `json:"key"`
	Page int    `json:"page"`
}

// PageSizeRequest changes one leaf's page size. The leaf's page resets to 1.
type PageSizeRequest struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "0.1.0",
		Uptime:  time.Since(s.startTime).String(),
	})
}

// handleStages handles GET /api/v1/stages
func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	counts, err := s.deps.Counts.PendingCounts(r.Context())
	if err != nil {
		// The catalog is still usable without badge counts.
		s.logger.Warn("failed to fetch pending counts", "error", err)
		counts = map[string]int{}
	}

	s.sendJSON(w, http.StatusOK, StagesResponse{
		Stages: models.Catalog(),
		Counts: counts,
	})
}

// handleCounts handles GET /api/v1/counts
func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.deps.Counts.PendingCounts(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, backend.PendingCountsResponse{Counts: counts})
}

// handleToggleRule handles POST /api/v1/rules/{ruleID}/toggle. Opening a rule
// closes any other open rule and lazily loads its grouped payload.
func (s *Server) handleToggleRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleID")
	if _, ok := models.RuleByID(ruleID); !ok {
		s.sendError(w, http.StatusNotFound, "unknown rule")
		return
	}

	open := s.deps.Expansion.ToggleRule(ruleID)
	resp := ToggleRuleResponse{Open: open}

	if open {
		view, err := s.ruleView(r.Context(), ruleID)
		if err != nil {
			s.handleError(w, err)
			return
		}
		resp.View = view
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// handleRuleView handles GET /api/v1/rules/{ruleID}/view
func (s *Server) handleRuleView(w http.ResponseWriter, r *http.Request) {
	view, err := s.ruleView(r.Context(), chi.URLParam(r, "ruleID"))
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, view)
}

// handleRefreshRule handles POST /api/v1/rules/{ruleID}/refresh
func (s *Server) handleRefreshRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleID")
	if _, err := s.deps.Loader.Refresh(r.Context(), ruleID); err != nil {
		s.handleError(w, err)
		return
	}
	view, err := s.ruleView(r.Context(), ruleID)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, view)
}

// handleToggleGroup handles POST /api/v1/groups/toggle
func (s *Server) handleToggleGroup(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		s.sendError(w, http.StatusBadRequest, "key is required")
		return
	}
	s.sendJSON(w, http.StatusOK, ToggleResponse{Open: s.deps.Expansion.ToggleGroup(req.Key)})
}

// handleToggleSubgroup handles POST /api/v1/subgroups/toggle
func (s *Server) handleToggleSubgroup(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		s.sendError(w, http.StatusBadRequest, "key is required")
		return
	}
	s.sendJSON(w, http.StatusOK, ToggleResponse{Open: s.deps.Expansion.ToggleSubgroup(req.Key)})
}

// handleSetPage handles POST /api/v1/pages
func (s *Server) handleSetPage(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		s.sendError(w, http.StatusBadRequest, "key is required")
		return
	}

	leaf, err := s.leafForKey(r.Context(), req.Key)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.deps.Paginator.SetPage(req.Key, req.Page)
	page := s.deps.Paginator.Slice(req.Key, leaf.Items)
	s.sendJSON(w, http.StatusOK, page)
}

// handleSetPageSize handles POST /api/v1/page-size
func (s *Server) handleSetPageSize(w http.ResponseWriter, r *http.Request) {
	var req PageSizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		s.sendError(w, http.StatusBadRequest, "key is required")
		return
	}

	leaf, err := s.leafForKey(r.Context(), req.Key)
	if err != nil {
		s.handleError(w, err)
		return
	}

	if err := s.deps.Paginator.SetPageSize(req.Key, req.Size); err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	page := s.deps.Paginator.Slice(req.Key, leaf.Items)
	s.sendJSON(w, http.StatusOK, page)
}

// ruleView composes the index, expansion state and pagination into one
// render-ready shape. Pages are sliced only for open rows.
func (s *Server) ruleView(ctx context.Context, ruleID string) (*RuleView, error) {
	idx, err := s.deps.Loader.Load(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	view := &RuleView{
		RuleID:       idx.RuleID,
		HasSubgroups: idx.HasSubgroups,
		TotalItems:   idx.TotalItems(),
	}

	for _, g := range idx.Groups {
		gv := GroupView{
			Key:  grouping.Key(ruleID, g.ID, ""),
			ID:   g.ID,
			Name: g.Name,
		}
		gv.Open = s.deps.Expansion.GroupOpen(gv.Key)

		if idx.HasSubgroups {
			for _, sg := range g.Subgroups {
				key := grouping.Key(ruleID, g.ID, sg.ID)
				sv := SubgroupView{
					Key:   key,
					ID:    sg.ID,
					Name:  sg.Name,
					Open:  s.deps.Expansion.SubgroupOpen(key),
					Total: len(sg.Items),
				}
				gv.Total += len(sg.Items)
				if gv.Open && sv.Open {
					page := s.deps.Paginator.Slice(key, sg.Items)
					sv.Page = &page
				}
				gv.Subgroups = append(gv.Subgroups, sv)
			}
		} else {
			gv.Total = len(g.Items)
			if gv.Open {
				page := s.deps.Paginator.Slice(gv.Key, g.Items)
				gv.Page = &page
			}
		}

		view.Groups = append(view.Groups, gv)
	}

	return view, nil
}

// leafForKey resolves a composite key to its bucket of pending items.
func (s *Server) leafForKey(ctx context.Context, key string) (grouping.Leaf, error) {
	ruleID, _, _ := grouping.SplitKey(key)
	if ruleID == "" {
		return grouping.Leaf{}, grouping.ErrUnknownKey
	}
	idx, err := s.deps.Loader.Load(ctx, ruleID)
	if err != nil {
		return grouping.Leaf{}, err
	}
	return idx.Leaf(key)
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}

// handleError maps component errors to HTTP responses. Backend details are
// surfaced verbatim with the backend's own status code.
func (s *Server) handleError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		s.sendError(w, apiErr.StatusCode, apiErr.Error())
		return
	}

	switch {
	case errors.Is(err, grouping.ErrUnknownKey),
		errors.Is(err, checklist.ErrCaseNotFound),
		errors.Is(err, checklist.ErrContactNotFound),
		errors.Is(err, checklist.ErrColumnNotFound),
		errors.Is(err, jobs.ErrNoActiveJob):
		s.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, grouping.ErrMixedGrouping),
		errors.Is(err, grouping.ErrDuplicateItem),
		errors.Is(err, variation.ErrEmptyMessage),
		errors.Is(err, variation.ErrEmptySubject),
		errors.Is(err, variation.ErrNoRecipients),
		errors.Is(err, variation.ErrUnknownChannel):
		s.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jobs.ErrAlreadyRunning):
		s.sendError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal error")
	}
}
