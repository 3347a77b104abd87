package server

import (
	"encoding/json"
	"net/http"

	"github.com/mverde/consola/internal/backend"
	"github.com/mverde/consola/internal/grouping"
	"github.com/mverde/consola/internal/metrics"
	"github.com/mverde/consola/internal/models"
	"github.com/mverde/consola/internal/variation"
)

// PreviewRequest renders a template against the first items of one leaf.
type PreviewRequest struct {
	RuleID   string `json:"rule_id"`
	Key      string `json:"key"`
	Template string `json:"template"`
	Varied   bool   `json:"varied"`
}

// RenderedMessage is one plain rendered sample.
type RenderedMessage struct {
	ContactName string `json:"contact_name"`
	Message     string `json:"message"`
}

// PreviewResponse carries rendered samples, varied or plain.
type PreviewResponse struct {
	Messages []RenderedMessage   `json:"messages,omitempty"`
	Previews []variation.Preview `json:"previews,omitempty"`
}

// DispatchRequest sends one batch from the console.
type DispatchRequest struct {
	RuleID     string   `json:"rule_id"`
	Key        string   `json:"key"`
	ContactIDs []string `json:"contact_ids"`
	Message    string   `json:"message"`
	Subject    string   `json:"subject,omitempty"`
	Varied     bool     `json:"varied"`
}

// SnoozeRequest postpones one pending item from the console.
type SnoozeRequest struct {
	ContactID   string `json:"contact_id"`
	RuleID      string `json:"rule_id"`
	QueueItemID string `json:"queue_item_id,omitempty"`
}

// handlePreview handles POST /api/v1/preview. Plain previews render the
// template locally; varied previews additionally pass each sample through
// the variation model. Neither sends anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Template == "" {
		s.sendError(w, http.StatusBadRequest, "template is required")
		return
	}

	rule, ok := models.RuleByID(req.RuleID)
	if !ok {
		s.sendError(w, http.StatusNotFound, "unknown rule")
		return
	}

	leaf, err := s.leafForKey(r.Context(), req.Key)
	if err != nil {
		s.handleError(w, err)
		return
	}

	samples := leaf.Items
	if len(samples) > variation.MaxPreviewSamples {
		samples = samples[:variation.MaxPreviewSamples]
	}

	if req.Varied {
		previews, err := s.deps.Previewer.Preview(r.Context(), req.Template, rule.Category, samples, leaf.Data)
		if err != nil {
			s.handleError(w, err)
			return
		}
		s.sendJSON(w, http.StatusOK, PreviewResponse{Previews: previews})
		return
	}

	messages := make([]RenderedMessage, 0, len(samples))
	for _, item := range samples {
		messages = append(messages, RenderedMessage{
			ContactName: item.ContactName,
			Message:     s.deps.Engine.RenderForItem(req.Template, rule.Category, item, leaf.Data),
		})
	}
	s.sendJSON(w, http.StatusOK, PreviewResponse{Messages: messages})
}

// handleVariationPreview handles POST /api/v1/variation/preview
func (s *Server) handleVariationPreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Template == "" {
		s.sendError(w, http.StatusBadRequest, "template is required")
		return
	}

	rule, ok := models.RuleByID(req.RuleID)
	if !ok {
		s.sendError(w, http.StatusNotFound, "unknown rule")
		return
	}

	leaf, err := s.leafForKey(r.Context(), req.Key)
	if err != nil {
		s.handleError(w, err)
		return
	}

	samples := leaf.Items
	if len(samples) > variation.MaxPreviewSamples {
		samples = samples[:variation.MaxPreviewSamples]
	}

	previews, err := s.deps.Previewer.Preview(r.Context(), req.Template, rule.Category, samples, leaf.Data)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, PreviewResponse{Previews: previews})
}

// handleDispatch handles POST /api/v1/dispatch
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rule, ok := models.RuleByID(req.RuleID)
	if !ok {
		s.sendError(w, http.StatusNotFound, "unknown rule")
		return
	}

	_, groupID, subgroupID := grouping.SplitKey(req.Key)

	res, err := s.deps.Dispatcher.Dispatch(r.Context(), variation.Options{
		RuleID:      req.RuleID,
		Channel:     rule.Channel,
		GroupKey:    groupID,
		SubgroupKey: subgroupID,
		ContactIDs:  req.ContactIDs,
		Message:     req.Message,
		Subject:     req.Subject,
		Varied:      req.Varied,
	})
	if err != nil {
		s.handleError(w, err)
		return
	}

	// The dispatched items are gone from the pending queue; drop the cached
	// payload so the next view refetches.
	if err := s.deps.Loader.Invalidate(req.RuleID); err != nil {
		s.logger.Warn("failed to invalidate payload cache", "rule_id", req.RuleID, "error", err)
	}

	s.sendJSON(w, http.StatusOK, res)
}

// handleSnooze handles POST /api/v1/snooze
func (s *Server) handleSnooze(w http.ResponseWriter, r *http.Request) {
	var req SnoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ContactID == "" || req.RuleID == "" {
		s.sendError(w, http.StatusBadRequest, "contact_id and rule_id are required")
		return
	}

	resp, err := s.deps.Snoozer.Snooze(r.Context(), &backend.SnoozeRequest{
		ContactID:   req.ContactID,
		RuleID:      req.RuleID,
		QueueItemID: req.QueueItemID,
	})
	if err != nil {
		s.handleError(w, err)
		return
	}

	if s.deps.Snoozes != nil {
		if err := s.deps.Snoozes.Record(req.ContactID, req.RuleID, req.QueueItemID, resp.SnoozeDays); err != nil {
			s.logger.Warn("failed to record snooze", "contact_id", req.ContactID, "error", err)
		}
	}
	if m := metrics.Global(); m != nil {
		m.SnoozesTotal.Inc()
	}

	if err := s.deps.Loader.Invalidate(req.RuleID); err != nil {
		s.logger.Warn("failed to invalidate payload cache", "rule_id", req.RuleID, "error", err)
	}

	s.sendJSON(w, http.StatusOK, resp)
}
