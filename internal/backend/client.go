// Package backend is the HTTP client for the external rule-evaluation and
// delivery service. The wire format is owned by that service; this package
// only gives its contracts typed Go surfaces.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mverde/consola/internal/jobs"
	"github.com/mverde/consola/internal/metrics"
	"github.com/mverde/consola/internal/models"
)

// APIError is a backend-reported error. Detail is surfaced verbatim to the
// operator; a generic message is substituted only when no detail is present.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend error: HTTP %d", e.StatusCode)
}

// Client is the console's backend API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a backend client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// request performs an HTTP request against the backend API.
func (c *Client) request(ctx context.Context, op, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequest(op, "error")
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		metrics.BackendRequest(op, "error")
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			if errResp.Detail != "" {
				apiErr.Detail = errResp.Detail
			} else {
				apiErr.Detail = errResp.Error
			}
		}
		return apiErr
	}

	metrics.BackendRequest(op, "ok")
	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// PendingGrouped loads one rule's pending items, already grouped.
func (c *Client) PendingGrouped(ctx context.Context, ruleID string) (*models.GroupedPayload, error) {
	var resp models.GroupedPayload
	if err := c.request(ctx, "pending_grouped", http.MethodGet, "/api/v1/outreach/rules/"+ruleID+"/pending", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PendingCounts returns pending item counts per rule.
func (c *Client) PendingCounts(ctx context.Context) (map[string]int, error) {
	var resp PendingCountsResponse
	if err := c.request(ctx, "pending_counts", http.MethodGet, "/api/v1/outreach/pending-counts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

// GenerateQueue synchronously rebuilds one queue kind.
func (c *Client) GenerateQueue(ctx context.Context, kind string) (*GenerateQueueResponse, error) {
	var resp GenerateQueueResponse
	if err := c.request(ctx, "generate_queue", http.MethodPost, "/api/v1/outreach/generate-queue", &GenerateQueueRequest{Kind: kind}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartJob starts a server-side batch job. Implements jobs.Backend.
func (c *Client) StartJob(ctx context.Context, kind string, payload any) (jobs.StartResult, error) {
	var resp jobs.StartResult
	if err := c.request(ctx, "start_job", http.MethodPost, "/api/v1/jobs", &StartJobRequest{Kind: kind, Payload: payload}, &resp); err != nil {
		return jobs.StartResult{}, err
	}
	return resp, nil
}

// JobStatus polls one job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*models.JobStatus, error) {
	var resp models.JobStatus
	if err := c.request(ctx, "job_status", http.MethodGet, "/api/v1/jobs/"+jobID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelJob cancels one job server-side.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	return c.request(ctx, "cancel_job", http.MethodPost, "/api/v1/jobs/"+jobID+"/cancel", nil, nil)
}

// SendToSubgroup sends the same message to every selected contact of a leaf.
func (c *Client) SendToSubgroup(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error) {
	var resp DispatchResponse
	if err := c.request(ctx, "send_to_subgroup", http.MethodPost, "/api/v1/outreach/send-to-subgroup", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateURLs builds same-message WhatsApp links for the selected contacts.
func (c *Client) GenerateURLs(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error) {
	var resp DispatchResponse
	if err := c.request(ctx, "generate_urls", http.MethodPost, "/api/v1/outreach/generate-urls", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateVariedURLs builds per-recipient AI-varied WhatsApp links. Expected
// to take meaningfully longer than GenerateURLs.
func (c *Client) GenerateVariedURLs(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error) {
	var resp DispatchResponse
	if err := c.request(ctx, "generate_varied_urls", http.MethodPost, "/api/v1/outreach/generate-varied-urls", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PreviewVariedMessages asks for varied samples. Side-effect free.
func (c *Client) PreviewVariedMessages(ctx context.Context, req *PreviewRequest) (*PreviewResponse, error) {
	var resp PreviewResponse
	if err := c.request(ctx, "preview_varied", http.MethodPost, "/api/v1/outreach/preview-varied-messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Snooze postpones one pending item.
func (c *Client) Snooze(ctx context.Context, req *SnoozeRequest) (*SnoozeResponse, error) {
	var resp SnoozeResponse
	if err := c.request(ctx, "snooze", http.MethodPost, "/api/v1/outreach/snooze", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeliveryCases loads the full case collection with checklist state.
func (c *Client) DeliveryCases(ctx context.Context) (*models.CaseCollection, error) {
	var resp models.CaseCollection
	if err := c.request(ctx, "delivery_cases", http.MethodGet, "/api/v1/cases/delivery/all", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetCell writes one checklist cell.
func (c *Client) SetCell(ctx context.Context, caseID, contactID, columnID string, checked bool) error {
	req := &CellRequest{ContactID: contactID, ColumnID: columnID, Checked: checked}
	return c.request(ctx, "set_cell", http.MethodPatch, "/api/v1/cases/"+caseID+"/cells", req, nil)
}

// SetProfileComplete writes one contact's weekly profile-completion flag.
func (c *Client) SetProfileComplete(ctx context.Context, caseID, contactID string, complete bool) error {
	req := &ProfileRequest{Complete: complete}
	return c.request(ctx, "set_profile", http.MethodPatch, "/api/v1/cases/"+caseID+"/contacts/"+contactID+"/profile", req, nil)
}

// CreateColumn adds a task column to a case's role-group.
func (c *Client) CreateColumn(ctx context.Context, caseID string, col models.TaskColumn) error {
	return c.request(ctx, "create_column", http.MethodPost, "/api/v1/cases/"+caseID+"/columns", &col, nil)
}

// UpdateColumn edits a task column.
func (c *Client) UpdateColumn(ctx context.Context, caseID string, col models.TaskColumn) error {
	return c.request(ctx, "update_column", http.MethodPatch, "/api/v1/cases/"+caseID+"/columns/"+col.ID, &col, nil)
}

// DeleteColumn soft-deletes a task column.
func (c *Client) DeleteColumn(ctx context.Context, caseID, columnID string) error {
	return c.request(ctx, "delete_column", http.MethodDelete, "/api/v1/cases/"+caseID+"/columns/"+columnID, nil, nil)
}

// SwapColumns exchanges the positions of two columns.
func (c *Client) SwapColumns(ctx context.Context, caseID, columnID, otherID string) error {
	req := &SwapColumnsRequest{ColumnID: columnID, OtherID: otherID}
	return c.request(ctx, "swap_columns", http.MethodPost, "/api/v1/cases/"+caseID+"/columns/swap", req, nil)
}

// TrafficLightStatus returns per-section statuses.
func (c *Client) TrafficLightStatus(ctx context.Context) (map[string]string, error) {
	var resp TrafficLightResponse
	if err := c.request(ctx, "traffic_light", http.MethodGet, "/api/v1/traffic-light-status", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sections, nil
}
