package backend

import "github.com/mverde/consola/internal/models"

// PendingCountsResponse maps rule ids to pending item counts.
type PendingCountsResponse struct {
	Counts map[string]int `json:"counts"`
}

// GenerateQueueRequest asks the evaluator to rebuild one queue kind.
type GenerateQueueRequest struct {
	Kind string `json:"kind"`
}

// GenerateQueueResponse reports a synchronous queue rebuild.
type GenerateQueueResponse struct {
	GeneratedCount int `json:"generated_count"`
}

// StartJobRequest starts a server-side batch job.
type StartJobRequest struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload,omitempty"`
}

// DispatchRequest sends one message batch to a grouping leaf. ContactIDs
// selects recipients within the leaf; Message is the operator's template.
type DispatchRequest struct {
	RuleID      string   `json:"rule_id"`
	GroupKey    string   `json:"group_key"`
	SubgroupKey string   `json:"subgroup_key,omitempty"`
	ContactIDs  []string `json:"contact_ids"`
	Message     string   `json:"message"`
	Subject     string   `json:"subject,omitempty"`
}

// URLEntry is one generated WhatsApp link.
type URLEntry struct {
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	URL         string `json:"url"`
}

// DispatchResponse reports one batch dispatch.
type DispatchResponse struct {
	SentCount int        `json:"sent_count"`
	URLs      []URLEntry `json:"urls,omitempty"`
}

// PreviewRequest asks for AI-varied sample messages. Recipients is capped at
// three by the caller; the call has no side effects.
type PreviewRequest struct {
	Template    string               `json:"template"`
	Contacts    []models.PendingItem `json:"sample_contacts"`
	NumPreviews int                  `json:"num_previews"`
}

// Preview is one varied sample.
type Preview struct {
	ContactName     string `json:"contact_name"`
	OriginalMessage string `json:"original_message"`
	VariedMessage   string `json:"varied_message"`
}

// PreviewResponse carries the varied samples.
type PreviewResponse struct {
	Previews []Preview `json:"previews"`
}

// SnoozeRequest postpones one pending item.
type SnoozeRequest struct {
	ContactID   string `json:"contact_id"`
	RuleID      string `json:"rule_id"`
	QueueItemID string `json:"queue_item_id,omitempty"`
}

// SnoozeResponse reports how long the item sleeps.
type SnoozeResponse struct {
	SnoozeDays int    `json:"snooze_days"`
	Message    string `json:"message"`
}

// CellRequest sets one checklist cell.
type CellRequest struct {
	ContactID string `json:"contact_id"`
	ColumnID  string `json:"column_id"`
	Checked   bool   `json:"checked"`
}

// ProfileRequest sets one contact's weekly profile-completion flag.
type ProfileRequest struct {
	Complete bool `json:"complete"`
}

// SwapColumnsRequest exchanges the positions of two columns.
type SwapColumnsRequest struct {
	ColumnID string `json:"column_id"`
	OtherID  string `json:"other_id"`
}

// TrafficLightResponse maps section ids to statuses.
type TrafficLightResponse struct {
	Sections map[string]string `json:"sections"`
}

// ErrorResponse is the backend's error body. Detail, when present, is shown
// to the operator verbatim.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
