package variation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mverde/consola/internal/backend"
	"github.com/mverde/consola/internal/metrics"
	"github.com/mverde/consola/internal/models"
)

var (
	ErrEmptyMessage   = errors.New("message is required")
	ErrEmptySubject   = errors.New("subject is required for email sends")
	ErrNoRecipients   = errors.New("no eligible recipients selected")
	ErrUnknownChannel = errors.New("unknown dispatch channel")
)

// DispatchBackend is the slice of the backend the dispatcher needs.
type DispatchBackend interface {
	SendToSubgroup(ctx context.Context, req *backend.DispatchRequest) (*backend.DispatchResponse, error)
	GenerateURLs(ctx context.Context, req *backend.DispatchRequest) (*backend.DispatchResponse, error)
	GenerateVariedURLs(ctx context.Context, req *backend.DispatchRequest) (*backend.DispatchResponse, error)
}

// Options selects what one dispatch call sends and how. Varied and plain are
// mutually exclusive per call; the operator's toggle decides at call time.
type Options struct {
	RuleID      string
	Channel     string
	GroupKey    string
	SubgroupKey string
	ContactIDs  []string
	Message     string
	Subject     string
	Varied      bool

	// OnProgress receives the current/total counter once the response's item
	// count is available. The varied path takes meaningfully longer, so the
	// UI shows numbers, not just a spinner.
	OnProgress func(current, total int)
}

// Result is one finished dispatch.
type Result struct {
	SentCount int                `json:"sent_count"`
	Total     int                `json:"total"`
	Varied    bool               `json:"varied"`
	URLs      []backend.URLEntry `json:"urls,omitempty"`
}

// Dispatcher runs batch sends against the backend.
type Dispatcher struct {
	backend DispatchBackend
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(b DispatchBackend, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		backend: b,
		logger:  logger.With("component", "dispatch"),
	}
}

// Dispatch validates the options and runs the selected path. Validation
// failures never reach the server. Backend errors pass through untouched so
// the operator sees the server's detail verbatim and no partial send goes
// unreported.
func (d *Dispatcher) Dispatch(ctx context.Context, opts Options) (*Result, error) {
	if opts.Message == "" {
		return nil, ErrEmptyMessage
	}
	if len(opts.ContactIDs) == 0 {
		return nil, ErrNoRecipients
	}
	if opts.Channel == models.ChannelEmail && opts.Subject == "" {
		return nil, ErrEmptySubject
	}

	req := &backend.DispatchRequest{
		RuleID:      opts.RuleID,
		GroupKey:    opts.GroupKey,
		SubgroupKey: opts.SubgroupKey,
		ContactIDs:  opts.ContactIDs,
		Message:     opts.Message,
		Subject:     opts.Subject,
	}

	var (
		resp *backend.DispatchResponse
		err  error
	)
	switch opts.Channel {
	case models.ChannelEmail:
		resp, err = d.backend.SendToSubgroup(ctx, req)
	case models.ChannelWhatsApp:
		if opts.Varied {
			resp, err = d.backend.GenerateVariedURLs(ctx, req)
		} else {
			resp, err = d.backend.GenerateURLs(ctx, req)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, opts.Channel)
	}
	if err != nil {
		d.logger.Error("dispatch failed", "rule_id", opts.RuleID, "group_key", opts.GroupKey, "varied", opts.Varied, "error", err)
		return nil, err
	}

	total := len(opts.ContactIDs)
	current := resp.SentCount
	if len(resp.URLs) > 0 {
		current = len(resp.URLs)
	}
	if opts.OnProgress != nil {
		opts.OnProgress(current, total)
	}

	if m := metrics.Global(); m != nil {
		m.DispatchesTotal.WithLabelValues(opts.RuleID, strconv.FormatBool(opts.Varied)).Inc()
		m.MessagesSentTotal.WithLabelValues(opts.RuleID).Add(float64(resp.SentCount))
	}

	d.logger.Info("dispatch finished", "rule_id", opts.RuleID, "sent", resp.SentCount, "total", total, "varied", opts.Varied)
	return &Result{
		SentCount: resp.SentCount,
		Total:     total,
		Varied:    opts.Varied,
		URLs:      resp.URLs,
	}, nil
}
