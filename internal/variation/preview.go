package variation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mverde/consola/internal/models"
	"github.com/mverde/consola/internal/template"
)

// MaxPreviewSamples caps the recipients in one preview call.
const MaxPreviewSamples = 3

// Preview is one varied sample for operator review. Never stored.
type Preview struct {
	ContactName     string `json:"contact_name"`
	OriginalMessage string `json:"original_message"`
	VariedMessage   string `json:"varied_message"`
}

// Previewer renders a template against sample recipients and shows the
// varied counterpart of each rendered message.
type Previewer struct {
	engine *template.Engine
	varier Varier
	logger *slog.Logger
}

// NewPreviewer creates a previewer.
func NewPreviewer(engine *template.Engine, varier Varier, logger *slog.Logger) *Previewer {
	return &Previewer{
		engine: engine,
		varier: varier,
		logger: logger.With("component", "variation"),
	}
}

// Preview renders and varies the template for at most MaxPreviewSamples
// recipients. The call has no side effects; nothing is sent or stored.
func (p *Previewer) Preview(ctx context.Context, tmpl, category string, samples []models.PendingItem, groupData map[string]string) ([]Preview, error) {
	if tmpl == "" {
		return nil, fmt.Errorf("template is required")
	}
	if len(samples) > MaxPreviewSamples {
		samples = samples[:MaxPreviewSamples]
	}

	previews := make([]Preview, 0, len(samples))
	for _, item := range samples {
		original := p.engine.RenderForItem(tmpl, category, item, groupData)
		varied, err := p.varier.Vary(ctx, original, template.FirstName(item.ContactName))
		if err != nil {
			return nil, fmt.Errorf("vary message for %s: %w", item.ContactName, err)
		}
		previews = append(previews, Preview{
			ContactName:     item.ContactName,
			OriginalMessage: original,
			VariedMessage:   varied,
		})
	}

	p.logger.Debug("generated previews", "count", len(previews))
	return previews, nil
}
