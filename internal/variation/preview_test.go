package variation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mverde/consola/internal/models"
	"github.com/mverde/consola/internal/template"
)

type fakeVarier struct {
	prefix string
	err    error
	calls  []string
}

func (f *fakeVarier) Vary(ctx context.Context, message, contactName string) (string, error) {
	f.calls = append(f.calls, contactName)
	if f.err != nil {
		return "", f.err
	}
	return f.prefix + message, nil
}

func (f *fakeVarier) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleItems(names ...string) []models.PendingItem {
	items := make([]models.PendingItem, 0, len(names))
	for i, name := range names {
		items = append(items, models.PendingItem{
			ID:          string(rune('a' + i)),
			ContactName: name,
		})
	}
	return items
}

func TestPreviewRendersAndVaries(t *testing.T) {
	varier := &fakeVarier{prefix: "variado: "}
	p := NewPreviewer(template.NewEngine(), varier, testLogger())

	items := []models.PendingItem{{
		ID:          "1",
		ContactName: "María García",
		Metadata:    map[string]string{"meeting_date": "lunes 9:00"},
	}}

	previews, err := p.Preview(context.Background(), "Hola {contact_name}, tu reunión es el {meeting_date}", models.CategoryMeeting, items, nil)
	require.NoError(t, err)
	require.Len(t, previews, 1)

	assert.Equal(t, "María García", previews[0].ContactName)
	assert.Equal(t, "Hola María, tu reunión es el lunes 9:00", previews[0].OriginalMessage)
	assert.Equal(t, "variado: Hola María, tu reunión es el lunes 9:00", previews[0].VariedMessage)
	// First name only is passed to the varier.
	assert.Equal(t, []string{"María"}, varier.calls)
}

func TestPreviewCapsSamples(t *testing.T) {
	varier := &fakeVarier{}
	p := NewPreviewer(template.NewEngine(), varier, testLogger())

	items := sampleItems("Ana", "Bruno", "Carla", "Diego", "Elena")
	previews, err := p.Preview(context.Background(), "Hola {contact_name}", models.CategoryMeeting, items, nil)
	require.NoError(t, err)

	assert.Len(t, previews, MaxPreviewSamples)
	assert.Len(t, varier.calls, MaxPreviewSamples)
}

func TestPreviewRequiresTemplate(t *testing.T) {
	p := NewPreviewer(template.NewEngine(), &fakeVarier{}, testLogger())

	_, err := p.Preview(context.Background(), "", models.CategoryMeeting, sampleItems("Ana"), nil)
	require.Error(t, err)
}

func TestPreviewPropagatesVarierError(t *testing.T) {
	varier := &fakeVarier{err: errors.New("quota exceeded")}
	p := NewPreviewer(template.NewEngine(), varier, testLogger())

	_, err := p.Preview(context.Background(), "Hola {contact_name}", models.CategoryMeeting, sampleItems("Ana"), nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "quota exceeded")
}
