package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mverde/consola/internal/backend"
	"github.com/mverde/consola/internal/checklist"
	"github.com/mverde/consola/internal/config"
	"github.com/mverde/consola/internal/grouping"
	"github.com/mverde/consola/internal/jobs"
	"github.com/mverde/consola/internal/models"
	"github.com/mverde/consola/internal/template"
	"github.com/mverde/consola/internal/variation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher serves a canned grouped payload.
type fakeFetcher struct {
	payload *models.GroupedPayload
	err     error
	calls   int
}

func (f *fakeFetcher) PendingGrouped(ctx context.Context, ruleID string) (*models.GroupedPayload, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.payload
	return &cp, nil
}

// fakeCounts serves pending counts or a backend error.
type fakeCounts struct {
	counts map[string]int
	err    error
}

func (f *fakeCounts) PendingCounts(ctx context.Context) (map[string]int, error) {
	return f.counts, f.err
}

// fakeSnoozer records snooze calls.
type fakeSnoozer struct {
	calls []backend.SnoozeRequest
}

func (f *fakeSnoozer) Snooze(ctx context.Context, req *backend.SnoozeRequest) (*backend.SnoozeResponse, error) {
	f.calls = append(f.calls, *req)
	return &backend.SnoozeResponse{SnoozeDays: 7, Message: "Contacto pospuesto 7 días"}, nil
}

// fakeDispatchBackend answers all three dispatch endpoints.
type fakeDispatchBackend struct {
	resp *backend.DispatchResponse
	err  error
}

func (f *fakeDispatchBackend) SendToSubgroup(ctx context.Context, req *backend.DispatchRequest) (*backend.DispatchResponse, error) {
	return f.resp, f.err
}

func (f *fakeDispatchBackend) GenerateURLs(ctx context.Context, req *backend.DispatchRequest) (*backend.DispatchResponse, error) {
	return f.resp, f.err
}

func (f *fakeDispatchBackend) GenerateVariedURLs(ctx context.Context, req *backend.DispatchRequest) (*backend.DispatchResponse, error) {
	return f.resp, f.err
}

// fakeJobBackend starts jobs that complete on the first poll.
type fakeJobBackend struct{}

func (fakeJobBackend) StartJob(ctx context.Context, kind string, payload any) (jobs.StartResult, error) {
	return jobs.StartResult{JobID: "job-" + kind}, nil
}

func (fakeJobBackend) JobStatus(ctx context.Context, jobID string) (*models.JobStatus, error) {
	return &models.JobStatus{ID: jobID, Status: models.JobCompleted}, nil
}

func (fakeJobBackend) CancelJob(ctx context.Context, jobID string) error { return nil }

// fakeChecklistBackend serves one delivery case.
type fakeChecklistBackend struct {
	collection models.CaseCollection
	setCellErr error
}

func (f *fakeChecklistBackend) DeliveryCases(ctx context.Context) (*models.CaseCollection, error) {
	cp := f.collection
	return &cp, nil
}

func (f *fakeChecklistBackend) SetCell(ctx context.Context, caseID, contactID, columnID string, checked bool) error {
	return f.setCellErr
}

func (f *fakeChecklistBackend) SetProfileComplete(ctx context.Context, caseID, contactID string, complete bool) error {
	return nil
}

func (f *fakeChecklistBackend) CreateColumn(ctx context.Context, caseID string, col models.TaskColumn) error {
	return nil
}

func (f *fakeChecklistBackend) UpdateColumn(ctx context.Context, caseID string, col models.TaskColumn) error {
	return nil
}

func (f *fakeChecklistBackend) DeleteColumn(ctx context.Context, caseID, columnID string) error {
	return nil
}

func (f *fakeChecklistBackend) SwapColumns(ctx context.Context, caseID, columnID, otherID string) error {
	return nil
}

func (f *fakeChecklistBackend) TrafficLightStatus(ctx context.Context) (map[string]string, error) {
	return map[string]string{"delivery": "green"}, nil
}

func flatPayload(n int) *models.GroupedPayload {
	items := make([]models.PendingItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.PendingItem{
			ID:          string(rune('a' + i)),
			ContactName: "Contacto " + string(rune('A'+i)),
		})
	}
	return &models.GroupedPayload{
		RuleID: "meeting-24h",
		Groups: []models.Group{
			{ID: "lunes", Name: "Lunes", Items: items},
		},
	}
}

func testCollection() models.CaseCollection {
	return models.CaseCollection{
		Cases: []models.Case{
			{
				ID:            "case-1",
				Name:          "Entrega Acme",
				DeliveryStage: "kickoff",
				Contacts: []models.CaseContact{
					{ID: "ct-1", Name: "Ana", Roles: []string{"deal_maker"}},
				},
				Columns: []models.TaskColumn{
					{ID: "col-1", RoleID: "deal_maker", Title: "Firmar contrato", Position: 1},
				},
				Cells:        []models.ChecklistCell{{ContactID: "ct-1", ColumnID: "col-1"}},
				WeeklyStatus: models.StatusRed,
			},
		},
		GroupedByStage: map[string][]string{"kickoff": {"case-1"}},
	}
}

type testEnv struct {
	server   *Server
	fetcher  *fakeFetcher
	snoozer  *fakeSnoozer
	counts   *fakeCounts
	checklst *fakeChecklistBackend
	jobs     *jobs.Manager
}

func setupServer(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	logger := testLogger()
	fetcher := &fakeFetcher{payload: flatPayload(7)}
	counts := &fakeCounts{counts: map[string]int{"meeting-24h": 7}}
	snoozer := &fakeSnoozer{}
	checklistBackend := &fakeChecklistBackend{collection: testCollection()}

	engine := template.NewEngine()
	manager := jobs.NewManager(fakeJobBackend{}, jobs.DefaultConfig(), nil, logger)
	t.Cleanup(manager.Shutdown)

	deps := Deps{
		Loader:     grouping.NewLoader(fetcher, nil, logger),
		Paginator:  grouping.NewPaginator(nil),
		Expansion:  grouping.NewExpansion(),
		Engine:     engine,
		Previewer:  variation.NewPreviewer(engine, variation.NopVarier{}, logger),
		Dispatcher: variation.NewDispatcher(&fakeDispatchBackend{resp: &backend.DispatchResponse{SentCount: 2}}, logger),
		Jobs:       manager,
		Checklist:  checklist.NewService(checklistBackend, logger),
		Counts:     counts,
		Snoozer:    snoozer,
	}

	cfg := &config.Config{}
	cfg.Server.APIKey = apiKey

	return &testEnv{
		server:   NewServer(deps, cfg, logger),
		fetcher:  fetcher,
		snoozer:  snoozer,
		counts:   counts,
		checklst: checklistBackend,
		jobs:     manager,
	}
}

func doRequest(t *testing.T, s *Server, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestHealthNoAuth(t *testing.T) {
	env := setupServer(t, "secret")

	rec := doRequest(t, env.server, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decode[HealthResponse](t, rec)
	if resp.Status != "ok" {
		t.Errorf("Status = %v, want ok", resp.Status)
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupServer(t, "secret")

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/stages", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without key: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = doRequest(t, env.server, http.MethodGet, "/api/v1/stages", "wrong", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = doRequest(t, env.server, http.MethodGet, "/api/v1/stages", "secret", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("right key: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestStagesCarryCatalogAndCounts(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/stages", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decode[StagesResponse](t, rec)
	if len(resp.Stages) == 0 {
		t.Fatal("no stages in response")
	}
	if resp.Counts["meeting-24h"] != 7 {
		t.Errorf("Counts[meeting-24h] = %d, want 7", resp.Counts["meeting-24h"])
	}
}

func TestToggleRuleLazyLoadsView(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/rules/meeting-24h/toggle", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decode[ToggleRuleResponse](t, rec)
	if !resp.Open {
		t.Fatal("Open = false, want true")
	}
	if resp.View == nil {
		t.Fatal("View = nil, want rule view")
	}
	if resp.View.TotalItems != 7 {
		t.Errorf("TotalItems = %d, want 7", resp.View.TotalItems)
	}
	if env.fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", env.fetcher.calls)
	}

	// Toggling again closes the rule without another fetch.
	rec = doRequest(t, env.server, http.MethodPost, "/api/v1/rules/meeting-24h/toggle", "", nil)
	resp = decode[ToggleRuleResponse](t, rec)
	if resp.Open {
		t.Error("Open = true after second toggle, want false")
	}
	if resp.View != nil {
		t.Error("View set after close, want nil")
	}
}

func TestToggleUnknownRule(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/rules/no-such-rule/toggle", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPaginationOverHTTP(t *testing.T) {
	env := setupServer(t, "")
	key := "meeting-24h|lunes"

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/pages", "", PageRequest{Key: key, Page: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	page := decode[grouping.Page](t, rec)
	if page.Label != "Pág 1/2" {
		t.Errorf("Label = %q, want Pág 1/2", page.Label)
	}
	if len(page.Items) != 5 {
		t.Errorf("len(Items) = %d, want 5", len(page.Items))
	}

	rec = doRequest(t, env.server, http.MethodPost, "/api/v1/pages", "", PageRequest{Key: key, Page: 2})
	page = decode[grouping.Page](t, rec)
	if page.Label != "Pág 2/2" {
		t.Errorf("Label = %q, want Pág 2/2", page.Label)
	}
	if len(page.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(page.Items))
	}
}

func TestPageSizeValidation(t *testing.T) {
	env := setupServer(t, "")
	key := "meeting-24h|lunes"

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/page-size", "", PageSizeRequest{Key: key, Size: 7})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid size: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doRequest(t, env.server, http.MethodPost, "/api/v1/page-size", "", PageSizeRequest{Key: key, Size: 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid size: status = %d, want %d", rec.Code, http.StatusOK)
	}
	page := decode[grouping.Page](t, rec)
	if page.Size != 10 || page.Number != 1 {
		t.Errorf("page = %d size = %d, want page 1 size 10", page.Number, page.Size)
	}
}

func TestPreviewRendersTemplate(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/preview", "", PreviewRequest{
		RuleID:   "meeting-24h",
		Key:      "meeting-24h|lunes",
		Template: "Hola {contact_name}, tu reunión es el {meeting_date}",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	resp := decode[PreviewResponse](t, rec)
	if len(resp.Messages) != variation.MaxPreviewSamples {
		t.Fatalf("len(Messages) = %d, want %d", len(resp.Messages), variation.MaxPreviewSamples)
	}
	// meeting_date has no value anywhere, so the literal placeholder stays.
	if !strings.Contains(resp.Messages[0].Message, "[meeting_date]") {
		t.Errorf("Message = %q, want [meeting_date] placeholder", resp.Messages[0].Message)
	}
	if strings.Contains(resp.Messages[0].Message, "{contact_name}") {
		t.Errorf("Message = %q, contact_name not substituted", resp.Messages[0].Message)
	}
}

func TestDispatchValidationOverHTTP(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/dispatch", "", DispatchRequest{
		RuleID:  "meeting-24h",
		Key:     "meeting-24h|lunes",
		Message: "",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDispatchSendsBatch(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/dispatch", "", DispatchRequest{
		RuleID:     "meeting-24h",
		Key:        "meeting-24h|lunes",
		ContactIDs: []string{"a", "b"},
		Message:    "Hola {contact_name}",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	res := decode[variation.Result](t, rec)
	if res.SentCount != 2 {
		t.Errorf("SentCount = %d, want 2", res.SentCount)
	}
}

func TestSnoozeRecordsAndResponds(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/snooze", "", SnoozeRequest{
		ContactID: "ct-9",
		RuleID:    "meeting-24h",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decode[backend.SnoozeResponse](t, rec)
	if resp.SnoozeDays != 7 {
		t.Errorf("SnoozeDays = %d, want 7", resp.SnoozeDays)
	}
	if len(env.snoozer.calls) != 1 {
		t.Fatalf("snoozer calls = %d, want 1", len(env.snoozer.calls))
	}
	if env.snoozer.calls[0].ContactID != "ct-9" {
		t.Errorf("ContactID = %v, want ct-9", env.snoozer.calls[0].ContactID)
	}
}

func TestStartJobUnknownKind(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/jobs/mystery", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStartJobAccepted(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/jobs/queue_refresh", "", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	resp := decode[StartJobResponse](t, rec)
	if resp.RunID == "" {
		t.Error("RunID empty, want run id")
	}
	if resp.AlreadyRunning {
		t.Error("AlreadyRunning = true, want false")
	}
}

func TestJobStatusInactive(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/jobs/email_queue", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decode[JobStatusResponse](t, rec)
	if resp.Active {
		t.Error("Active = true, want false")
	}
}

func TestCancelWithoutActiveJob(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodDelete, "/api/v1/jobs/email_queue", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCasesLazyLoad(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/cases", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	col := decode[models.CaseCollection](t, rec)
	if len(col.Cases) != 1 {
		t.Fatalf("len(Cases) = %d, want 1", len(col.Cases))
	}
	if col.Cases[0].Name != "Entrega Acme" {
		t.Errorf("Name = %v, want Entrega Acme", col.Cases[0].Name)
	}
}

func TestCaseGrid(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/cases/case-1/grid", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	grid := decode[checklist.CaseGrid](t, rec)
	if grid.CaseID != "case-1" {
		t.Errorf("CaseID = %v, want case-1", grid.CaseID)
	}
	if len(grid.Rows) == 0 {
		t.Error("no rows in grid")
	}
}

func TestCaseGridUnknownCase(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/cases/no-such-case/grid", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestToggleCellReturnsGrid(t *testing.T) {
	env := setupServer(t, "")

	// Prime the collection.
	doRequest(t, env.server, http.MethodGet, "/api/v1/cases", "", nil)

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/cases/case-1/cells", "", CellToggleRequest{
		ContactID: "ct-1",
		ColumnID:  "col-1",
		Current:   false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestToggleProfileReturnsGrid(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/cases/case-1/contacts/ct-1/profile", "", ProfileToggleRequest{
		Current: false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestToggleProfileUnknownContact(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/cases/case-1/contacts/nobody/profile", "", ProfileToggleRequest{})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusNotFound, rec.Body.String())
	}
}

func TestMoveColumnValidation(t *testing.T) {
	env := setupServer(t, "")
	doRequest(t, env.server, http.MethodGet, "/api/v1/cases", "", nil)

	rec := doRequest(t, env.server, http.MethodPost, "/api/v1/cases/case-1/columns/col-1/move", "", MoveColumnRequest{
		Direction: "up",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCaseStatuses(t *testing.T) {
	env := setupServer(t, "")

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/cases/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	resp := decode[CaseStatusesResponse](t, rec)
	if resp.Cases["case-1"] != models.StatusRed {
		t.Errorf("Cases[case-1] = %v, want %v", resp.Cases["case-1"], models.StatusRed)
	}
	if resp.Global != models.StatusRed {
		t.Errorf("Global = %v, want %v", resp.Global, models.StatusRed)
	}
}

func TestBackendErrorSurfacedVerbatim(t *testing.T) {
	env := setupServer(t, "")
	env.counts.err = &backend.APIError{StatusCode: http.StatusServiceUnavailable, Detail: "El evaluador no está disponible"}

	rec := doRequest(t, env.server, http.MethodGet, "/api/v1/counts", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	resp := decode[ErrorResponse](t, rec)
	if resp.Error != "El evaluador no está disponible" {
		t.Errorf("Error = %q, want backend detail verbatim", resp.Error)
	}
}
