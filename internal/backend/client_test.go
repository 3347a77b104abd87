package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mverde/consola/internal/models"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 5*time.Second)
}

func TestPendingGrouped(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/outreach/rules/E01/pending" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		json.NewEncoder(w).Encode(models.GroupedPayload{
			RuleID:       "E01",
			HasSubgroups: false,
			Groups: []models.Group{
				{ID: "g1", Name: "Grupo 1", Count: 1, Items: []models.PendingItem{{ID: "i1"}}},
			},
		})
	})

	payload, err := c.PendingGrouped(context.Background(), "E01")
	if err != nil {
		t.Fatalf("PendingGrouped: %v", err)
	}
	if len(payload.Groups) != 1 || payload.Groups[0].ID != "g1" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestErrorDetailSurfacedVerbatim(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error:  "export_conflict",
			Detail: "La exportación ya fue solicitada esta semana",
		})
	})

	_, err := c.GenerateQueue(context.Background(), models.KindEmailQueue)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.Error() != "La exportación ya fue solicitada esta semana" {
		t.Errorf("detail = %q, must be verbatim", apiErr.Error())
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

func TestErrorWithoutDetailGetsGenericMessage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("not json"))
	})

	_, err := c.PendingCounts(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T", err)
	}
	if apiErr.Error() != "backend error: HTTP 500" {
		t.Errorf("message = %q", apiErr.Error())
	}
}

func TestStartJobAlreadyRunning(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req StartJobRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Kind != models.KindQueueRefresh {
			t.Errorf("kind = %s", req.Kind)
		}
		json.NewEncoder(w).Encode(map[string]any{"job_id": "", "already_running": true})
	})

	result, err := c.StartJob(context.Background(), models.KindQueueRefresh, nil)
	if err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	if !result.AlreadyRunning {
		t.Error("already_running not decoded")
	}
}

func TestDispatchRoundTrip(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/outreach/generate-varied-urls" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req DispatchRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.ContactIDs) != 2 || req.RuleID != "W01" {
			t.Errorf("req = %+v", req)
		}
		json.NewEncoder(w).Encode(DispatchResponse{
			SentCount: 2,
			URLs: []URLEntry{
				{ContactName: "Ana", Phone: "+34600000001", URL: "https://wa.me/x"},
				{ContactName: "Luis", Phone: "+34600000002", URL: "https://wa.me/y"},
			},
		})
	})

	resp, err := c.GenerateVariedURLs(context.Background(), &DispatchRequest{
		RuleID:     "W01",
		GroupKey:   "web1",
		ContactIDs: []string{"c1", "c2"},
		Message:    "Hola {contact_name}",
	})
	if err != nil {
		t.Fatalf("GenerateVariedURLs: %v", err)
	}
	if resp.SentCount != 2 || len(resp.URLs) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSetCellNoContent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		var req CellRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Checked || req.ContactID != "c1" || req.ColumnID != "col1" {
			t.Errorf("req = %+v", req)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.SetCell(context.Background(), "case-1", "c1", "col1", true); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
}

func TestTrafficLightStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TrafficLightResponse{
			Sections: map[string]string{"delivery": "yellow", "sales": "green"},
		})
	})

	sections, err := c.TrafficLightStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sections["delivery"] != "yellow" {
		t.Errorf("sections = %v", sections)
	}
}
