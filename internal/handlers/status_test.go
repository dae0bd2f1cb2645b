package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blueturn/epicmirror/internal/reconcile"
)

func TestHandleStatus(t *testing.T) {
	h := New()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h.Started(start)

	if s := h.Snapshot(); !s.Running || s.Runs != 0 {
		t.Errorf("Expected a running first sync, got %+v", s)
	}

	summary := &reconcile.Summary{
		AuditPath: "/tmp/1714564800.csv",
		Dates: []reconcile.DateOutcome{
			{
				Date:      "2024-04-30",
				State:     reconcile.StatePartiallySynced,
				Synced:    []string{"a", "b"},
				Skipped:   []reconcile.ImageResult{{ImageID: "c", Reason: reconcile.ReasonGeometry}, {ImageID: "d", Reason: reconcile.ReasonFetch}, {ImageID: "e", Reason: reconcile.ReasonFetch}},
				Published: true,
			},
			{Date: "2024-05-01", State: reconcile.StateUnknown, Err: errors.New("catalog unavailable")},
		},
	}
	h.Finished(start.Add(time.Minute), summary, nil)

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}

	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"running", got.Running, false},
		{"runs", got.Runs, 1},
		{"synced", got.Last.Synced, 2},
		{"skipped", got.Last.Skipped, 3},
		{"dates", len(got.Last.Dates), 2},
		{"state", got.Last.Dates[0].State, "PARTIALLY_SYNCED"},
		{"fetch skips", got.Last.Dates[0].Skipped["fetch"], 2},
		{"geometry skips", got.Last.Dates[0].Skipped["geometry"], 1},
		{"date error", got.Last.Dates[1].Error, "catalog unavailable"},
		{"audit", got.Last.AuditPath, "/tmp/1714564800.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, tt.got)
			}
		})
	}
}

func TestFinishedKeepsLastSummaryOnError(t *testing.T) {
	h := New()
	h.Finished(time.Now(), &reconcile.Summary{}, nil)
	h.Finished(time.Now(), nil, errors.New("context canceled"))

	s := h.Snapshot()
	if s.Runs != 2 {
		t.Errorf("Expected 2 runs, got %d", s.Runs)
	}
	if s.LastError != "context canceled" {
		t.Errorf("Expected the error recorded, got %q", s.LastError)
	}
	if s.Last == nil {
		t.Error("Expected the previous summary kept")
	}
}

func TestHandleStatusMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	New().HandleStatus(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestHandleHealthcheck(t *testing.T) {
	rec := httptest.NewRecorder()
	New().HandleHealthcheck(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Body.String() != "OK" {
		t.Errorf("Expected OK, got %q", rec.Body.String())
	}
}
