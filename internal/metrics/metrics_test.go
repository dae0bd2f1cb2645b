package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunCounters(t *testing.T) {
	r := NewRun()
	r.Image("synced")
	r.Image("synced")
	r.Image("geometry")
	r.Date("SYNCED")
	r.Uploaded(100)
	r.Uploaded(23)
	r.Finish()

	tests := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"synced images", testutil.ToFloat64(r.images.WithLabelValues("synced")), 2},
		{"geometry skips", testutil.ToFloat64(r.images.WithLabelValues("geometry")), 1},
		{"synced dates", testutil.ToFloat64(r.dates.WithLabelValues("SYNCED")), 1},
		{"uploaded bytes", testutil.ToFloat64(r.uploaded), 123},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, tt.got)
			}
		})
	}

	n, err := testutil.GatherAndCount(r.Registry)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("Expected 5 series, got %d", n)
	}
}

func TestPush(t *testing.T) {
	var path, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path = req.URL.Path
		data, _ := io.ReadAll(req.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := NewRun()
	r.Image("synced")
	if err := r.Push(context.Background(), server.URL, "epicmirror"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if path != "/metrics/job/epicmirror" {
		t.Errorf("Expected /metrics/job/epicmirror, got %s", path)
	}
	if body == "" || !strings.Contains(body, "epicmirror_sync_images_total") {
		t.Errorf("Expected pushed images counter, got %d bytes", len(body))
	}
}

func TestPushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := NewRun().Push(context.Background(), server.URL, "epicmirror"); err == nil {
		t.Error("Expected error")
	}
}
