package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/blueturn/epicmirror/internal/models"
	"github.com/blueturn/epicmirror/internal/reconcile"
)

// Status is the JSON document served on /status.
type Status struct {
	Running   bool       `json:"running"`
	Runs      int        `json:"runs"`
	LastStart time.Time  `json:"last_start"`
	LastEnd   time.Time  `json:"last_end"`
	LastError string     `json:"last_error,omitempty"`
	Last      *RunStatus `json:"last,omitempty"`
}

// RunStatus condenses a reconcile.Summary.
type RunStatus struct {
	Synced    int          `json:"synced"`
	Skipped   int          `json:"skipped"`
	AuditPath string       `json:"audit_path,omitempty"`
	Dates     []DateStatus `json:"dates"`
}

type DateStatus struct {
	Date      models.DateKey `json:"date"`
	State     string         `json:"state"`
	Synced    int            `json:"synced"`
	Skipped   map[string]int `json:"skipped,omitempty"`
	Published bool           `json:"published"`
	Error     string         `json:"error,omitempty"`
}

func newRunStatus(s *reconcile.Summary) *RunStatus {
	rs := &RunStatus{
		Synced:    s.Synced(),
		Skipped:   s.Skipped(),
		AuditPath: s.AuditPath,
		Dates:     make([]DateStatus, 0, len(s.Dates)),
	}
	for _, d := range s.Dates {
		ds := DateStatus{
			Date:      d.Date,
			State:     d.State.String(),
			Synced:    len(d.Synced),
			Published: d.Published,
		}
		if len(d.Skipped) > 0 {
			ds.Skipped = map[string]int{}
			for _, r := range d.Skipped {
				ds.Skipped[string(r.Reason)]++
			}
		}
		if d.Err != nil {
			ds.Error = d.Err.Error()
		}
		rs.Dates = append(rs.Dates, ds)
	}
	return rs
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.Snapshot())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleHealthcheck answers OK while the process is up. A failed sync is
// reported on /status, not here.
func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}
