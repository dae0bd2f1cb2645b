package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/blueturn/epicmirror/internal/reconcile"
)

// Handler serves the state of the sync loop run by the serve command.
type Handler struct {
	mu     sync.RWMutex
	status Status
}

func New() *Handler {
	return &Handler{}
}

// Started records that a sync began at t.
func (h *Handler) Started(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.Running = true
	h.status.LastStart = t
}

// Finished records the outcome of the sync that started last.
func (h *Handler) Finished(t time.Time, summary *reconcile.Summary, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.status.Running = false
	h.status.LastEnd = t
	h.status.Runs++
	h.status.LastError = ""
	if err != nil {
		h.status.LastError = err.Error()
	}
	if summary != nil {
		h.status.Last = newRunStatus(summary)
	}
}

// Snapshot returns a copy of the current status.
func (h *Handler) Snapshot() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.status
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	return s
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}
