package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (c *Coordinator) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", c.HandleHealth)
	r.Get("/sessions", c.HandleSessions)
	r.Get("/sessions/{id}", c.HandleSessionDetail)
	r.Post("/sessions/{id}/stop", c.HandleStopSession)
	r.Get("/transports", c.HandleTransports)
	return r
}

func (c *Coordinator) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": len(c.Registry.List()),
	})
}

func (c *Coordinator) HandleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Registry.Snapshot())
}

func (c *Coordinator) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn, ok := c.Registry.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, conn.Info())
}

// HandleStopSession has the same effect as the earth sending STOP_VIDEO.
func (c *Coordinator) HandleStopSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn, ok := c.Registry.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	conn.Session.Deactivate()
	slog.Info("Stream stopped from status API", "conn", id)
	writeJSON(w, http.StatusOK, conn.Info())
}

func (c *Coordinator) HandleTransports(w http.ResponseWriter, r *http.Request) {
	metas := make([]TransportMetadata, 0, len(c.Transports))
	for _, t := range c.Transports {
		metas = append(metas, t.Meta())
	}
	writeJSON(w, http.StatusOK, metas)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write JSON response", "error", err.Error())
	}
}
