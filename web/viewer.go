// Package web serves the earth-side browser viewer: the latest frame over a
// websocket, a snapshot endpoint, and a quit button that ends playback.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/mbocsi/lunalink/media"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the viewer is a local tool
	},
}

// Viewer is a media.Display backed by an HTTP server.
type Viewer struct {
	Addr   string
	server *http.Server
	codec  media.Codec

	mu         sync.RWMutex
	latest     []byte
	seq        uint64
	latency    time.Duration
	clients    map[string]*wsClient
	maxClients int
	stats      func() any

	quit  atomic.Bool
	shown atomic.Uint64
}

func NewViewer(addr string) *Viewer {
	v := &Viewer{
		Addr:       addr,
		codec:      media.NewJPEGCodec(media.DefaultQuality),
		clients:    make(map[string]*wsClient),
		maxClients: 8,
	}
	v.server = &http.Server{Addr: addr, Handler: v.Routes()}
	return v
}

// SetStats adds the result of fn to the /stats response under "link".
func (v *Viewer) SetStats(fn func() any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stats = fn
}

func (v *Viewer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", v.HandleHome)
	r.Get("/ws", v.HandleWebSocket)
	r.Get("/frame.jpg", v.HandleFrame)
	r.Get("/stats", v.HandleStats)
	r.Post("/quit", v.HandleQuit)
	return r
}

// Start blocks serving HTTP until Shutdown.
func (v *Viewer) Start() error {
	slog.Info("Starting web viewer", "addr", v.Addr)
	if err := v.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (v *Viewer) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down web viewer", "addr", v.Addr)
	v.mu.Lock()
	clients := slices.Collect(maps.Values(v.clients))
	v.mu.Unlock()
	for _, c := range clients {
		c.Close()
	}
	return v.server.Shutdown(ctx)
}

func (v *Viewer) Show(frame media.Frame) error {
	data := frame.Encoded
	if len(data) == 0 {
		var err error
		if data, err = v.codec.Encode(frame.Image); err != nil {
			return err
		}
	}

	v.mu.Lock()
	v.latest = data
	v.seq = frame.Seq
	v.latency = frame.Latency
	clients := slices.Collect(maps.Values(v.clients))
	v.mu.Unlock()

	for _, c := range clients {
		c.push(data)
	}
	v.shown.Add(1)
	return nil
}

func (v *Viewer) QuitRequested() bool {
	return v.quit.Load()
}

func (v *Viewer) RequestQuit() {
	if !v.quit.Swap(true) {
		slog.Info("Quit requested from the web viewer")
	}
}

func (v *Viewer) HandleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, pageData{Title: "lunalink viewer"}); err != nil {
		http.Error(w, "Template rendering error: "+err.Error(), http.StatusInternalServerError)
	}
}

func (v *Viewer) HandleFrame(w http.ResponseWriter, r *http.Request) {
	v.mu.RLock()
	data := v.latest
	v.mu.RUnlock()

	if data == nil {
		http.Error(w, "no frame received yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (v *Viewer) HandleQuit(w http.ResponseWriter, r *http.Request) {
	v.RequestQuit()
	writeJSON(w, http.StatusAccepted, map[string]bool{"quit": true})
}

type viewerStats struct {
	Shown     uint64  `json:"shown"`
	Seq       uint64  `json:"seq"`
	LatencyMs float64 `json:"latency_ms"`
	Viewers   int     `json:"viewers"`
	Quit      bool    `json:"quit"`
	Link      any     `json:"link,omitempty"`
}

func (v *Viewer) HandleStats(w http.ResponseWriter, r *http.Request) {
	v.mu.RLock()
	s := viewerStats{
		Shown:     v.shown.Load(),
		Seq:       v.seq,
		LatencyMs: float64(v.latency) / float64(time.Millisecond),
		Viewers:   len(v.clients),
		Quit:      v.quit.Load(),
	}
	stats := v.stats
	v.mu.RUnlock()

	if stats != nil {
		s.Link = stats()
	}
	writeJSON(w, http.StatusOK, s)
}

func (v *Viewer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}

	v.mu.Lock()
	if len(v.clients) >= v.maxClients {
		v.mu.Unlock()
		slog.Warn("Max viewers reached, rejecting connection", "remote_addr", r.RemoteAddr)
		conn.Close()
		return
	}
	client := newWSClient(conn)
	v.clients[client.id] = client
	latest := v.latest
	v.mu.Unlock()

	slog.Info("Viewer connected", "addr", r.RemoteAddr, "id", client.id)
	defer func() {
		v.mu.Lock()
		delete(v.clients, client.id)
		v.mu.Unlock()
		client.Close()
		slog.Info("Viewer disconnected", "addr", r.RemoteAddr, "id", client.id)
	}()

	if latest != nil {
		client.push(latest)
	}
	go client.writeLoop()
	client.readLoop(v.RequestQuit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write JSON response", "error", err.Error())
	}
}
