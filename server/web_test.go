package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mbocsi/lunalink/media"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *Connection) {
	t.Helper()
	c := NewCoordinator(NewConnectionRegistry(), nil, media.NoCamera{}, media.NewJPEGCodec(50), LinkOptions{})
	conn := newTestConnection(t, "tcp-1")
	c.Registry.Store(conn)
	return c, conn
}

func TestCoordinator_HandleHealth(t *testing.T) {
	c, _ := newTestCoordinator(t)

	rec := httptest.NewRecorder()
	c.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
	if body["connections"] != float64(1) {
		t.Errorf("Expected 1 connection, got %v", body["connections"])
	}
}

func TestCoordinator_HandleSessions(t *testing.T) {
	c, _ := newTestCoordinator(t)

	rec := httptest.NewRecorder()
	c.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))

	var infos []ConnectionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(infos) != 1 || infos[0].Id != "tcp-1" {
		t.Errorf("Expected one session tcp-1, got %+v", infos)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}
}

func TestCoordinator_HandleSessionDetail(t *testing.T) {
	c, _ := newTestCoordinator(t)
	routes := c.Routes()

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/tcp-1", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestCoordinator_HandleStopSession(t *testing.T) {
	c, conn := newTestCoordinator(t)
	lease, _ := conn.Session.TryActivate()

	rec := httptest.NewRecorder()
	c.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/tcp-1/stop", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if conn.Session.Active(lease) {
		t.Error("Expected stream to be stopped")
	}

	rec = httptest.NewRecorder()
	c.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/tcp-1/stop", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", rec.Code)
	}
}

func TestCoordinator_HandleTransports(t *testing.T) {
	c, _ := newTestCoordinator(t)
	transport := NewTCPTransport("localhost:0")
	transport.SetName("Rover link")
	c.RegisterTransport(transport)

	rec := httptest.NewRecorder()
	c.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transports", nil))

	var metas []TransportMetadata
	if err := json.Unmarshal(rec.Body.Bytes(), &metas); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(metas) != 1 || metas[0].Name != "Rover link" {
		t.Errorf("Expected the registered transport, got %+v", metas)
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected tool result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestCoordinator_ToolListSessions(t *testing.T) {
	c, _ := newTestCoordinator(t)

	result, err := c.toolListSessions(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("Tool failed: %v", err)
	}
	if !strings.Contains(toolText(t, result), `"id": "tcp-1"`) {
		t.Errorf("Expected session listing, got %s", toolText(t, result))
	}
}

func TestCoordinator_ToolStopAllStreams(t *testing.T) {
	c, conn := newTestCoordinator(t)
	conn.Session.TryActivate()

	result, err := c.toolStopAllStreams(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("Tool failed: %v", err)
	}
	var body map[string]int
	if err := json.Unmarshal([]byte(toolText(t, result)), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body["stopped"] != 1 {
		t.Errorf("Expected 1 stopped, got %d", body["stopped"])
	}
	if conn.Session.State() != SessionIdle {
		t.Errorf("Expected idle, got %s", conn.Session.State())
	}
}
