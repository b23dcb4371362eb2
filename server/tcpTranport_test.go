package server

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewTCPTransport(t *testing.T) {
	addr := "localhost:0"
	transport := NewTCPTransport(addr)

	if transport.Addr != addr {
		t.Errorf("Expected addr %s, got %s", addr, transport.Addr)
	}

	if transport.maxClients != 16 {
		t.Errorf("Expected maxClients 16, got %d", transport.maxClients)
	}

	if transport.clients == nil {
		t.Error("Expected clients map to be initialized")
	}
}

func TestTCPTransport_SetMethods(t *testing.T) {
	transport := NewTCPTransport("localhost:0")

	transport.SetName("test-transport")
	transport.SetMaxClients(10)
	transport.SetDescription("Test transport")

	meta := transport.Meta()

	if meta.Name != "test-transport" {
		t.Errorf("Expected name 'test-transport', got %s", meta.Name)
	}

	if meta.MaxClients != 10 {
		t.Errorf("Expected maxClients 10, got %d", meta.MaxClients)
	}

	if meta.Description != "Test transport" {
		t.Errorf("Expected description 'Test transport', got %s", meta.Description)
	}
}

func TestTCPTransport_StartWithoutCallbacks(t *testing.T) {
	transport := NewTCPTransport("localhost:0")

	err := transport.Start()
	if err == nil {
		t.Error("Expected error when starting without callbacks")
	}
}

func startTestTransport(t *testing.T, transport *TCPTransport) string {
	t.Helper()
	if err := transport.Listen(); err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	go transport.Serve()
	t.Cleanup(func() { transport.Shutdown() })
	return transport.ListenAddr().String()
}

func TestTCPTransport_StartAndShutdown(t *testing.T) {
	transport := NewTCPTransport("localhost:0")

	transport.OnConnect(func(conn *Connection) error { return nil })
	transport.OnDisconnect(func(conn *Connection) {})
	transport.OnServe(func(ctx context.Context, conn *Connection) {})

	errCh := make(chan error, 1)
	go func() {
		errCh <- transport.Start()
	}()

	// Wait for server to start
	time.Sleep(100 * time.Millisecond)

	if !transport.Meta().Connected {
		t.Error("Expected transport to report connected while listening")
	}

	if err := transport.Shutdown(); err != nil {
		t.Errorf("Error during shutdown: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
			t.Errorf("Unexpected error during start: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start did not return after shutdown")
	}
}

func TestTCPTransport_ClientConnection(t *testing.T) {
	transport := NewTCPTransport("localhost:0")

	connected := make(chan *Connection, 1)
	disconnected := make(chan *Connection, 1)
	received := make(chan string, 1)

	transport.OnConnect(func(conn *Connection) error {
		connected <- conn
		return nil
	})
	transport.OnDisconnect(func(conn *Connection) {
		disconnected <- conn
	})
	transport.OnServe(func(ctx context.Context, conn *Connection) {
		chunk, err := conn.ReadChunk(512)
		if err == nil {
			received <- string(chunk)
		}
		conn.ReadChunk(512) // wait for the peer to hang up
	})

	addr := startTestTransport(t, transport)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	var c *Connection
	select {
	case c = <-connected:
	case <-time.After(time.Second):
		t.Fatal("OnConnect callback was not called")
	}
	if !strings.HasPrefix(c.Id, "tcp-") {
		t.Errorf("Expected connection id with tcp prefix, got %s", c.Id)
	}
	if c.Session.State() != SessionIdle {
		t.Errorf("Expected new connection to be idle, got %s", c.Session.State())
	}

	conn.Write([]byte("START_VIDEO"))
	select {
	case got := <-received:
		if got != "START_VIDEO" {
			t.Errorf("Expected START_VIDEO, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve callback did not receive data")
	}

	if transport.Meta().Connections != 1 {
		t.Errorf("Expected 1 connection, got %d", transport.Meta().Connections)
	}

	conn.Close()

	select {
	case d := <-disconnected:
		if d.Id != c.Id {
			t.Errorf("Expected disconnect for %s, got %s", c.Id, d.Id)
		}
	case <-time.After(time.Second):
		t.Fatal("OnDisconnect callback was not called")
	}
}

func TestTCPTransport_MaxClients(t *testing.T) {
	transport := NewTCPTransport("localhost:0")
	transport.SetMaxClients(1)

	transport.OnConnect(func(conn *Connection) error { return nil })
	transport.OnDisconnect(func(conn *Connection) {})
	transport.OnServe(func(ctx context.Context, conn *Connection) {
		conn.ReadChunk(512)
	})

	addr := startTestTransport(t, transport)

	// Connect first client
	conn1, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Failed to connect first client: %v", err)
	}
	defer conn1.Close()

	// Wait for connection to be processed
	time.Sleep(100 * time.Millisecond)

	// Try to connect second client - should be rejected
	conn2, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Failed to connect second client: %v", err)
	}
	defer conn2.Close()

	conn2.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	reader := bufio.NewReader(conn2)
	_, err = reader.ReadByte()

	// Connection should be closed, so we expect an error
	if err == nil {
		t.Error("Expected second connection to be closed due to max clients limit")
	}
}

func TestTCPTransport_OnConnectError(t *testing.T) {
	transport := NewTCPTransport("localhost:0")

	var served atomic.Bool
	disconnected := make(chan struct{}, 1)
	transport.OnConnect(func(conn *Connection) error { return net.ErrClosed })
	transport.OnDisconnect(func(conn *Connection) { disconnected <- struct{}{} })
	transport.OnServe(func(ctx context.Context, conn *Connection) { served.Store(true) })

	addr := startTestTransport(t, transport)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("Expected connection to be dropped after OnConnect failed")
	}
	if served.Load() {
		t.Error("Expected serve callback not to run")
	}
}

func TestTCPTransport_ShutdownClosesClients(t *testing.T) {
	transport := NewTCPTransport("localhost:0")

	transport.OnConnect(func(conn *Connection) error { return nil })
	transport.OnDisconnect(func(conn *Connection) {})
	transport.OnServe(func(ctx context.Context, conn *Connection) {
		conn.ReadChunk(512)
	})

	if err := transport.Listen(); err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	go transport.Serve()

	conn, err := net.Dial("tcp", transport.ListenAddr().String())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		transport.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not wait for handlers to finish")
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Error("Expected client connection to be closed by shutdown")
	}
}

func TestTCPTransport_ShutdownWhileAccepting(t *testing.T) {
	transport := NewTCPTransport("localhost:0")
	transport.SetMaxClients(1000)

	var stopped, servedAfterStop atomic.Bool
	transport.OnConnect(func(conn *Connection) error { return nil })
	transport.OnDisconnect(func(conn *Connection) {})
	transport.OnServe(func(ctx context.Context, conn *Connection) {
		if stopped.Load() {
			servedAfterStop.Store(true)
		}
		conn.ReadChunk(512)
	})

	if err := transport.Listen(); err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := transport.ListenAddr().String()
	go transport.Serve()

	// keep dialing and holding connections open while shutdown runs
	quit := make(chan struct{})
	dialerDone := make(chan struct{})
	var held []net.Conn
	go func() {
		defer close(dialerDone)
		for {
			select {
			case <-quit:
				return
			default:
			}
			c, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
			if err != nil {
				continue
			}
			held = append(held, c)
		}
	}()
	defer func() {
		close(quit)
		<-dialerDone
		for _, c := range held {
			c.Close()
		}
	}()

	time.Sleep(30 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		transport.Shutdown()
		stopped.Store(true)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown hung while connections were arriving")
	}
	time.Sleep(30 * time.Millisecond)

	if servedAfterStop.Load() {
		t.Error("Expected no connection to be served after shutdown returned")
	}
	if n := transport.Meta().Connections; n != 0 {
		t.Errorf("Expected no live connections, got %d", n)
	}
}

func TestTCPTransport_Meta(t *testing.T) {
	transport := NewTCPTransport("localhost:8080")
	transport.SetName("test-transport")
	transport.SetDescription("Test TCP transport")
	transport.SetMaxClients(5)

	meta := transport.Meta()

	if meta.Protocol != "tcp" {
		t.Errorf("Expected protocol 'tcp', got %s", meta.Protocol)
	}

	if meta.Address != "localhost:8080" {
		t.Errorf("Expected address 'localhost:8080', got %s", meta.Address)
	}

	if meta.Connected != false {
		t.Errorf("Expected connected false, got %t", meta.Connected)
	}

	expectedID := "tcp-localhost:8080"
	if meta.ID != expectedID {
		t.Errorf("Expected ID '%s', got %s", expectedID, meta.ID)
	}
}

func TestGenerateConnectionId(t *testing.T) {
	a := generateConnectionId("tcp")
	b := generateConnectionId("tcp")
	if a == b {
		t.Error("Expected unique connection ids")
	}
	if !strings.HasPrefix(a, "tcp-") {
		t.Errorf("Expected tcp prefix, got %s", a)
	}
}
