package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/mbocsi/lunalink/proto"
)

// TCPTransport accepts earth connections and runs the serve callback for
// each one on its own goroutine.
type TCPTransport struct {
	Addr         string
	listener     net.Listener
	onConnect    func(*Connection) error
	onDisconnect func(*Connection)
	onServe      func(context.Context, *Connection)

	name        string
	description string
	clients     map[string]*Connection
	cmu         sync.RWMutex

	maxClients int
	connected  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTCPTransport(addr string) *TCPTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &TCPTransport{
		Addr:       addr,
		maxClients: 16,
		clients:    make(map[string]*Connection),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (t *TCPTransport) Start() error {
	if err := t.Listen(); err != nil {
		return err
	}
	return t.Serve()
}

func (t *TCPTransport) Listen() error {
	if t.onConnect == nil || t.onDisconnect == nil || t.onServe == nil {
		return fmt.Errorf("the OnConnect, OnDisconnect, or OnServe function is not defined; this transport is likely being used outside of the coordinator")
	}

	l, err := net.Listen("tcp", t.Addr)
	if err != nil {
		return err
	}
	t.cmu.Lock()
	if t.ctx.Err() != nil {
		t.cmu.Unlock()
		l.Close()
		return net.ErrClosed
	}
	t.listener = l
	t.connected = true
	t.cmu.Unlock()
	slog.Info("Rover waiting for connections", "addr", l.Addr().String())
	return nil
}

// ListenAddr is the bound address, useful when Addr used port 0.
func (t *TCPTransport) ListenAddr() net.Addr {
	t.cmu.RLock()
	defer t.cmu.RUnlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *TCPTransport) Serve() error {
	t.cmu.RLock()
	l := t.listener
	t.cmu.RUnlock()
	if l == nil {
		return fmt.Errorf("tcp transport %s is not listening", t.Addr)
	}
	defer func() {
		t.cmu.Lock()
		t.connected = false
		t.cmu.Unlock()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			return err // exits when the listener is closed
		}

		// Shutdown cancels under cmu, so a handler is either counted
		// before Shutdown waits or never started.
		t.cmu.Lock()
		if t.ctx.Err() != nil {
			t.cmu.Unlock()
			conn.Close()
			return net.ErrClosed
		}
		if len(t.clients) >= t.maxClients {
			t.cmu.Unlock()
			slog.Warn("Max clients reached, rejecting connection", "remote_addr", conn.RemoteAddr())
			conn.Close()
			continue
		}
		t.wg.Add(1)
		t.cmu.Unlock()

		go t.handleConnection(conn)
	}
}

func (t *TCPTransport) handleConnection(c net.Conn) {
	defer t.wg.Done()

	addr := c.RemoteAddr().String()
	conn := NewConnection(proto.NewConn(generateConnectionId("tcp"), c))
	slog.Info("Earth connected", "addr", addr, "id", conn.Id)

	defer func() {
		t.cmu.Lock()
		delete(t.clients, conn.Id)
		t.cmu.Unlock()

		t.onDisconnect(conn)

		conn.Close()
		slog.Info("Earth disconnected", "addr", addr, "id", conn.Id)
	}()

	if err := t.onConnect(conn); err != nil {
		slog.Error("Failed to register connection", "addr", addr, "error", err.Error())
		return
	}
	t.cmu.Lock()
	if t.ctx.Err() != nil {
		// Shutdown already closed the clients it knew about
		t.cmu.Unlock()
		return
	}
	t.clients[conn.Id] = conn
	t.cmu.Unlock()

	t.onServe(t.ctx, conn)
}

// Shutdown closes the listener and every live connection, then waits for
// their handlers to finish.
func (t *TCPTransport) Shutdown() error {
	slog.Info("Shutting down tcp server", "addr", t.Addr)

	var err error
	t.cmu.Lock()
	t.cancel()
	if t.listener != nil {
		err = t.listener.Close()
	}
	for _, conn := range t.clients {
		conn.Close()
	}
	t.cmu.Unlock()

	t.wg.Wait()
	return err
}

func (t *TCPTransport) OnConnect(fn func(*Connection) error) {
	t.onConnect = fn
}

func (t *TCPTransport) OnDisconnect(fn func(*Connection)) {
	t.onDisconnect = fn
}

func (t *TCPTransport) OnServe(fn func(context.Context, *Connection)) {
	t.onServe = fn
}

func (t *TCPTransport) Meta() TransportMetadata {
	t.cmu.RLock()
	defer t.cmu.RUnlock()
	return TransportMetadata{
		ID:          "tcp-" + t.Addr,
		Name:        t.name,
		Description: t.description,
		Protocol:    "tcp",
		Address:     t.Addr,
		Connections: len(t.clients),
		MaxClients:  t.maxClients,
		Connected:   t.connected,
	}
}

func (t *TCPTransport) SetName(name string) {
	t.name = name
}

func (t *TCPTransport) SetMaxClients(n int) {
	t.maxClients = n
}

func (t *TCPTransport) SetDescription(description string) {
	t.description = description
}
