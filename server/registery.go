package server

import (
	"slices"
	"sync"
)

type ConnectionRegistry struct {
	mu    sync.RWMutex
	store map[string]*Connection
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{store: make(map[string]*Connection)}
}

func (r *ConnectionRegistry) Store(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[conn.Id] = conn
}

func (r *ConnectionRegistry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.store[id]
	return val, ok
}

func (r *ConnectionRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.store, id)
}

// List returns live connections, oldest first.
func (r *ConnectionRegistry) List() []*Connection {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.store))
	for _, conn := range r.store {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	slices.SortFunc(conns, func(a, b *Connection) int {
		return a.ConnectedAt.Compare(b.ConnectedAt)
	})
	return conns
}

func (r *ConnectionRegistry) Snapshot() []ConnectionInfo {
	conns := r.List()
	infos := make([]ConnectionInfo, 0, len(conns))
	for _, conn := range conns {
		infos = append(infos, conn.Info())
	}
	return infos
}

// StopAll deactivates every session and returns how many were streaming.
func (r *ConnectionRegistry) StopAll() int {
	stopped := 0
	for _, conn := range r.List() {
		if conn.Session.State() != SessionIdle {
			stopped++
		}
		conn.Session.Deactivate()
	}
	return stopped
}
