package server

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mbocsi/lunalink/proto"
)

type Transport interface {
	Start() error
	OnConnect(func(*Connection) error)
	OnDisconnect(func(*Connection))
	OnServe(func(context.Context, *Connection))
	Shutdown() error
	Meta() TransportMetadata
	SetName(name string)
	SetDescription(description string)
}

type TransportMetadata struct {
	ID          string
	Name        string // Human-friendly name, e.g., "Rover link"
	Protocol    string // Protocol name, e.g., "tcp"
	Address     string // Bind address, e.g., "0.0.0.0:12345"
	Description string // Optional, short purpose/use case

	Connections int  // Current live connections
	MaxClients  int  // Max allowed connections
	Connected   bool // Whether the transport is currently bound
}

// Connection is everything the rover keeps for one earth peer.
type Connection struct {
	*proto.Conn
	Session     *Session
	ConnectedAt time.Time

	framesSent atomic.Uint64
	bytesSent  atomic.Uint64
	lastFrame  atomic.Int64
	streams    atomic.Uint64
}

func NewConnection(conn *proto.Conn) *Connection {
	return &Connection{Conn: conn, Session: NewSession(), ConnectedAt: time.Now()}
}

func (c *Connection) recordFrame(size int) {
	c.framesSent.Add(1)
	c.bytesSent.Add(uint64(size))
	c.lastFrame.Store(time.Now().UnixNano())
}

type ConnectionInfo struct {
	Id          string    `json:"id"`
	Addr        string    `json:"addr"`
	ConnectedAt time.Time `json:"connected_at"`
	State       string    `json:"state"`
	Streams     uint64    `json:"streams"`
	FramesSent  uint64    `json:"frames_sent"`
	BytesSent   uint64    `json:"bytes_sent"`
	LastFrame   time.Time `json:"last_frame,omitzero"`
}

func (c *Connection) Info() ConnectionInfo {
	info := ConnectionInfo{
		Id:          c.Id,
		Addr:        c.RemoteAddr(),
		ConnectedAt: c.ConnectedAt,
		State:       c.Session.State().String(),
		Streams:     c.streams.Load(),
		FramesSent:  c.framesSent.Load(),
		BytesSent:   c.bytesSent.Load(),
	}
	if last := c.lastFrame.Load(); last != 0 {
		info.LastFrame = time.Unix(0, last)
	}
	return info
}

func generateConnectionId(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
