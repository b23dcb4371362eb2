package client

import (
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/mbocsi/lunalink/proto"
)

type TCPTransport struct {
	DialTimeout time.Duration
	conn        *proto.Conn
}

func NewTCPTransport() *TCPTransport {
	return &TCPTransport{DialTimeout: 10 * time.Second}
}

func (t *TCPTransport) Connect(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, t.DialTimeout)
	if err != nil {
		return fmt.Errorf("connect to rover at %s: %w", addr, err)
	}
	t.conn = proto.NewConn("earth-"+uuid.NewString(), conn)
	return nil
}

func (t *TCPTransport) Conn() *proto.Conn {
	return t.conn
}

func (t *TCPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
