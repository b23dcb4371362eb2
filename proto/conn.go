package proto

import (
	"bufio"
	"log/slog"
	"net"
	"sync"
)

// Conn is one rover<->earth connection. Any number of goroutines may write;
// every write holds wmu so a framed header and its body are never split by
// another writer. Only one goroutine may read.
type Conn struct {
	Id string

	conn   net.Conn
	reader *bufio.Reader

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewConn(id string, c net.Conn) *Conn {
	return &Conn{Id: id, conn: c, reader: bufio.NewReader(c)}
}

func (c *Conn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (c *Conn) WriteMessage(payload []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := WriteMessage(c.conn, payload); err != nil {
		return err
	}
	slog.Debug("Sent framed message", "conn", c.Id, "size", len(payload))
	return nil
}

func (c *Conn) WriteEnvelope(e Envelope) error {
	data, err := MarshalEnvelope(e)
	if err != nil {
		return err
	}
	return c.WriteMessage(data)
}

// WriteRaw writes b as-is, without a length header. Used for command tokens
// and the raw-mode diagnostic.
func (c *Conn) WriteRaw(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write(b); err != nil {
		return wrapIOError("write raw", err)
	}
	slog.Debug("Sent raw message", "conn", c.Id, "size", len(b))
	return nil
}

func (c *Conn) ReadMessage(max uint32) ([]byte, error) {
	return ReadMessage(c.reader, max)
}

// ReadChunk performs a single read of at most size bytes. Anything longer
// than size is left for the next call.
func (c *Conn) ReadChunk(size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := c.reader.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err != nil {
		return nil, wrapIOError("read", err)
	}
	return buf[:0], nil
}

// Peek returns the next n bytes without consuming them.
func (c *Conn) Peek(n int) ([]byte, error) {
	b, err := c.reader.Peek(n)
	if err != nil {
		return b, wrapIOError("peek", err)
	}
	return b, nil
}

// Discard consumes n buffered or incoming bytes.
func (c *Conn) Discard(n int) error {
	_, err := c.reader.Discard(n)
	return wrapIOError("discard", err)
}

// Close is safe to call from several goroutines; only the first call closes the socket.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
