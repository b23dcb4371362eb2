package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mbocsi/lunalink/media"
	"github.com/mbocsi/lunalink/proto"
)

// Dispatcher reads command tokens from one connection and starts or stops
// that connection's pump.
//
//	Idle      START_VIDEO -> spawn pump, Streaming
//	Streaming START_VIDEO -> ignored
//	any       STOP_VIDEO  -> deactivate, Idle
//	any       STOP / EOF  -> close connection
//	any       other       -> ignored
type Dispatcher struct {
	conn      *Connection
	camera    media.Camera
	codec     media.Codec
	pump      PumpOptions
	readChunk int

	wg sync.WaitGroup
}

func NewDispatcher(conn *Connection, camera media.Camera, codec media.Codec, pump PumpOptions, readChunk int) *Dispatcher {
	if readChunk <= 0 {
		readChunk = 512
	}
	return &Dispatcher{conn: conn, camera: camera, codec: codec, pump: pump, readChunk: readChunk}
}

// Run blocks until the peer sends STOP, the connection fails, or ctx is
// cancelled. Every pump it started has exited by the time it returns.
func (d *Dispatcher) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		d.conn.Session.Deactivate()
		cancel()
		d.conn.Close()
		d.wg.Wait()
	}()

	go func() {
		<-ctx.Done()
		d.conn.Close()
	}()

	for {
		chunk, err := d.conn.ReadChunk(d.readChunk)
		if err != nil {
			if errors.Is(err, proto.ErrConnectionClosed) {
				slog.Info("Connection closed by peer", "conn", d.conn.Id)
			} else {
				slog.Warn("Command read failed", "conn", d.conn.Id, "error", err)
			}
			return
		}
		if len(chunk) == 0 {
			return
		}
		slog.Info("Command received", "conn", d.conn.Id, "data", string(chunk))

		for _, cmd := range proto.ParseCommands(chunk) {
			if !d.handle(ctx, cmd) {
				return
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, cmd proto.Command) bool {
	switch cmd {
	case proto.CommandStartVideo:
		lease, ok := d.conn.Session.TryActivate()
		if !ok {
			slog.Debug("Stream already running, ignoring start", "conn", d.conn.Id)
			return true
		}
		pump := NewPump(d.conn, d.camera, d.codec, d.pump)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			pump.Run(ctx, lease)
		}()

	case proto.CommandStopVideo:
		d.conn.Session.Deactivate()

	case proto.CommandStop:
		slog.Info("Stop requested", "conn", d.conn.Id)
		return false

	default:
		slog.Debug("Ignoring unknown command", "conn", d.conn.Id, "command", string(cmd))
	}
	return true
}
