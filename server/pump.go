package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbocsi/lunalink/media"
	"github.com/mbocsi/lunalink/proto"
)

type PumpOptions struct {
	Latency time.Duration
	Width   int
	Height  int
	Mode    proto.Mode
}

// Pump streams captured frames over one connection until its lease is
// revoked. The stop check runs once per frame, so a stop takes effect within
// one capture+encode+latency cycle.
type Pump struct {
	conn   *Connection
	camera media.Camera
	codec  media.Codec
	opts   PumpOptions
}

func NewPump(conn *Connection, camera media.Camera, codec media.Codec, opts PumpOptions) *Pump {
	return &Pump{conn: conn, camera: camera, codec: codec, opts: opts}
}

func (p *Pump) Run(ctx context.Context, lease *Lease) {
	session := p.conn.Session
	defer session.Release(lease)

	// The device is exclusive: let the previous stream close it first.
	if !lease.WaitPrevious(ctx.Done()) {
		return
	}

	capture, err := p.camera.Open(p.opts.Width, p.opts.Height)
	if err != nil {
		slog.Error("Unable to access the camera", "conn", p.conn.Id, "error", err)
		if !proto.Delay(ctx, p.opts.Latency) {
			return
		}
		if err := p.sendDiagnostic(proto.DiagnosticCameraUnavailable); err != nil {
			slog.Warn("Failed to send diagnostic", "conn", p.conn.Id, "error", err)
		}
		return
	}

	var sent uint64
	defer func() {
		if err := capture.Close(); err != nil {
			slog.Warn("Failed to release camera", "conn", p.conn.Id, "error", err)
		}
		slog.Info("Video streaming stopped", "conn", p.conn.Id, "frames", sent)
	}()

	if !session.MarkStreaming(lease) {
		return
	}
	p.conn.streams.Add(1)
	slog.Info("Video streaming started", "conn", p.conn.Id, "width", p.opts.Width, "height", p.opts.Height, "latency", p.opts.Latency)

	for seq := uint64(1); session.Active(lease); seq++ {
		img, err := capture.ReadFrame()
		taken := time.Now()
		if err != nil {
			slog.Warn("Frame capture failed", "conn", p.conn.Id, "error", err)
			return
		}
		data, err := p.codec.Encode(img)
		if err != nil {
			slog.Warn("Frame encode failed", "conn", p.conn.Id, "error", err)
			return
		}

		if !proto.Delay(ctx, p.opts.Latency) {
			return
		}
		// a stop that arrived during the delay drops this frame
		if !session.Active(lease) {
			return
		}

		size, err := p.sendFrame(seq, taken, data)
		if err != nil {
			slog.Warn("Frame send failed", "conn", p.conn.Id, "error", err)
			return
		}
		p.conn.recordFrame(size)
		sent++
		slog.Debug("Frame sent", "conn", p.conn.Id, "seq", seq, "size", size)
	}
}

func (p *Pump) sendFrame(seq uint64, taken time.Time, data []byte) (int, error) {
	if p.opts.Mode == proto.ModeTagged {
		env := proto.NewFrameEnvelope(seq, taken, data)
		payload, err := proto.MarshalEnvelope(env)
		if err != nil {
			return 0, err
		}
		return len(payload), p.conn.WriteMessage(payload)
	}
	return len(data), p.conn.WriteMessage(data)
}

func (p *Pump) sendDiagnostic(text string) error {
	if p.opts.Mode == proto.ModeTagged {
		return p.conn.WriteEnvelope(proto.NewDiagnosticEnvelope(text))
	}
	return p.conn.WriteRaw([]byte(text))
}
