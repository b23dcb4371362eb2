package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mbocsi/lunalink/media"
	"github.com/mbocsi/lunalink/proto"
)

// Receiver reads frames from the rover, decodes them and hands them to the
// display. A frame that fails to decode is dropped and the stream goes on.
type Receiver struct {
	conn    *proto.Conn
	codec   media.Codec
	display media.Display
	mode    proto.Mode
	max     uint32

	shown       atomic.Uint64
	dropped     atomic.Uint64
	diagnostics atomic.Uint64
}

func NewReceiver(conn *proto.Conn, codec media.Codec, display media.Display, mode proto.Mode, maxMessageSize uint32) *Receiver {
	return &Receiver{conn: conn, codec: codec, display: display, mode: mode, max: maxMessageSize}
}

// Run returns nil when the rover closes the link, the display asks to quit,
// or ctx is cancelled.
func (r *Receiver) Run(ctx context.Context) error {
	var seq uint64
	for ctx.Err() == nil {
		env, err := r.next()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, proto.ErrConnectionClosed):
				slog.Info("Rover closed the connection")
				return nil
			case errors.Is(err, media.ErrDecode):
				r.dropped.Add(1)
				slog.Warn("Dropping malformed message", "error", err)
				continue
			}
			return fmt.Errorf("receive: %w", err)
		}

		if env.Kind == proto.KindDiagnostic {
			r.diagnostics.Add(1)
			slog.Warn("Rover reported a problem", "message", env.Text)
			continue
		}

		seq++
		if env.Seq != 0 {
			seq = env.Seq
		}
		img, err := r.codec.Decode(env.Data)
		if err != nil {
			r.dropped.Add(1)
			slog.Warn("Dropping frame that failed to decode", "seq", seq, "size", len(env.Data), "error", err)
			continue
		}

		frame := media.Frame{Seq: seq, Image: img, Encoded: env.Data, Received: time.Now()}
		if env.Taken != 0 {
			frame.Latency = frame.Received.Sub(env.TakenAt())
		}
		if err := r.display.Show(frame); err != nil {
			slog.Warn("Display failed", "seq", seq, "error", err)
		} else {
			r.shown.Add(1)
		}

		if r.display.QuitRequested() {
			slog.Info("Viewer asked to quit")
			return nil
		}
	}
	return nil
}

func (r *Receiver) next() (proto.Envelope, error) {
	if r.mode == proto.ModeTagged {
		payload, err := r.conn.ReadMessage(r.max)
		if err != nil {
			return proto.Envelope{}, err
		}
		env, err := proto.UnmarshalEnvelope(payload)
		if err != nil {
			return proto.Envelope{}, fmt.Errorf("%w: %w", media.ErrDecode, err)
		}
		return env, nil
	}

	if text, ok, err := r.peekDiagnostic(); err != nil {
		return proto.Envelope{}, err
	} else if ok {
		return proto.Envelope{Kind: proto.KindDiagnostic, Text: text}, nil
	}
	payload, err := r.conn.ReadMessage(r.max)
	if err != nil {
		return proto.Envelope{}, err
	}
	return proto.Envelope{Kind: proto.KindFrame, Data: payload}, nil
}

// peekDiagnostic recognises the unframed diagnostic text. Read as a length
// header its first four bytes declare over a gigabyte, which no frame
// reaches, so it cannot be mistaken for the start of a frame.
func (r *Receiver) peekDiagnostic() (string, bool, error) {
	text := proto.DiagnosticCameraUnavailable
	head, err := r.conn.Peek(proto.HeaderSize)
	if err != nil {
		return "", false, err
	}
	if string(head) != text[:proto.HeaderSize] {
		return "", false, nil
	}
	full, err := r.conn.Peek(len(text))
	if err != nil {
		return "", false, err
	}
	if string(full) != text {
		return "", false, nil
	}
	if err := r.conn.Discard(len(text)); err != nil {
		return "", false, err
	}
	return text, true, nil
}

type ReceiverStats struct {
	Shown       uint64 `json:"shown"`
	Dropped     uint64 `json:"dropped"`
	Diagnostics uint64 `json:"diagnostics"`
}

func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		Shown:       r.shown.Load(),
		Dropped:     r.dropped.Load(),
		Diagnostics: r.diagnostics.Load(),
	}
}
