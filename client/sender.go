package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mbocsi/lunalink/proto"
)

// Sender forwards operator commands to the rover, each one held back by the
// link latency. Commands are written as bare tokens with no delimiter.
type Sender struct {
	conn     *proto.Conn
	operator Operator
	latency  time.Duration
	sent     atomic.Uint64
}

func NewSender(conn *proto.Conn, operator Operator, latency time.Duration) *Sender {
	return &Sender{conn: conn, operator: operator, latency: latency}
}

// Run returns after STOP has been sent, when ctx is cancelled, or when the
// connection fails. An operator that runs dry is treated as if it typed STOP.
func (s *Sender) Run(ctx context.Context) error {
	for {
		line, err := s.operator.ReadCommand(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("read command: %w", err)
			}
			slog.Info("Operator input closed, stopping the link")
			line = string(proto.CommandStop)
		}

		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}
		if !proto.Command(cmd).Known() {
			slog.Warn("Unknown command, sending anyway", "command", cmd)
		}

		if !proto.Delay(ctx, s.latency) {
			return nil
		}
		if err := s.conn.WriteRaw([]byte(cmd)); err != nil {
			if ctx.Err() != nil || errors.Is(err, proto.ErrConnectionClosed) {
				slog.Info("Connection closed before command was sent", "command", cmd)
				return nil
			}
			return fmt.Errorf("send %s: %w", cmd, err)
		}
		s.sent.Add(1)
		slog.Info("Command sent", "command", cmd)

		if proto.Command(cmd) == proto.CommandStop {
			return nil
		}
	}
}

func (s *Sender) Sent() uint64 {
	return s.sent.Load()
}
