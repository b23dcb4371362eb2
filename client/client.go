package client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mbocsi/lunalink/media"
	"github.com/mbocsi/lunalink/proto"
	"golang.org/x/sync/errgroup"
)

type ClientOptions struct {
	Latency        time.Duration
	Mode           proto.Mode
	MaxMessageSize uint32      // 0 means no cap
	Codec          media.Codec // Optional (defaults to JPEG)
	Display        media.Display
	Operator       Operator
}

// Client is the earth side of the link: a command sender and a frame
// receiver sharing one connection.
type Client struct {
	transport Transport
	opts      ClientOptions

	sender   *Sender
	receiver *Receiver
}

func NewClient(t Transport, opts ClientOptions) *Client {
	if opts.Codec == nil {
		opts.Codec = media.NewJPEGCodec(media.DefaultQuality)
	}
	if opts.Display == nil {
		opts.Display = &media.LogDisplay{}
	}
	if opts.Mode == "" {
		opts.Mode = proto.ModeRaw
	}
	return &Client{transport: t, opts: opts}
}

func (c *Client) Connect(addr string) error {
	if err := c.transport.Connect(addr); err != nil {
		return err
	}
	conn := c.transport.Conn()
	c.sender = NewSender(conn, c.opts.Operator, c.opts.Latency)
	c.receiver = NewReceiver(conn, c.opts.Codec, c.opts.Display, c.opts.Mode, c.opts.MaxMessageSize)
	slog.Info("Connected to rover", "addr", addr, "mode", c.opts.Mode, "latency", c.opts.Latency)
	return nil
}

// Run drives both halves until the rover hangs up, the viewer quits, or ctx
// is cancelled. When the receiver finishes the connection is closed and the
// sender is cancelled; when the sender finishes the receiver keeps draining
// until the rover closes the link.
func (c *Client) Run(ctx context.Context) error {
	if c.sender == nil || c.receiver == nil {
		return errors.New("client is not connected")
	}
	if c.opts.Operator == nil {
		return errors.New("client has no operator")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		c.transport.Close()
		return nil
	})
	g.Go(func() error {
		return c.sender.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return c.receiver.Run(gctx)
	})

	err := g.Wait()
	if errors.Is(err, proto.ErrConnectionClosed) {
		err = nil
	}
	stats := c.Stats()
	slog.Info("Link closed", "commands_sent", stats.CommandsSent, "frames_shown", stats.FramesShown, "frames_dropped", stats.FramesDropped, "diagnostics", stats.Diagnostics)
	return err
}

type Stats struct {
	CommandsSent  uint64 `json:"commands_sent"`
	FramesShown   uint64 `json:"frames_shown"`
	FramesDropped uint64 `json:"frames_dropped"`
	Diagnostics   uint64 `json:"diagnostics"`
}

func (c *Client) Stats() Stats {
	var s Stats
	if c.sender != nil {
		s.CommandsSent = c.sender.Sent()
	}
	if c.receiver != nil {
		r := c.receiver.Stats()
		s.FramesShown, s.FramesDropped, s.Diagnostics = r.Shown, r.Dropped, r.Diagnostics
	}
	return s
}
