package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/mbocsi/lunalink/media"
	lunamcp "github.com/mbocsi/lunalink/mcp"
)

type LinkOptions struct {
	Pump      PumpOptions
	ReadChunk int
}

type Coordinator struct {
	Registry   *ConnectionRegistry
	MCPServer  *lunamcp.MCPServer
	Transports []Transport

	camera media.Camera
	codec  media.Codec
	link   LinkOptions

	statusAddr string
	advertise  *AdvertiseOptions
}

func NewCoordinator(registry *ConnectionRegistry, mcpServer *lunamcp.MCPServer, camera media.Camera, codec media.Codec, link LinkOptions) *Coordinator {
	c := &Coordinator{Registry: registry, MCPServer: mcpServer, camera: camera, codec: codec, link: link}
	if mcpServer != nil {
		c.registerTools(mcpServer)
	}
	return c
}

func (c *Coordinator) Start(ctx context.Context) error {
	if c.MCPServer != nil {
		go func() {
			if err := c.MCPServer.Run(); err != nil {
				slog.Error("MCP server stopped", "error", err.Error())
			}
		}()
	}

	errCh := make(chan error, len(c.Transports)+1)
	for _, t := range c.Transports {
		go func(t Transport) {
			if err := t.Start(); err != nil && !errors.Is(err, net.ErrClosed) {
				errCh <- fmt.Errorf("transport %s: %w", t.Meta().ID, err)
			}
		}(t)
	}

	var status *http.Server
	if c.statusAddr != "" {
		status = &http.Server{Addr: c.statusAddr, Handler: c.Routes()}
		go func() {
			slog.Info("Starting status API", "addr", c.statusAddr)
			if err := status.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("status api: %w", err)
			}
		}()
	}

	var advertiser *Advertiser
	if c.advertise != nil {
		var err error
		if advertiser, err = Advertise(*c.advertise); err != nil {
			slog.Warn("mDNS advertisement failed", "error", err.Error())
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		slog.Error("Rover component failed", "error", runErr.Error())
	}
	slog.Info("Shutting down transports and server")

	if advertiser != nil {
		if err := advertiser.Shutdown(); err != nil {
			slog.Error("There was an error when shutting down mDNS", "error", err.Error())
		}
	}
	if status != nil {
		if err := status.Close(); err != nil {
			slog.Error("There was an error when shutting down status API", "error", err.Error())
		}
	}
	for _, t := range c.Transports {
		if err := t.Shutdown(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Error("There was an error when shutting down transport server", "error", err.Error())
		}
	}
	return runErr
}

func (c *Coordinator) RegisterTransport(t Transport) {
	t.OnConnect(c.RegisterConnection)
	t.OnDisconnect(func(conn *Connection) { c.Registry.Delete(conn.Id) })
	t.OnServe(c.Serve)
	c.Transports = append(c.Transports, t)
}

func (c *Coordinator) RegisterConnection(conn *Connection) error {
	c.Registry.Store(conn)
	slog.Info("Registered connection", "id", conn.Id, "addr", conn.RemoteAddr())
	return nil
}

// Serve runs the command dispatcher for conn until the session ends.
func (c *Coordinator) Serve(ctx context.Context, conn *Connection) {
	NewDispatcher(conn, c.camera, c.codec, c.link.Pump, c.link.ReadChunk).Run(ctx)
}
