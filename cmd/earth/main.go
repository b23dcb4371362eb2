package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/mbocsi/lunalink/client"
	"github.com/mbocsi/lunalink/config"
	"github.com/mbocsi/lunalink/media"
	lunamcp "github.com/mbocsi/lunalink/mcp"
	"github.com/mbocsi/lunalink/web"
)

const version = "0.1.0"

func main() {
	cfg, _, err := config.Parse("earth", os.Args[1:], (*config.Config).BindEarthFlags)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	config.SetupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Earth stopped", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	addr, mode := cfg.Earth.Connect, cfg.WireMode()
	if cfg.Earth.Discover {
		found, err := client.Discover(cfg.Earth.DiscoverTimeout)
		if err != nil {
			return err
		}
		addr = found.Addr()
		if found.Mode != mode {
			slog.Warn("Rover advertises a different wire mode, following it", "configured", mode, "advertised", found.Mode)
			mode = found.Mode
		}
	}

	display, viewer, err := newDisplay(cfg)
	if err != nil {
		return err
	}

	var c *client.Client
	stats := func() any { return c.Stats() }

	operator, mcpServer, err := newOperator(cfg, stats)
	if err != nil {
		return err
	}

	c = client.NewClient(client.NewTCPTransport(), client.ClientOptions{
		Latency:        cfg.Link.Latency,
		Mode:           mode,
		MaxMessageSize: cfg.Link.MaxMessageSize,
		Display:        display,
		Operator:       operator,
	})

	if viewer != nil {
		viewer.SetStats(stats)
		go func() {
			if err := viewer.Start(); err != nil {
				slog.Error("Web viewer stopped", "error", err.Error())
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := viewer.Shutdown(shutdownCtx); err != nil {
				slog.Error("There was an error when shutting down the web viewer", "error", err.Error())
			}
		}()
		slog.Info("Open the viewer in a browser", "url", "http://"+cfg.Earth.WebAddr)
	}

	if mcpServer != nil {
		go func() {
			if err := mcpServer.Run(); err != nil {
				slog.Error("MCP server stopped", "error", err.Error())
			}
		}()
	}

	if err := c.Connect(addr); err != nil {
		return err
	}
	return c.Run(ctx)
}

func newDisplay(cfg *config.Config) (media.Display, *web.Viewer, error) {
	switch cfg.Earth.Display {
	case "dir":
		d, err := media.NewDirDisplay(cfg.Earth.OutputDir, cfg.Earth.SaveQuality)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Saving frames", "dir", cfg.Earth.OutputDir)
		return d, nil, nil
	case "web":
		v := web.NewViewer(cfg.Earth.WebAddr)
		return v, v, nil
	default:
		return &media.LogDisplay{}, nil, nil
	}
}

func newOperator(cfg *config.Config, stats func() any) (client.Operator, *lunamcp.MCPServer, error) {
	switch cfg.Earth.Operator {
	case "script":
		steps, err := client.ParseScript(cfg.Earth.Script)
		if err != nil {
			return nil, nil, err
		}
		return client.NewScriptOperator(steps), nil, nil
	case "mcp":
		s := lunamcp.NewMCPServer("lunalink-earth", version)
		return client.NewMCPOperator(s, stats), s, nil
	default:
		return client.NewStdinOperator(), nil, nil
	}
}
