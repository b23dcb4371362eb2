package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/mbocsi/lunalink/config"
	"github.com/mbocsi/lunalink/media"
	lunamcp "github.com/mbocsi/lunalink/mcp"
	"github.com/mbocsi/lunalink/server"
)

const version = "0.1.0"

func main() {
	cfg, _, err := config.Parse("rover", os.Args[1:], (*config.Config).BindRoverFlags)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	config.SetupLogger(cfg.Log)

	camera, err := media.NewCamera(cfg.Rover.Camera.Device)
	if err != nil {
		slog.Error("Invalid camera", "error", err.Error())
		os.Exit(2)
	}

	var mcpServer *lunamcp.MCPServer
	if cfg.Rover.MCP {
		mcpServer = lunamcp.NewMCPServer("lunalink-rover", version)
	}

	var advertise *server.AdvertiseOptions
	if cfg.Rover.Advertise {
		port, err := listenPort(cfg.Rover.Listen)
		if err != nil {
			slog.Error("Cannot advertise rover", "listen", cfg.Rover.Listen, "error", err.Error())
			os.Exit(2)
		}
		advertise = &server.AdvertiseOptions{Port: port, Mode: cfg.WireMode()}
	}

	rover := server.NewRoverServer(server.RoverServerOptions{
		Camera: camera,
		Codec:  media.NewJPEGCodec(cfg.Rover.JPEGQuality),
		Link: server.LinkOptions{
			Pump: server.PumpOptions{
				Latency: cfg.Link.Latency,
				Width:   cfg.Rover.Camera.Width,
				Height:  cfg.Rover.Camera.Height,
				Mode:    cfg.WireMode(),
			},
			ReadChunk: cfg.Link.ReadChunk,
		},
		MCPServer:  mcpServer,
		StatusAddr: cfg.Rover.StatusAddr,
		Advertise:  advertise,
	})

	tcpServer := server.NewTCPTransport(cfg.Rover.Listen)
	tcpServer.SetName("Rover link")
	tcpServer.SetMaxClients(cfg.Rover.MaxClients)
	tcpServer.SetDescription("Earth commands in, video frames out")
	rover.RegisterTransport(tcpServer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting rover", "version", version, "camera", cfg.Rover.Camera.Device, "mode", cfg.Link.Mode, "latency", cfg.Link.Latency)
	if err := rover.Start(ctx); err != nil {
		slog.Error("Rover stopped", "error", err.Error())
		os.Exit(1)
	}
}

func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("listen address needs a fixed port to advertise")
	}
	return port, nil
}
