package server

import (
	"context"

	"github.com/mbocsi/lunalink/media"
	lunamcp "github.com/mbocsi/lunalink/mcp"
)

type Server interface {
	Start(ctx context.Context) error
}

type RoverServerOptions struct {
	Camera     media.Camera        // Required
	Codec      media.Codec         // Optional (defaults to JPEG at quality 50)
	Link       LinkOptions         // Latency, resolution, wire mode, read chunk
	Registry   *ConnectionRegistry // Optional (defaults to new Registry if nil)
	MCPServer  *lunamcp.MCPServer  // Optional MCP server to run alongside
	StatusAddr string              // Optional HTTP status API address
	Advertise  *AdvertiseOptions   // Optional mDNS advertisement
}

type RoverServer struct {
	options     RoverServerOptions
	coordinator *Coordinator
}

func NewRoverServer(opts RoverServerOptions) *RoverServer {
	if opts.Codec == nil {
		opts.Codec = media.NewJPEGCodec(media.DefaultQuality)
	}
	if opts.Camera == nil {
		opts.Camera = media.NoCamera{}
	}
	if opts.Registry == nil {
		opts.Registry = NewConnectionRegistry()
	}

	coordinator := NewCoordinator(opts.Registry, opts.MCPServer, opts.Camera, opts.Codec, opts.Link)
	coordinator.statusAddr = opts.StatusAddr
	coordinator.advertise = opts.Advertise

	return &RoverServer{
		options:     opts,
		coordinator: coordinator,
	}
}

func (s *RoverServer) RegisterTransport(t Transport) {
	s.coordinator.RegisterTransport(t)
}

func (s *RoverServer) GetRegistry() *ConnectionRegistry {
	return s.coordinator.Registry
}

// Start blocks until ctx is cancelled or a transport fails.
func (s *RoverServer) Start(ctx context.Context) error {
	return s.coordinator.Start(ctx)
}
