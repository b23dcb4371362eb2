package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/mdns"
	"github.com/mbocsi/lunalink/proto"
)

type AdvertiseOptions struct {
	Instance string // defaults to the hostname
	Port     int
	Mode     proto.Mode
}

// Advertiser announces the rover on the local network so earth can find it
// with --discover.
type Advertiser struct {
	server *mdns.Server
}

func Advertise(opts AdvertiseOptions) (*Advertiser, error) {
	instance := opts.Instance
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "rover"
		}
		instance = host
	}

	txt := []string{"mode=" + string(opts.Mode)}
	service, err := mdns.NewMDNSService(instance, proto.MDNSService, "", "", opts.Port, nil, txt)
	if err != nil {
		return nil, fmt.Errorf("mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("mdns server: %w", err)
	}
	slog.Info("Advertising rover over mDNS", "service", proto.MDNSService, "instance", instance, "port", opts.Port)
	return &Advertiser{server: server}, nil
}

func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}
