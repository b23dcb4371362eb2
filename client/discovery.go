package client

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/mbocsi/lunalink/proto"
)

// DiscoveredRover is a rover found over mDNS.
type DiscoveredRover struct {
	ServiceName string
	Address     string
	Port        int
	Mode        proto.Mode // from the "mode=" TXT record, raw if absent
	TXTRecords  []string
}

func (d *DiscoveredRover) Addr() string {
	return net.JoinHostPort(strings.Trim(d.Address, "[]"), strconv.Itoa(d.Port))
}

// Discover returns the first rover that answers within timeout.
func Discover(timeout time.Duration) (*DiscoveredRover, error) {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	entriesCh := make(chan *mdns.ServiceEntry, 4)

	// Start discovery in background
	go func() {
		defer close(entriesCh)
		params := mdns.DefaultParams(proto.MDNSService)
		params.Entries = entriesCh
		params.Timeout = timeout
		params.DisableIPv6 = true
		if err := mdns.Query(params); err != nil {
			slog.Warn("mDNS query failed", "error", err)
		}
	}()

	// Wait for first result or timeout
	select {
	case entry := <-entriesCh:
		if entry == nil {
			return nil, fmt.Errorf("no %s service found", proto.MDNSService)
		}
		return rover(entry)

	case <-time.After(timeout):
		return nil, fmt.Errorf("mDNS discovery timeout for %s", proto.MDNSService)
	}
}

func rover(entry *mdns.ServiceEntry) (*DiscoveredRover, error) {
	var address string
	if entry.AddrV4 != nil {
		address = entry.AddrV4.String()
	} else if entry.AddrV6 != nil {
		address = fmt.Sprintf("[%s]", entry.AddrV6.String())
	} else {
		return nil, fmt.Errorf("no valid address found for service")
	}

	d := &DiscoveredRover{
		ServiceName: entry.Name,
		Address:     address,
		Port:        entry.Port,
		Mode:        proto.ModeRaw,
		TXTRecords:  entry.InfoFields,
	}
	for _, field := range entry.InfoFields {
		if v, ok := strings.CutPrefix(field, "mode="); ok {
			if mode, err := proto.ParseMode(v); err == nil {
				d.Mode = mode
			}
		}
	}

	slog.Info("Discovered rover",
		"service_name", d.ServiceName,
		"address", d.Address,
		"port", d.Port,
		"mode", d.Mode,
	)
	return d, nil
}
