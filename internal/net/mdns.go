package net

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// Advertise announces the change feed on the local network. The TXT record
// carries the websocket path and this process's site id.
func Advertise(instance, service string, port int, info []string) (*mdns.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}

	svc, err := mdns.NewMDNSService(
		instance,
		service,
		"", // .local
		"", // OS hostname
		port,
		[]net.IP{LocalIPv4()},
		info,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Feed is a change feed found on the network.
type Feed struct {
	Instance string
	Addr     string
	Info     []string
}

// Browse looks for feeds of the given service type for up to timeout.
func Browse(service string, timeout time.Duration) ([]Feed, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan []Feed)
	go func() {
		var feeds []Feed
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			feeds = append(feeds, Feed{
				Instance: strings.TrimSuffix(e.Name, "."),
				Addr:     fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port),
				Info:     e.InfoFields,
			})
		}
		done <- feeds
	}()

	params := mdns.DefaultParams(service)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	feeds := <-done
	if err != nil {
		return feeds, fmt.Errorf("mDNS query: %w", err)
	}
	return feeds, nil
}
