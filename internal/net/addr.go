package net

import (
	"log/slog"
	"net"
)

// LocalIPv4 picks the address other machines should use to reach this
// process: the source address of the default route when there is one,
// otherwise the first IPv4 address on an up, non-loopback interface, and
// loopback as a last resort.
func LocalIPv4() net.IP {
	// UDP dial sends nothing; it only asks the kernel for a route
	if conn, err := net.Dial("udp4", "8.8.8.8:80"); err == nil {
		defer conn.Close()
		if a, ok := conn.LocalAddr().(*net.UDPAddr); ok && a.IP.To4() != nil {
			return a.IP.To4()
		}
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		slog.Warn("listing interfaces", "error", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	slog.Warn("no routable IPv4 address, feed links will use loopback")
	return net.IPv4(127, 0, 0, 1).To4()
}
