package config

import (
	"net"
	"net/netip"
	"strings"
)

// cgnat covers carrier-grade NAT and overlay VPNs such as Tailscale and WARP.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

var tunnelPrefixes = []string{"tun", "tap", "wg", "ppp", "warp", "utun"}

// RestrictedNetwork reports whether an active interface looks like a VPN
// tunnel or sits behind CGNAT, where direct peer connections rarely work.
func RestrictedNetwork() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if isTunnelName(iface.Name) {
			return true
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if inCGNAT(addr) {
				return true
			}
		}
	}
	return false
}

// UseRelayOnly reports whether peer connections should be limited to TURN.
func (c *Config) UseRelayOnly() bool {
	if c.GetTURNServers() == nil {
		return false
	}
	return c.ICE.ForceRelay || RestrictedNetwork()
}

func isTunnelName(name string) bool {
	name = strings.ToLower(name)
	for _, p := range tunnelPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func inCGNAT(addr net.Addr) bool {
	var ip net.IP
	switch v := addr.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	default:
		return false
	}

	a, ok := netip.AddrFromSlice(ip)
	return ok && cgnat.Contains(a.Unmap())
}
