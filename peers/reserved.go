// Package peers implements the known-peer container of spec.md §4.3: a
// single mutex-guarded collection indexed by endpoint, IP, recency, and
// representative weight, plus the syn-cookie handshake state that admits
// new peers.
package peers

import "net"

var (
	_, rfc1700Net, _ = net.ParseCIDR("0.0.0.0/8")
	rfc5737Nets      = mustParseCIDRs("192.0.2.0/24", "198.51.100.0/24", "203.0.113.0/24")
	rfc6666Net       = mustParseCIDR("0100::/64")
	rfc3849Net       = mustParseCIDR("2001:db8::/32")
	rfc6890Net       = mustParseCIDR("192.0.0.0/24")

	// Live-network-only reserved ranges: private/shared-address space
	// that is routable on a test net but must never be admitted on the
	// live network (spec.md §4.3).
	rfc1918Nets = mustParseCIDRs("10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16")
	rfc4193Net  = mustParseCIDR("fc00::/7")
	rfc6598Net  = mustParseCIDR("100.64.0.0/10")
)

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

func mustParseCIDRs(ss ...string) []*net.IPNet {
	nets := make([]*net.IPNet, len(ss))
	for i, s := range ss {
		nets[i] = mustParseCIDR(s)
	}
	return nets
}

// IsReserved reports whether ip falls in a reserved/documentation/testnet
// range, a multicast range, or (when liveNet) a private/shared-address
// range that must never be admitted into the live peer set. IsReserved
// does not check loopback; Container.eligible rejects loopback
// separately, via IsLoopback, on every network.
func IsReserved(ip net.IP, liveNet bool) bool {
	if ip == nil {
		return true
	}
	if ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	if rfc1700Net.Contains(ip) || rfc6666Net.Contains(ip) || rfc3849Net.Contains(ip) || rfc6890Net.Contains(ip) {
		return true
	}
	for _, n := range rfc5737Nets {
		if n.Contains(ip) {
			return true
		}
	}
	if liveNet {
		if rfc4193Net.Contains(ip) || rfc6598Net.Contains(ip) {
			return true
		}
		for _, n := range rfc1918Nets {
			if n.Contains(ip) {
				return true
			}
		}
	}
	return false
}

// IsLoopback reports whether ip is a loopback address.
func IsLoopback(ip net.IP) bool {
	return ip.IsLoopback()
}
