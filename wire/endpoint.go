package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// EndpointSize is the packed wire size of an Endpoint: a 16-byte IPv6
// address (IPv4 peers are represented mapped, per spec.md §3) plus a
// big-endian 2-byte port.
const EndpointSize = 18

// Endpoint is a UDP peer address as carried on the wire and used as the
// peer container's primary key.
type Endpoint struct {
	IP   [16]byte
	Port uint16
}

// NewEndpoint builds an Endpoint from a net.IP/port pair, mapping IPv4
// addresses into their IPv6-mapped form so every Endpoint compares equal
// regardless of which family the caller observed the address in.
func NewEndpoint(ip net.IP, port uint16) Endpoint {
	var e Endpoint
	v6 := ip.To16()
	copy(e.IP[:], v6)
	e.Port = port
	return e
}

// IsZero reports whether e is the unspecified address/port pair, used as
// keepalive padding when a peer has fewer than 8 neighbours to share.
func (e Endpoint) IsZero() bool {
	for _, b := range e.IP {
		if b != 0 {
			return false
		}
	}
	return e.Port == 0
}

// Addr returns e as a net.UDPAddr.
func (e Endpoint) Addr() *net.UDPAddr {
	ip := make(net.IP, 16)
	copy(ip, e.IP[:])
	return &net.UDPAddr{IP: ip, Port: int(e.Port)}
}

// String renders e as "[ip]:port"; the IP is always bracketed, IPv4
// addresses included.
func (e Endpoint) String() string {
	return fmt.Sprintf("[%s]:%d", net.IP(e.IP[:]).String(), e.Port)
}

func (e Endpoint) marshalTo(dst []byte) {
	copy(dst[:16], e.IP[:])
	binary.BigEndian.PutUint16(dst[16:18], e.Port)
}

func unmarshalEndpoint(src []byte) Endpoint {
	var e Endpoint
	copy(e.IP[:], src[:16])
	e.Port = binary.BigEndian.Uint16(src[16:18])
	return e
}
