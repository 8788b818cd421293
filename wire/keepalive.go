package wire

// KeepalivePeerCount is the fixed number of peer endpoints a keepalive
// frame carries. spec.md §3: "A keepalive carries a fixed array of 8 peer
// endpoints (v6; unspecified padding allowed)."
const KeepalivePeerCount = 8

// Keepalive announces up to KeepalivePeerCount neighbours. Unused slots
// are the zero Endpoint.
type Keepalive struct {
	Peers [KeepalivePeerCount]Endpoint
}

// Type implements Message.
func (k *Keepalive) Type() MessageType { return MessageKeepalive }

// Marshal implements Message.
func (k *Keepalive) Marshal() []byte {
	buf := make([]byte, KeepalivePeerCount*EndpointSize)
	for i, p := range k.Peers {
		p.marshalTo(buf[i*EndpointSize:])
	}
	return buf
}

func unmarshalKeepalive(body []byte) (*Keepalive, bool) {
	if len(body) < KeepalivePeerCount*EndpointSize {
		return nil, false
	}
	k := &Keepalive{}
	for i := range k.Peers {
		k.Peers[i] = unmarshalEndpoint(body[i*EndpointSize:])
	}
	return k, true
}
