package wire

import "github.com/chratos-network/chratos/numeric"

const (
	handshakeFlagQuery    byte = 1 << 0
	handshakeFlagResponse byte = 1 << 1
)

// HandshakeResponse answers a syn-cookie challenge: the responder's node
// identity and its signature over the challenge it was given.
type HandshakeResponse struct {
	Account   numeric.Uint256
	Signature numeric.Uint512
}

// NodeIDHandshake implements the peer container's syn-cookie exchange
// (spec.md §4.3 assign_syn_cookie / validate_syn_cookie) on the wire. A
// frame may carry a Query (issuing a challenge to the peer), a Response
// (answering a challenge this node was previously issued), or both.
type NodeIDHandshake struct {
	Query    *numeric.Uint256
	Response *HandshakeResponse
}

// Type implements Message.
func (h *NodeIDHandshake) Type() MessageType { return MessageNodeIDHandshake }

// Marshal implements Message.
func (h *NodeIDHandshake) Marshal() []byte {
	var flags byte
	if h.Query != nil {
		flags |= handshakeFlagQuery
	}
	if h.Response != nil {
		flags |= handshakeFlagResponse
	}
	buf := []byte{flags}
	if h.Query != nil {
		buf = append(buf, h.Query.Bytes()...)
	}
	if h.Response != nil {
		buf = append(buf, h.Response.Account.Bytes()...)
		buf = append(buf, h.Response.Signature.Bytes()...)
	}
	return buf
}

func unmarshalNodeIDHandshake(body []byte) (*NodeIDHandshake, bool) {
	if len(body) < 1 {
		return nil, false
	}
	flags := body[0]
	off := 1
	h := &NodeIDHandshake{}

	if flags&handshakeFlagQuery != 0 {
		if off+32 > len(body) {
			return nil, false
		}
		var q numeric.Uint256
		q, off = readUint256(body, off)
		h.Query = &q
	}
	if flags&handshakeFlagResponse != 0 {
		if off+32+64 > len(body) {
			return nil, false
		}
		var resp HandshakeResponse
		resp.Account, off = readUint256(body, off)
		resp.Signature, off = readUint512(body, off)
		h.Response = &resp
	}
	if h.Query == nil && h.Response == nil {
		return nil, false
	}
	return h, true
}
