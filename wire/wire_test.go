package wire

import (
	"net"
	"testing"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/vote"
)

func newTestStateBlock(t *testing.T) *block.StateBlock {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	b := &block.StateBlock{
		AccountField:        kp.Public,
		RepresentativeField: kp.Public,
		BalanceField:        numeric.Uint128FromUint64(1000),
	}
	block.Sign(b, kp.Private)
	return b
}

func datagramFor(t *testing.T, msg Message) []byte {
	t.Helper()
	h := NewHeader(MagicTest, msg.Type())
	return append(h.Marshal(), msg.Marshal()...)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader(MagicTest, MessagePublish)
	h.Extensions = ExtensionTelemetryAck
	buf := h.Marshal()
	if len(buf) != HeaderSize {
		t.Fatalf("Marshal() length = %d, want %d", len(buf), HeaderSize)
	}
	got, ok := UnmarshalHeader(buf)
	if !ok {
		t.Fatalf("UnmarshalHeader() failed")
	}
	if got != h {
		t.Fatalf("UnmarshalHeader() = %+v, want %+v", got, h)
	}
}

func TestEndpointRoundTrip(t *testing.T) {
	ip := net.ParseIP("2001:db8::1")
	e := NewEndpoint(ip, 7075)
	buf := make([]byte, EndpointSize)
	e.marshalTo(buf)
	got := unmarshalEndpoint(buf)
	if got != e {
		t.Fatalf("round trip = %+v, want %+v", got, e)
	}
}

func TestParseKeepalive(t *testing.T) {
	k := &Keepalive{}
	k.Peers[0] = NewEndpoint(net.ParseIP("::1"), 1024)
	datagram := datagramFor(t, k)

	_, msg, status := Parse(datagram, MagicTest, nil)
	if status != StatusSuccess {
		t.Fatalf("Parse() status = %v, want success", status)
	}
	got, ok := msg.(*Keepalive)
	if !ok {
		t.Fatalf("Parse() message type = %T, want *Keepalive", msg)
	}
	if got.Peers[0] != k.Peers[0] {
		t.Fatalf("Peers[0] = %+v, want %+v", got.Peers[0], k.Peers[0])
	}
}

func TestParsePublishRoundTrip(t *testing.T) {
	b := newTestStateBlock(t)
	p := &Publish{Block: b}
	datagram := datagramFor(t, p)

	_, msg, status := Parse(datagram, MagicTest, nil)
	if status != StatusSuccess {
		t.Fatalf("Parse() status = %v, want success", status)
	}
	got, ok := msg.(*Publish)
	if !ok {
		t.Fatalf("Parse() message type = %T, want *Publish", msg)
	}
	if got.Block.Hash() != b.Hash() {
		t.Fatalf("round-tripped block hash = %x, want %x", got.Block.Hash(), b.Hash())
	}
}

func TestParseRejectsWrongMagic(t *testing.T) {
	b := newTestStateBlock(t)
	datagram := datagramFor(t, &Publish{Block: b})

	_, _, status := Parse(datagram, MagicLive, nil)
	if status != StatusInvalidHeader {
		t.Fatalf("Parse() status = %v, want invalid_header", status)
	}
}

func TestParseRejectsBootstrapMessageType(t *testing.T) {
	h := NewHeader(MagicTest, MessageType(6)) // messageBulkPull
	datagram := h.Marshal()

	_, _, status := Parse(datagram, MagicTest, nil)
	if status != StatusInvalidMessageType {
		t.Fatalf("Parse() status = %v, want invalid_message_type", status)
	}
}

func TestParseInsufficientWork(t *testing.T) {
	b := newTestStateBlock(t)
	datagram := datagramFor(t, &ConfirmReq{Block: b})

	rejectAll := func(block.Block) bool { return false }
	_, _, status := Parse(datagram, MagicTest, rejectAll)
	if status != StatusInsufficientWork {
		t.Fatalf("Parse() status = %v, want insufficient_work", status)
	}
}

func TestConfirmAckWithMixedRefsRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	b := newTestStateBlock(t)

	v := &vote.Vote{
		Account:  kp.Public,
		Sequence: 42,
		Refs: []vote.Ref{
			{Block: b},
			{Hash: crypto.Hash256([]byte("some other block hash"))},
		},
	}
	v.Sign(kp.Private)
	if !v.Validate() {
		t.Fatalf("vote failed to validate before wire round trip")
	}

	datagram := datagramFor(t, &ConfirmAck{Vote: v})
	_, msg, status := Parse(datagram, MagicTest, nil)
	if status != StatusSuccess {
		t.Fatalf("Parse() status = %v, want success", status)
	}
	ack, ok := msg.(*ConfirmAck)
	if !ok {
		t.Fatalf("Parse() message type = %T, want *ConfirmAck", msg)
	}
	if ack.Vote.Account != v.Account || ack.Vote.Sequence != v.Sequence {
		t.Fatalf("round-tripped vote = %+v, want %+v", ack.Vote, v)
	}
	if len(ack.Vote.Refs) != 2 {
		t.Fatalf("round-tripped vote has %d refs, want 2", len(ack.Vote.Refs))
	}
	if ack.Vote.Refs[0].Block == nil {
		t.Fatalf("first ref should carry a full block")
	}
	if ack.Vote.Refs[1].Block != nil {
		t.Fatalf("second ref should carry only a hash")
	}
	if !ack.Vote.Validate() {
		t.Fatalf("round-tripped vote failed to validate")
	}
}

func TestNodeIDHandshakeQueryAndResponse(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	challenge := crypto.Hash256([]byte("a syn cookie challenge"))
	sig := crypto.Sign(kp.Private, challenge)

	h := &NodeIDHandshake{
		Query: &challenge,
		Response: &HandshakeResponse{
			Account:   kp.Public,
			Signature: sig,
		},
	}
	datagram := datagramFor(t, h)
	_, msg, status := Parse(datagram, MagicTest, nil)
	if status != StatusSuccess {
		t.Fatalf("Parse() status = %v, want success", status)
	}
	got, ok := msg.(*NodeIDHandshake)
	if !ok {
		t.Fatalf("Parse() message type = %T, want *NodeIDHandshake", msg)
	}
	if got.Query == nil || *got.Query != challenge {
		t.Fatalf("round-tripped query = %v, want %x", got.Query, challenge)
	}
	if got.Response == nil || got.Response.Account != kp.Public {
		t.Fatalf("round-tripped response = %+v, want account %x", got.Response, kp.Public)
	}
	if !crypto.Verify(got.Response.Account, *got.Query, got.Response.Signature) {
		t.Fatalf("round-tripped handshake response does not verify the challenge")
	}
}
