package transport

import "github.com/chratos-network/chratos/wire"

// dispatch parses datagram and routes it to the matching Handlers entry.
// Grounded on wire.Parse being the single datagram-to-typed-message entry
// point (spec.md §2: "UDP datagram -> parse -> message visitor
// dispatch"); every outcome, including every parse failure, is recorded
// via wire.RecordParseStatus for observability.
func (t *Transport) dispatch(datagram []byte, sender wire.Endpoint) {
	_, msg, status := wire.Parse(datagram, t.magic, t.validateWork)
	wire.RecordParseStatus(status)

	if status != wire.StatusSuccess {
		t.log.WithField("status", status.String()).WithField("peer", sender.String()).Debug("dropped datagram")
		return
	}

	switch m := msg.(type) {
	case *wire.Keepalive:
		if t.handlers.OnKeepalive != nil {
			t.handlers.OnKeepalive(sender, *m)
		}
	case *wire.Publish:
		if t.handlers.OnPublish != nil {
			t.handlers.OnPublish(sender, *m)
		}
	case *wire.ConfirmReq:
		if t.handlers.OnConfirmReq != nil {
			t.handlers.OnConfirmReq(sender, *m)
		}
	case *wire.ConfirmAck:
		if t.handlers.OnConfirmAck != nil {
			t.handlers.OnConfirmAck(sender, *m)
		}
	case *wire.NodeIDHandshake:
		if t.handlers.OnHandshake != nil {
			t.handlers.OnHandshake(sender, *m)
		}
	}
}
