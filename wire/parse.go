package wire

import "github.com/chratos-network/chratos/block"

// ParseStatus is the outcome of parsing one UDP datagram, replacing
// exception-based error flow per spec.md §9 ("parse -> ParseStatus").
type ParseStatus uint8

const (
	StatusSuccess ParseStatus = iota
	StatusInsufficientWork
	StatusInvalidHeader
	StatusInvalidMessageType
	StatusInvalidKeepaliveMessage
	StatusInvalidPublishMessage
	StatusInvalidConfirmReqMessage
	StatusInvalidConfirmAckMessage
	StatusInvalidNodeIDHandshakeMessage
)

func (s ParseStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInsufficientWork:
		return "insufficient_work"
	case StatusInvalidHeader:
		return "invalid_header"
	case StatusInvalidMessageType:
		return "invalid_message_type"
	case StatusInvalidKeepaliveMessage:
		return "invalid_keepalive_message"
	case StatusInvalidPublishMessage:
		return "invalid_publish_message"
	case StatusInvalidConfirmReqMessage:
		return "invalid_confirm_req_message"
	case StatusInvalidConfirmAckMessage:
		return "invalid_confirm_ack_message"
	case StatusInvalidNodeIDHandshakeMessage:
		return "invalid_node_id_handshake_message"
	default:
		return "unknown"
	}
}

// WorkValidator checks a block's attached proof-of-work against the
// threshold appropriate for its root. Parse calls it for publish and
// confirm_req bodies, since spec.md §4.2 folds insufficient_work into the
// parse outcome rather than deferring it to the block processor.
type WorkValidator func(root block.Block) bool

// Parse decodes one UDP datagram into its Header and typed Message body,
// reporting the ParseStatus the caller should both act on and record via
// RecordParseStatus.
func Parse(datagram []byte, expectedMagic NetworkMagic, validateWork WorkValidator) (Header, Message, ParseStatus) {
	header, ok := UnmarshalHeader(datagram)
	if !ok || header.Magic != expectedMagic || header.VersionUsing < header.VersionMin {
		return Header{}, nil, StatusInvalidHeader
	}
	body := datagram[HeaderSize:]

	switch header.MessageType {
	case MessageKeepalive:
		k, ok := unmarshalKeepalive(body)
		if !ok {
			return header, nil, StatusInvalidKeepaliveMessage
		}
		return header, k, StatusSuccess

	case MessagePublish:
		p, ok := unmarshalPublish(body)
		if !ok {
			return header, nil, StatusInvalidPublishMessage
		}
		if validateWork != nil && !validateWork(p.Block) {
			return header, p, StatusInsufficientWork
		}
		return header, p, StatusSuccess

	case MessageConfirmReq:
		c, ok := unmarshalConfirmReq(body)
		if !ok {
			return header, nil, StatusInvalidConfirmReqMessage
		}
		if validateWork != nil && !validateWork(c.Block) {
			return header, c, StatusInsufficientWork
		}
		return header, c, StatusSuccess

	case MessageConfirmAck:
		c, ok := unmarshalConfirmAck(body)
		if !ok {
			return header, nil, StatusInvalidConfirmAckMessage
		}
		return header, c, StatusSuccess

	case MessageNodeIDHandshake:
		h, ok := unmarshalNodeIDHandshake(body)
		if !ok {
			return header, nil, StatusInvalidNodeIDHandshakeMessage
		}
		return header, h, StatusSuccess

	default:
		// Bootstrap kinds are TCP-only; seeing one over UDP is as fatal
		// as any other unrecognised message_type (spec.md §4.2).
		return header, nil, StatusInvalidMessageType
	}
}
