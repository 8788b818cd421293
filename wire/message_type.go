package wire

// MessageType identifies the body that follows a Header.
type MessageType uint8

// Message kinds. The bootstrap kinds are TCP-only: spec.md §4.2 requires
// the UDP parser to treat them as fatal if observed.
const (
	MessageInvalid MessageType = iota
	MessageKeepalive
	MessagePublish
	MessageConfirmReq
	MessageConfirmAck
	MessageNodeIDHandshake
	messageBulkPull    // TCP-only bootstrap kind, out of scope for UDP
	messageBulkPush    // TCP-only bootstrap kind, out of scope for UDP
	messageFrontierReq // TCP-only bootstrap kind, out of scope for UDP
)

func (t MessageType) String() string {
	switch t {
	case MessageKeepalive:
		return "keepalive"
	case MessagePublish:
		return "publish"
	case MessageConfirmReq:
		return "confirm_req"
	case MessageConfirmAck:
		return "confirm_ack"
	case MessageNodeIDHandshake:
		return "node_id_handshake"
	case messageBulkPull, messageBulkPush, messageFrontierReq:
		return "bootstrap (tcp-only)"
	default:
		return "invalid"
	}
}

// isBootstrapOnly reports whether t is one of the TCP-only bootstrap
// kinds, unreachable from the UDP parser per spec.md §4.2.
func (t MessageType) isBootstrapOnly() bool {
	return t == messageBulkPull || t == messageBulkPush || t == messageFrontierReq
}

// Message is implemented by every concrete UDP message body.
type Message interface {
	Type() MessageType
	Marshal() []byte
}
