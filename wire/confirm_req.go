package wire

import "github.com/chratos-network/chratos/block"

// ConfirmReq asks the receiving peer to vote on (or acknowledge its view
// of) the carried block. spec.md §3: "A confirm_req carries one block."
type ConfirmReq struct {
	Block block.Block
}

// Type implements Message.
func (c *ConfirmReq) Type() MessageType { return MessageConfirmReq }

// Marshal implements Message.
func (c *ConfirmReq) Marshal() []byte {
	return marshalBlock(nil, c.Block)
}

func unmarshalConfirmReq(body []byte) (*ConfirmReq, bool) {
	b, _, ok := unmarshalBlock(body)
	if !ok {
		return nil, false
	}
	return &ConfirmReq{Block: b}, true
}
