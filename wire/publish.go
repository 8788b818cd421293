package wire

import "github.com/chratos-network/chratos/block"

// Publish carries one block, gossiped without the sender expecting a
// direct reply. spec.md §3: "A publish carries one block."
type Publish struct {
	Block block.Block
}

// Type implements Message.
func (p *Publish) Type() MessageType { return MessagePublish }

// Marshal implements Message.
func (p *Publish) Marshal() []byte {
	return marshalBlock(nil, p.Block)
}

func unmarshalPublish(body []byte) (*Publish, bool) {
	b, _, ok := unmarshalBlock(body)
	if !ok {
		return nil, false
	}
	return &Publish{Block: b}, true
}
