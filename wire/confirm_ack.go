package wire

import "github.com/chratos-network/chratos/vote"

// ConfirmAck carries a vote. spec.md §3: "a confirm_ack carries a vote;
// the vote's block list is heterogeneous (full blocks or hashes)."
type ConfirmAck struct {
	Vote *vote.Vote
}

// Type implements Message.
func (c *ConfirmAck) Type() MessageType { return MessageConfirmAck }

// Marshal implements Message.
func (c *ConfirmAck) Marshal() []byte {
	return marshalVote(nil, c.Vote)
}

func unmarshalConfirmAck(body []byte) (*ConfirmAck, bool) {
	v, _, ok := unmarshalVote(body)
	if !ok {
		return nil, false
	}
	return &ConfirmAck{Vote: v}, true
}
