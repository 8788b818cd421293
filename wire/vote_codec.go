package wire

import (
	"github.com/chratos-network/chratos/numeric"
	"github.com/chratos-network/chratos/vote"
)

const (
	refTagHash  byte = 0
	refTagBlock byte = 1
)

// marshalVote appends v's packed wire encoding to dst: account(32) +
// sequence(8) + signature(64) + ref_count(1) + refs, where each ref is a
// tag byte followed by either a 32-byte hash or a tagged block.
func marshalVote(dst []byte, v *vote.Vote) []byte {
	dst = append(dst, v.Account.Bytes()...)
	dst = appendUint64(dst, v.Sequence)
	dst = append(dst, v.Signature.Bytes()...)
	dst = append(dst, byte(len(v.Refs)))
	for _, r := range v.Refs {
		if r.Block != nil {
			dst = append(dst, refTagBlock)
			dst = marshalBlock(dst, r.Block)
		} else {
			dst = append(dst, refTagHash)
			dst = append(dst, r.Hash.Bytes()...)
		}
	}
	return dst
}

// unmarshalVote parses a vote from the front of src, returning the vote
// and the number of bytes consumed.
func unmarshalVote(src []byte) (*vote.Vote, int, bool) {
	const fixed = 32 + 8 + 64 + 1
	if len(src) < fixed {
		return nil, 0, false
	}
	v := &vote.Vote{}
	off := 0
	v.Account, off = readUint256(src, off)
	v.Sequence, off = readUint64(src, off)
	v.Signature, off = readUint512(src, off)
	count := int(src[off])
	off++

	for i := 0; i < count; i++ {
		if off >= len(src) {
			return nil, 0, false
		}
		tag := src[off]
		off++
		switch tag {
		case refTagHash:
			if off+32 > len(src) {
				return nil, 0, false
			}
			var h numeric.Uint256
			h, off = readUint256(src, off)
			v.Refs = append(v.Refs, vote.Ref{Hash: h})
		case refTagBlock:
			b, n, ok := unmarshalBlock(src[off:])
			if !ok {
				return nil, 0, false
			}
			off += n
			v.Refs = append(v.Refs, vote.Ref{Hash: b.Hash(), Block: b})
		default:
			return nil, 0, false
		}
	}
	return v, off, true
}

func voteSize(v *vote.Vote) int {
	size := 32 + 8 + 64 + 1
	for _, r := range v.Refs {
		size++
		if r.Block != nil {
			size += blockSize(r.Block.Kind())
		} else {
			size += 32
		}
	}
	return size
}
