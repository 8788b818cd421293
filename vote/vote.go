// Package vote implements the Vote data type of spec.md §3: a
// representative's signed assertion about which block(s) it believes are
// correct at a set of roots.
package vote

import (
	"encoding/binary"

	stded25519 "crypto/ed25519"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

// Ref is one entry in a vote's bundle: either a full block (for blocks the
// sender believes the receiver has not seen) or just its hash.
type Ref struct {
	Hash  numeric.Uint256
	Block block.Block // nil when the ref carries only a hash
}

// HashOf returns the hash this ref refers to, regardless of whether it
// carries a full block or a bare hash.
func (r Ref) HashOf() numeric.Uint256 {
	if r.Block != nil {
		return r.Block.Hash()
	}
	return r.Hash
}

// Vote is a representative's signed statement about the refs it carries,
// per spec.md §3 ("pair of (representative account, monotone sequence
// number, signature ..., and the bundle itself)").
type Vote struct {
	Account   numeric.Uint256
	Sequence  uint64
	Signature numeric.Uint512
	Refs      []Ref
}

// SigningHash is the canonical hash signed by Account: the sequence
// number followed by each referenced block's hash, in bundle order.
func (v *Vote) SigningHash() numeric.Uint256 {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], v.Sequence)
	parts := make([][]byte, 0, len(v.Refs)+1)
	parts = append(parts, seq[:])
	for _, r := range v.Refs {
		h := r.HashOf()
		parts = append(parts, h.Bytes())
	}
	return crypto.Hash256(parts...)
}

// Sign computes and stores v.Signature under priv, which must correspond
// to v.Account.
func (v *Vote) Sign(priv stded25519.PrivateKey) {
	v.Signature = crypto.Sign(priv, v.SigningHash())
}

// Validate reports whether v's signature verifies under its own Account
// and it carries at least one ref. spec.md §3: "A vote is valid iff the
// signature verifies under the stated account over the canonical
// serialization."
func (v *Vote) Validate() bool {
	if len(v.Refs) == 0 {
		return false
	}
	return crypto.Verify(v.Account, v.SigningHash(), v.Signature)
}

// Supersedes reports whether v is strictly newer than other by the
// (sequence, hash) ordering spec.md §3/§8 requires elections to enforce:
// last_votes[rep] is monotone in (sequence, hash). hash is compared using
// the first ref's hash, matching the single-root comparison an election
// performs once a vote has been routed to it.
func Supersedes(seq uint64, hash numeric.Uint256, otherSeq uint64, otherHash numeric.Uint256) bool {
	if seq != otherSeq {
		return seq > otherSeq
	}
	return hash.Cmp(otherHash) > 0
}
