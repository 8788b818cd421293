package block

import (
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

// StateBlock is the ordinary account-chain block: it fully describes the
// account's resulting balance and representative after applying the
// operation named by Link (a send debits Link's account, a receive
// credits from the source referenced by Link).
type StateBlock struct {
	AccountField        numeric.Uint256
	PreviousField       numeric.Uint256
	RepresentativeField numeric.Uint256
	BalanceField        numeric.Uint128
	LinkField           numeric.Uint256
	DividendField       uint64
	SignatureField       numeric.Uint512
	WorkField            uint64

	hash *numeric.Uint256
}

var _ Block = (*StateBlock)(nil)

// Kind implements Block.
func (b *StateBlock) Kind() Kind { return KindState }

// Previous implements Block.
func (b *StateBlock) Previous() numeric.Uint256 { return b.PreviousField }

// Root implements Block: the account for an opening block, otherwise the
// previous hash.
func (b *StateBlock) Root() numeric.Uint256 {
	if b.PreviousField.IsZero() {
		return b.AccountField
	}
	return b.PreviousField
}

// Source implements Block. A state block's source is its Link field
// whenever the block represents a receive; callers that need to
// distinguish sends from receives use the ledger's pending-index lookup,
// exactly as the original's state_block::source() does (it is only
// meaningful relative to what the link points at).
func (b *StateBlock) Source() numeric.Uint256 { return b.LinkField }

// DividendEpoch implements Block.
func (b *StateBlock) DividendEpoch() uint64 { return b.DividendField }

// Link implements Block.
func (b *StateBlock) Link() numeric.Uint256 { return b.LinkField }

// Signature implements Block.
func (b *StateBlock) Signature() numeric.Uint512 { return b.SignatureField }

// Work implements Block.
func (b *StateBlock) Work() uint64 { return b.WorkField }

// Visit implements Block.
func (b *StateBlock) Visit(v Visitor) { v.VisitState(b) }

// SigningHash returns the domain-separated Blake2b hash signed by the
// account's private key.
func (b *StateBlock) SigningHash() numeric.Uint256 {
	var dividend [8]byte
	putUint64(dividend[:], b.DividendField)
	return crypto.Hash256(
		[]byte{domainState},
		b.AccountField.Bytes(),
		b.PreviousField.Bytes(),
		b.RepresentativeField.Bytes(),
		b.BalanceField.Bytes(),
		b.LinkField.Bytes(),
		dividend[:],
	)
}

// Hash implements Block, caching the computed signing hash as the block's
// identity (blocks are immutable once constructed).
func (b *StateBlock) Hash() numeric.Uint256 {
	if b.hash == nil {
		h := b.SigningHash()
		b.hash = &h
	}
	return *b.hash
}

func putUint64(dst []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}
