package block

import (
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

// DividendBlock opens a new dividend epoch: it is posted by the network's
// designated dividend-issuing account and carries the pool amount that
// ClaimBlocks for this epoch may draw from.
type DividendBlock struct {
	AccountField  numeric.Uint256
	PreviousField numeric.Uint256
	DividendField uint64
	AmountField   numeric.Uint128
	LinkField     numeric.Uint256
	SignatureField numeric.Uint512
	WorkField      uint64

	hash *numeric.Uint256
}

var _ Block = (*DividendBlock)(nil)

// Kind implements Block.
func (b *DividendBlock) Kind() Kind { return KindDividend }

// Previous implements Block.
func (b *DividendBlock) Previous() numeric.Uint256 { return b.PreviousField }

// Root implements Block.
func (b *DividendBlock) Root() numeric.Uint256 {
	if b.PreviousField.IsZero() {
		return b.AccountField
	}
	return b.PreviousField
}

// Source implements Block: a dividend block has no source of its own.
func (b *DividendBlock) Source() numeric.Uint256 { return numeric.ZeroUint256 }

// DividendEpoch implements Block.
func (b *DividendBlock) DividendEpoch() uint64 { return b.DividendField }

// Link implements Block.
func (b *DividendBlock) Link() numeric.Uint256 { return b.LinkField }

// Signature implements Block.
func (b *DividendBlock) Signature() numeric.Uint512 { return b.SignatureField }

// Work implements Block.
func (b *DividendBlock) Work() uint64 { return b.WorkField }

// Visit implements Block.
func (b *DividendBlock) Visit(v Visitor) { v.VisitDividend(b) }

// SigningHash returns the domain-separated Blake2b hash signed by the
// dividend-issuing account's private key.
func (b *DividendBlock) SigningHash() numeric.Uint256 {
	var dividend [8]byte
	putUint64(dividend[:], b.DividendField)
	return crypto.Hash256(
		[]byte{domainDividend},
		b.AccountField.Bytes(),
		b.PreviousField.Bytes(),
		dividend[:],
		b.AmountField.Bytes(),
		b.LinkField.Bytes(),
	)
}

// Hash implements Block.
func (b *DividendBlock) Hash() numeric.Uint256 {
	if b.hash == nil {
		h := b.SigningHash()
		b.hash = &h
	}
	return *b.hash
}
