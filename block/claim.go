package block

import (
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

// ClaimBlock credits an account with its share of a dividend epoch's
// pool, referencing the DividendBlock that opened that epoch as its
// Source.
type ClaimBlock struct {
	AccountField  numeric.Uint256
	PreviousField numeric.Uint256
	DividendField uint64
	SourceField   numeric.Uint256
	BalanceField  numeric.Uint128
	LinkField      numeric.Uint256
	SignatureField numeric.Uint512
	WorkField      uint64

	hash *numeric.Uint256
}

var _ Block = (*ClaimBlock)(nil)

// Kind implements Block.
func (b *ClaimBlock) Kind() Kind { return KindClaim }

// Previous implements Block.
func (b *ClaimBlock) Previous() numeric.Uint256 { return b.PreviousField }

// Root implements Block.
func (b *ClaimBlock) Root() numeric.Uint256 {
	if b.PreviousField.IsZero() {
		return b.AccountField
	}
	return b.PreviousField
}

// Source implements Block: the dividend block being claimed.
func (b *ClaimBlock) Source() numeric.Uint256 { return b.SourceField }

// DividendEpoch implements Block.
func (b *ClaimBlock) DividendEpoch() uint64 { return b.DividendField }

// Link implements Block.
func (b *ClaimBlock) Link() numeric.Uint256 { return b.LinkField }

// Signature implements Block.
func (b *ClaimBlock) Signature() numeric.Uint512 { return b.SignatureField }

// Work implements Block.
func (b *ClaimBlock) Work() uint64 { return b.WorkField }

// Visit implements Block.
func (b *ClaimBlock) Visit(v Visitor) { v.VisitClaim(b) }

// SigningHash returns the domain-separated Blake2b hash signed by the
// claiming account's private key.
func (b *ClaimBlock) SigningHash() numeric.Uint256 {
	var dividend [8]byte
	putUint64(dividend[:], b.DividendField)
	return crypto.Hash256(
		[]byte{domainClaim},
		b.AccountField.Bytes(),
		b.PreviousField.Bytes(),
		dividend[:],
		b.SourceField.Bytes(),
		b.BalanceField.Bytes(),
		b.LinkField.Bytes(),
	)
}

// Hash implements Block.
func (b *ClaimBlock) Hash() numeric.Uint256 {
	if b.hash == nil {
		h := b.SigningHash()
		b.hash = &h
	}
	return *b.hash
}
