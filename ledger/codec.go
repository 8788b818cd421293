package ledger

import (
	"bytes"

	"github.com/ugorji/go/codec"

	"github.com/chratos-network/chratos/block"
	"github.com/chratos-network/chratos/numeric"
)

var mh codec.MsgpackHandle

func encode(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	enc := codec.NewEncoder(b, &mh)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decode(data []byte, v interface{}) error {
	dec := codec.NewDecoder(bytes.NewBuffer(data), &mh)
	return dec.Decode(v)
}

// accountRecord is the accounts/ store's value: the frontier state of one
// account's chain, per spec.md §6 ("Keyed stores for: accounts, ...").
type accountRecord struct {
	Head                     []byte
	OpenBlock                []byte
	Representative           []byte
	Balance                  []byte
	BlockCount               uint64
	LastClaimedDividendEpoch uint64
}

func (a accountRecord) head() numeric.Uint256           { return uint256Of(a.Head) }
func (a accountRecord) openBlock() numeric.Uint256       { return uint256Of(a.OpenBlock) }
func (a accountRecord) representative() numeric.Uint256  { return uint256Of(a.Representative) }
func (a accountRecord) balance() numeric.Uint128         { return uint128Of(a.Balance) }

func uint256Of(b []byte) numeric.Uint256 {
	var u numeric.Uint256
	copy(u[:], b)
	return u
}

func uint128Of(b []byte) numeric.Uint128 {
	var u numeric.Uint128
	copy(u[:], b)
	return u
}

// pendingRecord is the pending/ store's value: an un-received send waiting
// for its destination account to issue a receive (spec.md §6 "pending
// receives").
type pendingRecord struct {
	Source []byte
	Amount []byte
}

// dividendPoolRecord tracks the remaining unclaimed balance of a dividend
// epoch's pool (spec.md §4.12 dividend epoch tracking).
type dividendPoolRecord struct {
	Remaining []byte
}

// voteRecord is the votes/ store's value: the highest (sequence, hash)
// pair heard from a representative, used by the vote processor's replay
// check (spec.md §4.7).
type voteRecord struct {
	Sequence uint64
	Hash     []byte
}

// storedBlock is the blocks/ store's value: a kind-tagged flattening of
// every block variant's fields, encoded with ugorji/go/codec (spec.md
// §4.11 — msgpack, not encoding/json, matching the teacher's choice of a
// compact non-JSON handle for storage values).
type storedBlock struct {
	Kind           uint8
	Account        []byte
	Previous       []byte
	Representative []byte
	Balance        []byte
	Link           []byte
	Dividend       uint64
	Source         []byte
	Amount         []byte
	Signature      []byte
	Work           uint64
}

func toStoredBlock(b block.Block) storedBlock {
	s := storedBlock{Kind: uint8(b.Kind()), Signature: b.Signature().Bytes(), Work: b.Work()}
	switch v := b.(type) {
	case *block.StateBlock:
		s.Account = v.AccountField.Bytes()
		s.Previous = v.PreviousField.Bytes()
		s.Representative = v.RepresentativeField.Bytes()
		s.Balance = v.BalanceField.Bytes()
		s.Link = v.LinkField.Bytes()
		s.Dividend = v.DividendField
	case *block.DividendBlock:
		s.Account = v.AccountField.Bytes()
		s.Previous = v.PreviousField.Bytes()
		s.Dividend = v.DividendField
		s.Amount = v.AmountField.Bytes()
		s.Link = v.LinkField.Bytes()
	case *block.ClaimBlock:
		s.Account = v.AccountField.Bytes()
		s.Previous = v.PreviousField.Bytes()
		s.Dividend = v.DividendField
		s.Source = v.SourceField.Bytes()
		s.Balance = v.BalanceField.Bytes()
		s.Link = v.LinkField.Bytes()
	}
	return s
}

func fromStoredBlock(s storedBlock) block.Block {
	switch block.Kind(s.Kind) {
	case block.KindState:
		return &block.StateBlock{
			AccountField:        uint256Of(s.Account),
			PreviousField:       uint256Of(s.Previous),
			RepresentativeField: uint256Of(s.Representative),
			BalanceField:        uint128Of(s.Balance),
			LinkField:           uint256Of(s.Link),
			DividendField:       s.Dividend,
			SignatureField:      uint512Of(s.Signature),
			WorkField:           s.Work,
		}
	case block.KindDividend:
		return &block.DividendBlock{
			AccountField:   uint256Of(s.Account),
			PreviousField:  uint256Of(s.Previous),
			DividendField:  s.Dividend,
			AmountField:    uint128Of(s.Amount),
			LinkField:      uint256Of(s.Link),
			SignatureField: uint512Of(s.Signature),
			WorkField:      s.Work,
		}
	case block.KindClaim:
		return &block.ClaimBlock{
			AccountField:   uint256Of(s.Account),
			PreviousField:  uint256Of(s.Previous),
			DividendField:  s.Dividend,
			SourceField:    uint256Of(s.Source),
			BalanceField:   uint128Of(s.Balance),
			LinkField:      uint256Of(s.Link),
			SignatureField: uint512Of(s.Signature),
			WorkField:      s.Work,
		}
	default:
		return nil
	}
}

func uint512Of(b []byte) numeric.Uint512 {
	var u numeric.Uint512
	copy(u[:], b)
	return u
}

// accountOf returns the AccountField carried by any stored block variant.
func accountOf(b block.Block) numeric.Uint256 {
	switch v := b.(type) {
	case *block.StateBlock:
		return v.AccountField
	case *block.DividendBlock:
		return v.AccountField
	case *block.ClaimBlock:
		return v.AccountField
	default:
		return numeric.ZeroUint256
	}
}
