package numeric

import (
	"encoding/hex"

	"github.com/holiman/uint256"
)

// Uint128Size is the width, in bytes, of a Uint128.
const Uint128Size = 16

// Uint128 is a 128-bit big-endian value: a balance or an amount.
type Uint128 [Uint128Size]byte

// ZeroUint128 is the all-zero 128-bit value.
var ZeroUint128 Uint128

// Uint128FromBig converts a holiman/uint256 integer into its 128-bit
// big-endian wire representation, truncating anything above bit 128.
func Uint128FromBig(n *uint256.Int) Uint128 {
	var out Uint128
	b := n.Bytes32()
	copy(out[:], b[16:])
	return out
}

// Big returns the value as a holiman/uint256 integer.
func (u Uint128) Big() *uint256.Int {
	return new(uint256.Int).SetBytes(u[:])
}

// IsZero reports whether every byte of u is zero.
func (u Uint128) IsZero() bool {
	return u.Big().IsZero()
}

// Cmp compares u and other numerically.
func (u Uint128) Cmp(other Uint128) int {
	return u.Big().Cmp(other.Big())
}

// Add returns u+other. The caller is responsible for overflow checks where
// the ledger's negative_spend / balance_mismatch semantics require them.
func (u Uint128) Add(other Uint128) Uint128 {
	return Uint128FromBig(new(uint256.Int).Add(u.Big(), other.Big()))
}

// Sub returns u-other.
func (u Uint128) Sub(other Uint128) Uint128 {
	return Uint128FromBig(new(uint256.Int).Sub(u.Big(), other.Big()))
}

// GreaterThan reports whether u > other.
func (u Uint128) GreaterThan(other Uint128) bool {
	return u.Cmp(other) > 0
}

// Bytes returns the big-endian byte slice backing u.
func (u Uint128) Bytes() []byte {
	return u[:]
}

// Hex returns the lower-case hex encoding of u.
func (u Uint128) Hex() string {
	return hex.EncodeToString(u[:])
}

// Uint128FromHex decodes a 32-character hex string into a Uint128.
func Uint128FromHex(s string) (Uint128, error) {
	var out Uint128
	if len(s) != Uint128Size*2 {
		return out, ErrBadLength
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// Uint128FromUint64 builds a Uint128 from a plain uint64 (e.g. a weight or
// stake expressed as a small constant in configuration or tests).
func Uint128FromUint64(v uint64) Uint128 {
	return Uint128FromBig(new(uint256.Int).SetUint64(v))
}
