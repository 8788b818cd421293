// Package numeric implements the fixed-width big-endian integers used
// throughout the ledger and wire protocol: 128-bit amounts, 256-bit keys
// and hashes, and 512-bit signatures.
package numeric

import (
	"encoding/hex"
	"errors"

	"github.com/holiman/uint256"
)

// Uint256Size is the width, in bytes, of a Uint256.
const Uint256Size = 32

// Uint256 is a 256-bit big-endian value: an account public key, a block
// hash, a seed, or a link field.
type Uint256 [Uint256Size]byte

// ErrBadLength is returned when decoding a hex string of the wrong length.
var ErrBadLength = errors.New("numeric: wrong encoded length")

// ZeroUint256 is the all-zero 256-bit value.
var ZeroUint256 Uint256

// Uint256FromBig converts a holiman/uint256 integer into its big-endian
// wire representation.
func Uint256FromBig(n *uint256.Int) Uint256 {
	var out Uint256
	b := n.Bytes32()
	copy(out[:], b[:])
	return out
}

// Big returns the value as a holiman/uint256 integer so arithmetic can be
// delegated to that library instead of hand-rolled shifts.
func (u Uint256) Big() *uint256.Int {
	return new(uint256.Int).SetBytes(u[:])
}

// IsZero reports whether every byte of u is zero.
func (u Uint256) IsZero() bool {
	return u.Big().IsZero()
}

// Cmp compares u and other numerically.
func (u Uint256) Cmp(other Uint256) int {
	return u.Big().Cmp(other.Big())
}

// Xor returns the bitwise exclusive-or of u and other.
func (u Uint256) Xor(other Uint256) Uint256 {
	var out Uint256
	for i := range out {
		out[i] = u[i] ^ other[i]
	}
	return out
}

// Add returns u+other, wrapping on overflow (matching the fixed-width
// wraparound semantics of the original uint256_t arithmetic).
func (u Uint256) Add(other Uint256) Uint256 {
	return Uint256FromBig(new(uint256.Int).Add(u.Big(), other.Big()))
}

// Sub returns u-other, wrapping on underflow.
func (u Uint256) Sub(other Uint256) Uint256 {
	return Uint256FromBig(new(uint256.Int).Sub(u.Big(), other.Big()))
}

// Bytes returns the big-endian byte slice backing u.
func (u Uint256) Bytes() []byte {
	return u[:]
}

// Hex returns the lower-case hex encoding of u, without a prefix.
func (u Uint256) Hex() string {
	return hex.EncodeToString(u[:])
}

// Uint256FromHex decodes a 64-character hex string into a Uint256.
func Uint256FromHex(s string) (Uint256, error) {
	var out Uint256
	if len(s) != Uint256Size*2 {
		return out, ErrBadLength
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// Uint256FromBytes copies b (which must be exactly Uint256Size long) into a
// new Uint256.
func Uint256FromBytes(b []byte) (Uint256, error) {
	var out Uint256
	if len(b) != Uint256Size {
		return out, ErrBadLength
	}
	copy(out[:], b)
	return out, nil
}
