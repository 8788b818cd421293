// Package account implements the human-readable account-string codec: a
// 256-bit Ed25519 public key rendered as a prefixed base-32 string with an
// embedded Blake2b checksum, grounded on
// original_source/chratos/lib/numbers.cpp's uint256_union::encode_account
// / decode_account.
package account

import (
	"errors"
	"math/big"
	"strings"

	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

// alphabet is the 32-symbol base-32 account alphabet. Position 0 ('1')
// and position 1 ('3') are the only legal values for the most-significant
// digit, since the payload's top 4 bits are always zero padding.
const alphabet = "13456789abcdefghijkmnopqrstuwxyz"

// digitCount is the number of base-32 digits packed into an account
// string body: 52 for the 256-bit key (with 4 padding bits in the
// most-significant digit) plus 8 for the 40-bit checksum.
const digitCount = 60

var (
	// ErrBadPrefix is returned when decoding a string without a
	// recognised account prefix.
	ErrBadPrefix = errors.New("account: unrecognized prefix")
	// ErrBadLength is returned when the string length doesn't match its
	// prefix's expected length.
	ErrBadLength = errors.New("account: wrong length for prefix")
	// ErrBadSymbol is returned when a character outside the account
	// alphabet appears in the body.
	ErrBadSymbol = errors.New("account: invalid symbol")
	// ErrBadPadding is returned when the most-significant digit carries
	// more than the single allowed payload bit.
	ErrBadPadding = errors.New("account: invalid padding")
	// ErrChecksum is returned when the embedded checksum doesn't match
	// the decoded key.
	ErrChecksum = errors.New("account: checksum mismatch")
)

var reverseAlphabet [128]int8

func init() {
	for i := range reverseAlphabet {
		reverseAlphabet[i] = -1
	}
	for i, c := range alphabet {
		reverseAlphabet[c] = int8(i)
	}
}

type prefixSpec struct {
	prefix string
	length int // total string length including the prefix
}

// recognised prefixes, longest-specific first doesn't matter here since
// lengths differ and we match by total string length.
var prefixes = []prefixSpec{
	{"chr_", 64},
	{"chr-", 64},
	{"nano_", 65},
	{"nano-", 65},
}

// Encode renders a 256-bit public key as a "chr_"-prefixed account string.
func Encode(pub numeric.Uint256) string {
	checksum := crypto.AccountChecksum(pub)

	payload := new(big.Int).SetBytes(pub.Bytes())
	payload.Lsh(payload, 40)
	payload.Or(payload, new(big.Int).SetBytes(checksum[:]))

	digits := make([]byte, digitCount)
	v := new(big.Int).Set(payload)
	mask := big.NewInt(0x1f)
	group := new(big.Int)
	for i := 0; i < digitCount; i++ {
		group.And(v, mask)
		digits[i] = alphabet[group.Int64()]
		v.Rsh(v, 5)
	}

	var b strings.Builder
	b.Grow(64)
	b.WriteString("chr_")
	for i := digitCount - 1; i >= 0; i-- {
		b.WriteByte(digits[i])
	}
	return b.String()
}

// Decode parses an account string (either the current "chr_"/"chr-"
// prefix or the legacy "nano_"/"nano-" prefix) back into a 256-bit public
// key, verifying the embedded checksum.
func Decode(s string) (numeric.Uint256, error) {
	var zero numeric.Uint256

	spec, body, err := splitPrefix(s)
	if err != nil {
		return zero, err
	}
	_ = spec

	if len(body) != digitCount {
		return zero, ErrBadLength
	}

	first := reverseValue(body[0])
	if first != 0 && first != 1 {
		return zero, ErrBadPadding
	}

	payload := new(big.Int)
	for i := 0; i < digitCount; i++ {
		v := reverseValue(body[i])
		if v < 0 {
			return zero, ErrBadSymbol
		}
		payload.Lsh(payload, 5)
		payload.Or(payload, big.NewInt(int64(v)))
	}

	checksumInt := new(big.Int).And(payload, new(big.Int).SetUint64(0xffffffffff))
	keyInt := new(big.Int).Rsh(payload, 40)

	var key numeric.Uint256
	keyBytes := keyInt.Bytes()
	if len(keyBytes) > numeric.Uint256Size {
		return zero, ErrBadPadding
	}
	copy(key[numeric.Uint256Size-len(keyBytes):], keyBytes)

	want := crypto.AccountChecksum(key)
	var wantInt big.Int
	wantInt.SetBytes(want[:])
	if checksumInt.Cmp(&wantInt) != 0 {
		return zero, ErrChecksum
	}

	return key, nil
}

func reverseValue(c byte) int8 {
	if int(c) >= len(reverseAlphabet) {
		return -1
	}
	return reverseAlphabet[c]
}

func splitPrefix(s string) (prefixSpec, string, error) {
	for _, p := range prefixes {
		if len(s) == p.length && strings.HasPrefix(s, p.prefix) {
			return p, s[len(p.prefix):], nil
		}
	}
	// Distinguish "right prefix, wrong length" from "no such prefix" for
	// a clearer error, matching the original's two-stage check.
	for _, p := range prefixes {
		if strings.HasPrefix(s, p.prefix) {
			return prefixSpec{}, "", ErrBadLength
		}
	}
	return prefixSpec{}, "", ErrBadPrefix
}
