package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/chratos-network/chratos/numeric"
)

// ChecksumSize is the width, in bytes, of the account-string checksum.
const ChecksumSize = 5

// Hash256 returns the 32-byte Blake2b digest of the concatenation of parts.
// This is the domain-separated hash used to build Ed25519 signing messages
// for blocks.
func Hash256(parts ...[]byte) numeric.Uint256 {
	sum := variableBlake2b(numeric.Uint256Size, parts...)
	var out numeric.Uint256
	copy(out[:], sum)
	return out
}

// AccountChecksum returns the 5-byte Blake2b digest used by the account
// string codec to detect typos and truncation.
func AccountChecksum(pub numeric.Uint256) [ChecksumSize]byte {
	sum := variableBlake2b(ChecksumSize, pub.Bytes())
	var out [ChecksumSize]byte
	copy(out[:], sum)
	return out
}

// DeterministicKey derives the index'th private key from a 256-bit seed:
// Blake2b(seed || big-endian uint32(index)), 32 bytes of output.
func DeterministicKey(seed numeric.Uint256, index uint32) numeric.Uint256 {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	sum := variableBlake2b(numeric.Uint256Size, seed.Bytes(), idx[:])
	var out numeric.Uint256
	copy(out[:], sum)
	return out
}

// variableBlake2b hashes parts together with a Blake2b instance configured
// for the requested digest size (1-64 bytes), matching blake2b_init's
// variable output length in the original C++ implementation.
func variableBlake2b(size int, parts ...[]byte) []byte {
	h, err := blake2b.New(size, nil)
	if err != nil {
		// Only reachable with a size outside [1,64], which never happens
		// for the call sites in this package.
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
