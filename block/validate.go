package block

import (
	stded25519 "crypto/ed25519"
	"encoding/binary"

	stdcrypto "github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

// signingHash extracts the canonical hash a block's signature was (or
// should be) computed over, without widening the public Block interface.
func signingHash(b Block) (numeric.Uint256, bool) {
	switch v := b.(type) {
	case *StateBlock:
		return v.SigningHash(), true
	case *DividendBlock:
		return v.SigningHash(), true
	case *ClaimBlock:
		return v.SigningHash(), true
	default:
		return numeric.ZeroUint256, false
	}
}

// Sign computes the Ed25519 signature over b's canonical signing hash and
// stores it in the matching SignatureField. It does not attach Work; the
// work pool (outside the core, per spec.md §5) does that before a block
// is ready for broadcast.
func Sign(b Block, priv stded25519.PrivateKey) numeric.Uint512 {
	hash, ok := signingHash(b)
	if !ok {
		return numeric.Uint512{}
	}
	sig := stdcrypto.Sign(priv, hash)
	switch v := b.(type) {
	case *StateBlock:
		v.SignatureField = sig
	case *DividendBlock:
		v.SignatureField = sig
	case *ClaimBlock:
		v.SignatureField = sig
	}
	return sig
}

// VerifySignature checks that b carries a valid Ed25519 signature under
// account for its own canonical signing hash.
func VerifySignature(account numeric.Uint256, b Block) bool {
	hash, ok := signingHash(b)
	if !ok {
		return false
	}
	return stdcrypto.Verify(account, hash, b.Signature())
}

// workThreshold is the minimum acceptable proof-of-work difficulty on the
// live network. Proof-of-work computation itself runs in the work pool,
// outside the core (spec.md §5); this is the validation half the block
// processor runs inline.
const workThreshold uint64 = 0xffffffc000000000

// ValidateWork reports whether work is a sufficient proof-of-work value
// for a block rooted at root: the first 8 bytes of the 32-byte Blake2b
// digest of (work_le || root), interpreted as a big-endian uint64, must be
// >= threshold.
func ValidateWork(root numeric.Uint256, work uint64, threshold uint64) bool {
	var workBytes [8]byte
	binary.LittleEndian.PutUint64(workBytes[:], work)
	digest := stdcrypto.Hash256(workBytes[:], root.Bytes())
	value := binary.BigEndian.Uint64(digest.Bytes()[:8])
	return value >= threshold
}

// DefaultWorkThreshold returns the live-network proof-of-work difficulty.
func DefaultWorkThreshold() uint64 { return workThreshold }
