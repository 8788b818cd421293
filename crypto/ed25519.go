package crypto

import (
	stded25519 "crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/chratos-network/chratos/numeric"
)

// KeyPair is an Ed25519 account key: the private key doubles as the seed
// in this node's key derivation scheme.
type KeyPair struct {
	Public  numeric.Uint256
	Private stded25519.PrivateKey
}

// GenerateKeyPair creates a fresh Ed25519 key pair using the system CSPRNG.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := stded25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return keyPairFrom(pub, priv)
}

// KeyPairFromSeed expands a 32-byte seed into a full Ed25519 key pair, as
// used by DeterministicKey-derived account keys.
func KeyPairFromSeed(seed numeric.Uint256) (*KeyPair, error) {
	priv := stded25519.NewKeyFromSeed(seed.Bytes())
	pub, ok := priv.Public().(stded25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("crypto: unexpected public key type")
	}
	return keyPairFrom(pub, priv)
}

func keyPairFrom(pub stded25519.PublicKey, priv stded25519.PrivateKey) (*KeyPair, error) {
	pubFixed, err := numeric.Uint256FromBytes(pub)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Public: pubFixed, Private: priv}, nil
}

// Sign signs a 32-byte domain-separated message hash, returning a 512-bit
// Ed25519 signature.
func Sign(priv stded25519.PrivateKey, message numeric.Uint256) numeric.Uint512 {
	sig := stded25519.Sign(priv, message.Bytes())
	var out numeric.Uint512
	copy(out[:], sig)
	return out
}

// Verify reports whether sig is a valid Ed25519 signature of message under
// the account public key pub.
func Verify(pub numeric.Uint256, message numeric.Uint256, sig numeric.Uint512) bool {
	return stded25519.Verify(stded25519.PublicKey(pub.Bytes()), message.Bytes(), sig.Bytes())
}
