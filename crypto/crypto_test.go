package crypto

import (
	"testing"

	"github.com/chratos-network/chratos/numeric"
)

func TestSignVerify(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	msg := Hash256([]byte("hello chratos"))
	sig := Sign(kp.Private, msg)

	if !Verify(kp.Public, msg, sig) {
		t.Fatalf("expected signature to verify")
	}

	other := Hash256([]byte("tampered"))
	if Verify(kp.Public, other, sig) {
		t.Fatalf("expected signature over a different message to fail")
	}
}

func TestDeterministicKeyIsStable(t *testing.T) {
	var seed numeric.Uint256
	seed[0] = 0x42

	a := DeterministicKey(seed, 0)
	b := DeterministicKey(seed, 0)
	c := DeterministicKey(seed, 1)

	if a != b {
		t.Fatalf("DeterministicKey is not deterministic")
	}
	if a == c {
		t.Fatalf("different indices produced the same key")
	}
}

func TestAESRoundTrip(t *testing.T) {
	var key, cleartext numeric.Uint256
	var iv numeric.Uint128
	key[0] = 1
	cleartext[0] = 0xaa
	iv[0] = 7

	ciphertext, err := EncryptKey(cleartext, key, iv)
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	recovered, err := DecryptKey(ciphertext, key, iv)
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if recovered != cleartext {
		t.Fatalf("round trip mismatch: got %x want %x", recovered, cleartext)
	}
}

func TestAccountChecksumDeterministic(t *testing.T) {
	var pub numeric.Uint256
	pub[5] = 9

	c1 := AccountChecksum(pub)
	c2 := AccountChecksum(pub)
	if c1 != c2 {
		t.Fatalf("checksum is not deterministic")
	}
}
