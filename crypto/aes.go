package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/chratos-network/chratos/numeric"
)

// EncryptKey encrypts a raw private key for storage at rest: AES-CTR with
// an externally supplied 128-bit IV. The cleartext is the raw private key,
// the ciphertext is the wallet record persisted on disk.
func EncryptKey(cleartext numeric.Uint256, key numeric.Uint256, iv numeric.Uint128) (numeric.Uint256, error) {
	var ciphertext numeric.Uint256
	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return ciphertext, err
	}
	stream := cipher.NewCTR(block, iv.Bytes())
	stream.XORKeyStream(ciphertext[:], cleartext.Bytes())
	return ciphertext, nil
}

// DecryptKey reverses EncryptKey: this = AES_DEC_CTR(ciphertext, key, iv).
// AES-CTR is its own inverse, so decryption and encryption share the same
// keystream-XOR implementation.
func DecryptKey(ciphertext numeric.Uint256, key numeric.Uint256, iv numeric.Uint128) (numeric.Uint256, error) {
	return EncryptKey(ciphertext, key, iv)
}
