package peers

import (
	"crypto/rand"
	"time"

	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

// cookie is the syn-cookie record of spec.md §3: "(endpoint -> {random
// 256-bit challenge, created_at})".
type cookie struct {
	challenge numeric.Uint256
	createdAt time.Time
}

// randomChallenge draws a fresh 256-bit challenge from the system CSPRNG,
// grounding spec.md §9's "global thread-local RNG" requirement directly
// on crypto/rand rather than a hand-rolled generator.
func randomChallenge() (numeric.Uint256, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return numeric.Uint256{}, err
	}
	return numeric.Uint256FromBytes(buf[:])
}

// verify reports whether sig is a valid signature by account over
// c's challenge.
func (c *cookie) verify(account numeric.Uint256, sig numeric.Uint512) bool {
	return crypto.Verify(account, c.challenge, sig)
}
