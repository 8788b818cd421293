package peers

import (
	"github.com/chratos-network/chratos/crypto"
	"github.com/chratos-network/chratos/numeric"
)

func newTestKeyPair() (*crypto.KeyPair, error) {
	return crypto.GenerateKeyPair()
}

func signChallenge(kp *crypto.KeyPair, challenge numeric.Uint256) numeric.Uint512 {
	return crypto.Sign(kp.Private, challenge)
}
