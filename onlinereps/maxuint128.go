package onlinereps

import "github.com/holiman/uint256"

// maxUint128 returns 2^128 - 1, the saturation ceiling for Uint128
// arithmetic in this package.
func maxUint128() *uint256.Int {
	max := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	return max.Sub(max, uint256.NewInt(1))
}
