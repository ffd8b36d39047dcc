package amm

import (
	"math/big"

	"github.com/holiman/uint256"
)

var (
	bigThousand = big.NewInt(1000)
	bigFee      = big.NewInt(swapFeePerMille)
	bigFive     = big.NewInt(5)

	// maxReserve bounds reserves to 112 bits so price terms fit the
	// accumulator width.
	maxReserve = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 112), big.NewInt(1))
)

// integerSqrt returns the floor of the square root of n. n must be
// non-negative.
func integerSqrt(n *big.Int) *big.Int {
	return new(big.Int).Sqrt(n)
}

func minBigInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// encodeUQ112 converts an integer below 2^112 into UQ112x112 fixed point.
func encodeUQ112(y *big.Int) *uint256.Int {
	encoded, _ := uint256.FromBig(y)
	return encoded.Lsh(encoded, 112)
}

// divUQ112 divides a UQ112x112 value by an integer denominator.
func divUQ112(x *uint256.Int, y *big.Int) *uint256.Int {
	denominator, _ := uint256.FromBig(y)
	return new(uint256.Int).Div(x, denominator)
}
