package amm

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MinimumLiquidity is the quantity of shares minted to the lock address on
// the first deposit into a pool. Those shares can never be redeemed, which
// keeps the share price denominator away from zero for the pool's lifetime.
const MinimumLiquidity = 1000

// swapFeePerMille is the swap fee charged on the input side, in thousandths.
const swapFeePerMille = 3

// lockAddress receives the permanently locked minimum liquidity. No caller
// can spend from the zero address, so the shares are unredeemable.
var lockAddress = common.Address{}

// Pool captures the full state of a constant-product pool. Reserves are
// bounded to 112 bits so that the UQ112x112 price terms fit a 256-bit
// accumulator; the accumulators themselves wrap modulo 2^256 and only the
// difference between two readings is meaningful.
type Pool struct {
	Address              common.Address
	Token0               common.Address
	Token1               common.Address
	Reserve0             *big.Int
	Reserve1             *big.Int
	BlockTimestampLast   uint32
	Price0CumulativeLast *uint256.Int
	Price1CumulativeLast *uint256.Int
	KLast                *big.Int
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (p *Pool) Copy() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Reserve0 = cloneBigInt(p.Reserve0)
	clone.Reserve1 = cloneBigInt(p.Reserve1)
	clone.KLast = cloneBigInt(p.KLast)
	clone.Price0CumulativeLast = new(uint256.Int).Set(p.Price0CumulativeLast)
	clone.Price1CumulativeLast = new(uint256.Int).Set(p.Price1CumulativeLast)
	return &clone
}

type storedPool struct {
	Token0             [20]byte
	Token1             [20]byte
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
	Price0Cumulative   [32]byte
	Price1Cumulative   [32]byte
	KLast              *big.Int
}

func (p *Pool) stored() *storedPool {
	return &storedPool{
		Token0:             p.Token0,
		Token1:             p.Token1,
		Reserve0:           cloneBigInt(p.Reserve0),
		Reserve1:           cloneBigInt(p.Reserve1),
		BlockTimestampLast: p.BlockTimestampLast,
		Price0Cumulative:   p.Price0CumulativeLast.Bytes32(),
		Price1Cumulative:   p.Price1CumulativeLast.Bytes32(),
		KLast:              cloneBigInt(p.KLast),
	}
}

func (s *storedPool) pool(addr common.Address) *Pool {
	return &Pool{
		Address:              addr,
		Token0:               common.Address(s.Token0),
		Token1:               common.Address(s.Token1),
		Reserve0:             cloneBigInt(s.Reserve0),
		Reserve1:             cloneBigInt(s.Reserve1),
		BlockTimestampLast:   s.BlockTimestampLast,
		Price0CumulativeLast: new(uint256.Int).SetBytes32(s.Price0Cumulative[:]),
		Price1CumulativeLast: new(uint256.Int).SetBytes32(s.Price1Cumulative[:]),
		KLast:                cloneBigInt(s.KLast),
	}
}

type storedFeeConfig struct {
	Recipient  [20]byte
	Controller [20]byte
}

// Storage abstracts the subset of state manager functionality required by the
// AMM engines. Snapshots unwind every nested write of a failed transition.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	Snapshot() int
	RevertToSnapshot(int)
}

// TokenLedger is the minimal fungible-token capability the pools consume.
type TokenLedger interface {
	BalanceOf(token, holder common.Address) (*big.Int, error)
	TotalSupply(token common.Address) (*big.Int, error)
	Transfer(token, from, to common.Address, amount *big.Int) error
	Mint(token, to common.Address, amount *big.Int) error
	Burn(token, from common.Address, amount *big.Int) error
}

// Callee receives control during a flash swap, after the optimistic output
// transfer and before the invariant check. Payment is any transfer back into
// the pool made before SwapCall returns.
type Callee interface {
	SwapCall(sender common.Address, amount0Out, amount1Out *big.Int, data []byte) error
}

// SortTokens returns the pair in canonical order, rejecting identical or null
// identities.
func SortTokens(tokenX, tokenY common.Address) (common.Address, common.Address, error) {
	if tokenX == tokenY {
		return common.Address{}, common.Address{}, ErrIdenticalTokens
	}
	if tokenX == (common.Address{}) || tokenY == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroAddress
	}
	if bytes.Compare(tokenX.Bytes(), tokenY.Bytes()) > 0 {
		tokenX, tokenY = tokenY, tokenX
	}
	return tokenX, tokenY, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
