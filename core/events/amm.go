package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"dexcore/core/types"
)

const (
	// TypePoolCreated marks the registration of a new liquidity pool.
	TypePoolCreated = "amm.poolCreated"
	// TypeMint marks a liquidity deposit that minted pool shares.
	TypeMint = "amm.mint"
	// TypeBurn marks a share burn that withdrew pooled tokens.
	TypeBurn = "amm.burn"
	// TypeSwap marks a completed token swap against a pool.
	TypeSwap = "amm.swap"
	// TypeSync marks a reserve synchronisation on a pool.
	TypeSync = "amm.sync"
)

// PoolCreated records the deterministic registration of a pool for an ordered
// token pair.
type PoolCreated struct {
	Token0    common.Address
	Token1    common.Address
	Pool      common.Address
	PoolCount uint64
}

// EventType satisfies the events.Event interface.
func (PoolCreated) EventType() string { return TypePoolCreated }

// Event converts the structured payload into a broadcastable event.
func (e PoolCreated) Event() *types.Event {
	return &types.Event{
		Type: TypePoolCreated,
		Attributes: map[string]string{
			"token0":    e.Token0.Hex(),
			"token1":    e.Token1.Hex(),
			"pool":      e.Pool.Hex(),
			"poolCount": strconv.FormatUint(e.PoolCount, 10),
		},
	}
}

// Mint records the amounts deposited into a pool by a liquidity provider.
type Mint struct {
	Pool    common.Address
	Sender  common.Address
	Amount0 *big.Int
	Amount1 *big.Int
}

// EventType satisfies the events.Event interface.
func (Mint) EventType() string { return TypeMint }

// Event converts the structured payload into a broadcastable event.
func (e Mint) Event() *types.Event {
	attrs := map[string]string{
		"pool":   e.Pool.Hex(),
		"sender": e.Sender.Hex(),
	}
	putAmount(attrs, "amount0", e.Amount0)
	putAmount(attrs, "amount1", e.Amount1)
	return &types.Event{Type: TypeMint, Attributes: attrs}
}

// Burn records the amounts withdrawn from a pool by burning shares.
type Burn struct {
	Pool    common.Address
	Sender  common.Address
	Amount0 *big.Int
	Amount1 *big.Int
	To      common.Address
}

// EventType satisfies the events.Event interface.
func (Burn) EventType() string { return TypeBurn }

// Event converts the structured payload into a broadcastable event.
func (e Burn) Event() *types.Event {
	attrs := map[string]string{
		"pool":   e.Pool.Hex(),
		"sender": e.Sender.Hex(),
		"to":     e.To.Hex(),
	}
	putAmount(attrs, "amount0", e.Amount0)
	putAmount(attrs, "amount1", e.Amount1)
	return &types.Event{Type: TypeBurn, Attributes: attrs}
}

// Swap records the executed input and output legs of a swap.
type Swap struct {
	Pool       common.Address
	Sender     common.Address
	Amount0In  *big.Int
	Amount1In  *big.Int
	Amount0Out *big.Int
	Amount1Out *big.Int
	To         common.Address
}

// EventType satisfies the events.Event interface.
func (Swap) EventType() string { return TypeSwap }

// Event converts the structured payload into a broadcastable event.
func (e Swap) Event() *types.Event {
	attrs := map[string]string{
		"pool":   e.Pool.Hex(),
		"sender": e.Sender.Hex(),
		"to":     e.To.Hex(),
	}
	putAmount(attrs, "amount0In", e.Amount0In)
	putAmount(attrs, "amount1In", e.Amount1In)
	putAmount(attrs, "amount0Out", e.Amount0Out)
	putAmount(attrs, "amount1Out", e.Amount1Out)
	return &types.Event{Type: TypeSwap, Attributes: attrs}
}

// Sync records the reserves after a pool reconciliation.
type Sync struct {
	Pool     common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// EventType satisfies the events.Event interface.
func (Sync) EventType() string { return TypeSync }

// Event converts the structured payload into a broadcastable event.
func (e Sync) Event() *types.Event {
	attrs := map[string]string{
		"pool": e.Pool.Hex(),
	}
	putAmount(attrs, "reserve0", e.Reserve0)
	putAmount(attrs, "reserve1", e.Reserve1)
	return &types.Event{Type: TypeSync, Attributes: attrs}
}

func putAmount(attrs map[string]string, key string, amount *big.Int) {
	if amount == nil {
		attrs[key] = "0"
		return
	}
	attrs[key] = amount.String()
}
