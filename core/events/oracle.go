package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexcore/core/types"
)

const (
	// TypeOracleUpdated marks a refreshed cumulative-price observation.
	TypeOracleUpdated = "oracle.updated"
)

// OracleUpdated records the cumulative prices and reserves captured by an
// oracle observation refresh.
type OracleUpdated struct {
	Token0           common.Address
	Token1           common.Address
	Price0Cumulative *uint256.Int
	Price1Cumulative *uint256.Int
	Reserve0         *big.Int
	Reserve1         *big.Int
}

// EventType satisfies the events.Event interface.
func (OracleUpdated) EventType() string { return TypeOracleUpdated }

// Event converts the structured payload into a broadcastable event.
func (e OracleUpdated) Event() *types.Event {
	attrs := map[string]string{
		"token0": e.Token0.Hex(),
		"token1": e.Token1.Hex(),
	}
	if e.Price0Cumulative != nil {
		attrs["price0Cumulative"] = e.Price0Cumulative.Dec()
	}
	if e.Price1Cumulative != nil {
		attrs["price1Cumulative"] = e.Price1Cumulative.Dec()
	}
	putAmount(attrs, "reserve0", e.Reserve0)
	putAmount(attrs, "reserve1", e.Reserve1)
	return &types.Event{Type: TypeOracleUpdated, Attributes: attrs}
}
