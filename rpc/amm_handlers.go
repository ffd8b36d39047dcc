package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"dexcore/native/amm"
)

// ReservesResult reports a pool's last-synchronized reserves.
type ReservesResult struct {
	Pool               string `json:"pool"`
	Reserve0           string `json:"reserve0"`
	Reserve1           string `json:"reserve1"`
	BlockTimestampLast uint32 `json:"blockTimestampLast"`
}

// PoolResult reports the pool resolved for a token pair.
type PoolResult struct {
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
	Pool   string `json:"pool,omitempty"`
	Exists bool   `json:"exists"`
}

func parseAddressField(raw json.RawMessage, field string) (common.Address, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return common.Address{}, fmt.Errorf("invalid params object: %w", err)
	}
	value, ok := payload[field]
	if !ok {
		return common.Address{}, fmt.Errorf("missing %q", field)
	}
	var hex string
	if err := json.Unmarshal(value, &hex); err != nil {
		return common.Address{}, fmt.Errorf("invalid %q: %w", field, err)
	}
	hex = strings.TrimSpace(hex)
	if !common.IsHexAddress(hex) {
		return common.Address{}, fmt.Errorf("invalid address in %q: %s", field, hex)
	}
	return common.HexToAddress(hex), nil
}

func singleParam(req *RPCRequest) (json.RawMessage, error) {
	if len(req.Params) != 1 {
		return nil, fmt.Errorf("expected a single params object")
	}
	return req.Params[0], nil
}

func (s *Server) handleGetPool(w http.ResponseWriter, req *RPCRequest) {
	raw, err := singleParam(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenA, err := parseAddressField(raw, "tokenA")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenB, err := parseAddressField(raw, "tokenB")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	token0, token1, err := amm.SortTokens(tokenA, tokenB)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	pool, exists, err := s.factory.GetPool(token0, token1)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	result := PoolResult{Token0: token0.Hex(), Token1: token1.Hex(), Exists: exists}
	if exists {
		result.Pool = pool.Hex()
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleAllPools(w http.ResponseWriter, req *RPCRequest) {
	pools, err := s.factory.AllPools()
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	hexes := make([]string, 0, len(pools))
	for _, pool := range pools {
		hexes = append(hexes, pool.Hex())
	}
	writeResult(w, req.ID, hexes)
}

func (s *Server) handleAllPoolsLength(w http.ResponseWriter, req *RPCRequest) {
	count, err := s.factory.AllPoolsLength()
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, count)
}

func (s *Server) handleGetReserves(w http.ResponseWriter, req *RPCRequest) {
	raw, err := singleParam(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	pool, err := parseAddressField(raw, "pool")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	reserve0, reserve1, blockTimestampLast, err := s.pairs.GetReserves(pool)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ReservesResult{
		Pool:               pool.Hex(),
		Reserve0:           reserve0.String(),
		Reserve1:           reserve1.String(),
		BlockTimestampLast: blockTimestampLast,
	})
}

func (s *Server) handleFeeRecipient(w http.ResponseWriter, req *RPCRequest) {
	recipient, err := s.factory.FeeRecipient()
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, recipient.Hex())
}
