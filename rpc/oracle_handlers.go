package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
)

// ObservationResult reports the stored averaging checkpoint for a pair.
type ObservationResult struct {
	Token0             string `json:"token0"`
	Token1             string `json:"token1"`
	Price0Cumulative   string `json:"price0Cumulative"`
	Price1Cumulative   string `json:"price1Cumulative"`
	BlockTimestampLast uint32 `json:"blockTimestampLast"`
}

// ConsultResult reports the time-weighted quote for an input amount.
type ConsultResult struct {
	TokenIn   string `json:"tokenIn"`
	TokenOut  string `json:"tokenOut"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
}

func parseAmountField(raw json.RawMessage, field string) (*big.Int, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid params object: %w", err)
	}
	value, ok := payload[field]
	if !ok {
		return nil, fmt.Errorf("missing %q", field)
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return nil, fmt.Errorf("invalid %q: %w", field, err)
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(text), 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount in %q: %s", field, text)
	}
	return amount, nil
}

func (s *Server) handleGetObservation(w http.ResponseWriter, req *RPCRequest) {
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
	obs, err := s.oracle.Observation(tokenA, tokenB)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ObservationResult{
		Token0:             obs.Token0.Hex(),
		Token1:             obs.Token1.Hex(),
		Price0Cumulative:   obs.Price0Cumulative.Dec(),
		Price1Cumulative:   obs.Price1Cumulative.Dec(),
		BlockTimestampLast: obs.BlockTimestampLast,
	})
}

func (s *Server) handleConsult(w http.ResponseWriter, req *RPCRequest) {
	raw, err := singleParam(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenIn, err := parseAddressField(raw, "tokenIn")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	tokenOut, err := parseAddressField(raw, "tokenOut")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amountIn, err := parseAmountField(raw, "amountIn")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amountOut, err := s.oracle.Consult(tokenIn, amountIn, tokenOut)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ConsultResult{
		TokenIn:   tokenIn.Hex(),
		TokenOut:  tokenOut.Hex(),
		AmountIn:  amountIn.String(),
		AmountOut: amountOut.String(),
	})
}
