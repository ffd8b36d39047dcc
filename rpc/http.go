package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dexcore/native/amm"
	"dexcore/native/oracle"
	"dexcore/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Server exposes the AMM read surface over JSON-RPC 2.0. Mutations belong to
// the surrounding ledger and are deliberately absent here.
type Server struct {
	factory *amm.Factory
	pairs   *amm.Engine
	oracle  *oracle.Engine
	logger  *slog.Logger
	metrics *observability.RPCMetrics
}

// NewServer wires the read surface over the given engines.
func NewServer(factory *amm.Factory, pairs *amm.Engine, oracleEngine *oracle.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		factory: factory,
		pairs:   pairs,
		oracle:  oracleEngine,
		logger:  logger,
		metrics: observability.Metrics(),
	}
}

// Router assembles the HTTP routes: the JSON-RPC endpoint, a health probe,
// and the Prometheus scrape target.
func (s *Server) Router(limit RateLimit) http.Handler {
	r := chi.NewRouter()
	r.Use(NewRateLimiter(limit, s.logger).Middleware())
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the router on addr and blocks until the listener fails.
func (s *Server) Start(addr string, limit RateLimit) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(limit),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

// RPCRequest is the JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// RPCResponse is the JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a JSON-RPC error code with a descriptive message.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle is the main request handler that routes to method handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON-RPC payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version", nil)
		return
	}

	started := time.Now()
	sw := &statusWriter{ResponseWriter: w}
	switch req.Method {
	case "amm_getPool":
		s.handleGetPool(sw, &req)
	case "amm_allPools":
		s.handleAllPools(sw, &req)
	case "amm_allPoolsLength":
		s.handleAllPoolsLength(sw, &req)
	case "amm_getReserves":
		s.handleGetReserves(sw, &req)
	case "amm_feeRecipient":
		s.handleFeeRecipient(sw, &req)
	case "oracle_getObservation":
		s.handleGetObservation(sw, &req)
	case "oracle_consult":
		s.handleConsult(sw, &req)
	default:
		writeError(sw, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}

	outcome := "ok"
	if sw.status >= http.StatusBadRequest {
		outcome = "error"
		s.metrics.ObserveError(req.Method, strconv.Itoa(sw.status))
	}
	s.metrics.ObserveRequest(req.Method, outcome, time.Since(started).Seconds())
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// writeDomainError maps engine failures onto RPC errors, keeping input
// validation distinct from internal faults.
func writeDomainError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, amm.ErrPoolNotFound),
		errors.Is(err, amm.ErrIdenticalTokens),
		errors.Is(err, amm.ErrZeroAddress),
		errors.Is(err, oracle.ErrNotCreated),
		errors.Is(err, oracle.ErrNoReserves),
		errors.Is(err, oracle.ErrNoTimeElapsed),
		errors.Is(err, oracle.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}
