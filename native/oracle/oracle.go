package oracle

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexcore/core/events"
	"dexcore/native/amm"
)

var (
	// ErrInvalidCaller indicates an observation creation attempt from
	// outside the registry's pool-creation flow.
	ErrInvalidCaller = errors.New("oracle: invalid caller")
	// ErrAlreadyCreated indicates an observation already exists for the
	// pair.
	ErrAlreadyCreated = errors.New("oracle: observation already created")
	// ErrNotCreated indicates no observation exists for the pair.
	ErrNotCreated = errors.New("oracle: observation not created")
	// ErrNoReserves indicates the underlying pool holds nothing to sample.
	ErrNoReserves = errors.New("oracle: no reserves")
	// ErrNoTimeElapsed indicates a consultation inside the same second as
	// the stored observation, leaving no window to average over.
	ErrNoTimeElapsed = errors.New("oracle: no time elapsed since observation")
	// ErrInvalidAmount indicates a nil or negative consultation amount.
	ErrInvalidAmount = errors.New("oracle: invalid amount")

	errNilState    = errors.New("oracle: state not configured")
	errNilResolver = errors.New("oracle: pool resolver not configured")
	errNilReader   = errors.New("oracle: pool reader not configured")
)

// DefaultUpdatePeriod is the minimum time between stored observations.
const DefaultUpdatePeriod = 30 * time.Minute

// Storage abstracts the subset of state manager functionality required by the
// observation ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// PoolResolver resolves the pool registered for an unordered token pair.
type PoolResolver interface {
	GetPool(tokenX, tokenY common.Address) (common.Address, bool, error)
}

// PoolReader exposes the price data the oracle samples from a pool.
type PoolReader interface {
	GetReserves(pool common.Address) (*big.Int, *big.Int, uint32, error)
	CurrentCumulativePrices(pool common.Address) (*uint256.Int, *uint256.Int, uint32, error)
}

// Observation is the last sampled cumulative-price snapshot for a pair.
type Observation struct {
	Token0             common.Address
	Token1             common.Address
	Price0Cumulative   *uint256.Int
	Price1Cumulative   *uint256.Int
	BlockTimestampLast uint32
}

type storedObservation struct {
	Token0             [20]byte
	Token1             [20]byte
	Price0Cumulative   [32]byte
	Price1Cumulative   [32]byte
	BlockTimestampLast uint32
}

func (s *storedObservation) observation() *Observation {
	return &Observation{
		Token0:             common.Address(s.Token0),
		Token1:             common.Address(s.Token1),
		Price0Cumulative:   new(uint256.Int).SetBytes32(s.Price0Cumulative[:]),
		Price1Cumulative:   new(uint256.Int).SetBytes32(s.Price1Cumulative[:]),
		BlockTimestampLast: s.BlockTimestampLast,
	}
}

func (o *Observation) stored() *storedObservation {
	return &storedObservation{
		Token0:             o.Token0,
		Token1:             o.Token1,
		Price0Cumulative:   o.Price0Cumulative.Bytes32(),
		Price1Cumulative:   o.Price1Cumulative.Bytes32(),
		BlockTimestampLast: o.BlockTimestampLast,
	}
}

// Engine maintains one throttled cumulative-price observation per created
// pool and answers average-price queries over the window since that
// observation.
type Engine struct {
	state    Storage
	resolver PoolResolver
	pools    PoolReader
	registry common.Address
	emitter  events.Emitter
	period   uint32
}

// NewEngine creates an oracle engine with the default update period and a
// no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		period:  uint32(DefaultUpdatePeriod / time.Second),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state Storage) { e.state = state }

// SetResolver configures the registry lookup for pair-to-pool resolution.
func (e *Engine) SetResolver(resolver PoolResolver) { e.resolver = resolver }

// SetPoolReader configures the source of cumulative prices and reserves.
func (e *Engine) SetPoolReader(pools PoolReader) { e.pools = pools }

// SetRegistry configures the identity permitted to create observations.
func (e *Engine) SetRegistry(registry common.Address) { e.registry = registry }

// SetPeriod overrides the minimum time between stored observations. Zero or
// negative durations reset the default.
func (e *Engine) SetPeriod(period time.Duration) {
	if period <= 0 {
		period = DefaultUpdatePeriod
	}
	e.period = uint32(period / time.Second)
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Create installs a zeroed observation for the pair. Only the registry's
// pool-creation flow may call it, keeping observation existence in lockstep
// with pool existence.
func (e *Engine) Create(caller, tokenX, tokenY common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.registry || e.registry == (common.Address{}) {
		return ErrInvalidCaller
	}
	token0, token1, err := amm.SortTokens(tokenX, tokenY)
	if err != nil {
		return err
	}
	if exists, err := e.state.KVGet(observationKey(token0, token1), nil); err != nil {
		return err
	} else if exists {
		return ErrAlreadyCreated
	}
	if _, err := e.resolvePool(token0, token1); err != nil {
		return err
	}
	obs := &Observation{
		Token0:           token0,
		Token1:           token1,
		Price0Cumulative: uint256.NewInt(0),
		Price1Cumulative: uint256.NewInt(0),
	}
	return e.state.KVPut(observationKey(token0, token1), obs.stored())
}

// Update refreshes the stored observation from the pool's current cumulative
// prices. Inside the throttle window it is a silent no-op, so callers may
// invoke it unconditionally.
func (e *Engine) Update(tokenX, tokenY common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	token0, token1, err := amm.SortTokens(tokenX, tokenY)
	if err != nil {
		return err
	}
	obs, err := e.loadObservation(token0, token1)
	if err != nil {
		return err
	}
	pool, err := e.resolvePool(token0, token1)
	if err != nil {
		return err
	}
	reserve0, reserve1, _, err := e.pools.GetReserves(pool)
	if err != nil {
		return err
	}
	if reserve0.Sign() == 0 && reserve1.Sign() == 0 {
		return ErrNoReserves
	}
	price0, price1, blockTimestamp, err := e.pools.CurrentCumulativePrices(pool)
	if err != nil {
		return err
	}
	if blockTimestamp-obs.BlockTimestampLast < e.period {
		return nil
	}
	obs.Price0Cumulative = price0
	obs.Price1Cumulative = price1
	obs.BlockTimestampLast = blockTimestamp
	if err := e.state.KVPut(observationKey(token0, token1), obs.stored()); err != nil {
		return err
	}
	e.emit(events.OracleUpdated{
		Token0:           token0,
		Token1:           token1,
		Price0Cumulative: price0,
		Price1Cumulative: price1,
		Reserve0:         reserve0,
		Reserve1:         reserve1,
	})
	return nil
}

// Consult applies the average price between the stored observation and the
// pool's present cumulative price to amountIn. When no observation exists
// for the pair the input amount passes through unchanged, so price-dependent
// callers are never blocked by oracle absence.
func (e *Engine) Consult(tokenIn common.Address, amountIn *big.Int, tokenOut common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if amountIn == nil || amountIn.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	token0, token1, err := amm.SortTokens(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	stored := &storedObservation{}
	ok, err := e.state.KVGet(observationKey(token0, token1), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int).Set(amountIn), nil
	}
	obs := stored.observation()
	pool, err := e.resolvePool(token0, token1)
	if err != nil {
		return nil, err
	}
	price0, price1, blockTimestamp, err := e.pools.CurrentCumulativePrices(pool)
	if err != nil {
		return nil, err
	}
	elapsed := blockTimestamp - obs.BlockTimestampLast
	if elapsed == 0 {
		return nil, ErrNoTimeElapsed
	}
	if tokenIn == token0 {
		return computeAmountOut(obs.Price0Cumulative, price0, elapsed, amountIn), nil
	}
	return computeAmountOut(obs.Price1Cumulative, price1, elapsed, amountIn), nil
}

// Observation returns the stored snapshot for the pair.
func (e *Engine) Observation(tokenX, tokenY common.Address) (*Observation, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	token0, token1, err := amm.SortTokens(tokenX, tokenY)
	if err != nil {
		return nil, err
	}
	return e.loadObservation(token0, token1)
}

func (e *Engine) loadObservation(token0, token1 common.Address) (*Observation, error) {
	stored := &storedObservation{}
	ok, err := e.state.KVGet(observationKey(token0, token1), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotCreated
	}
	return stored.observation(), nil
}

func (e *Engine) resolvePool(token0, token1 common.Address) (common.Address, error) {
	if e.resolver == nil {
		return common.Address{}, errNilResolver
	}
	if e.pools == nil {
		return common.Address{}, errNilReader
	}
	pool, ok, err := e.resolver.GetPool(token0, token1)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, amm.ErrPoolNotFound
	}
	return pool, nil
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

// computeAmountOut averages the cumulative-price growth over the elapsed
// window and applies it to amountIn. The accumulator subtraction wraps modulo
// 2^256 by design; only the delta is meaningful.
func computeAmountOut(start, end *uint256.Int, elapsed uint32, amountIn *big.Int) *big.Int {
	delta := new(uint256.Int).Sub(end, start)
	average := new(uint256.Int).Div(delta, uint256.NewInt(uint64(elapsed)))
	out := new(big.Int).Mul(average.ToBig(), amountIn)
	return out.Rsh(out, 112)
}
