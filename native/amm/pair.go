package amm

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"dexcore/core/events"
)

// Engine executes the state transitions of constant-product pools. All
// mutating entry points take a per-pool single-writer lock for the duration
// of the call and snapshot the state manager so that a failure, including one
// raised after the optimistic transfer of a flash swap, unwinds every nested
// write.
type Engine struct {
	state    Storage
	tokens   TokenLedger
	emitter  events.Emitter
	registry common.Address
	nowFn    func() int64
	locks    map[common.Address]bool
	callees  map[common.Address]Callee
}

// NewEngine creates a pool engine with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		locks:   make(map[common.Address]bool),
		callees: make(map[common.Address]Callee),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state Storage) { e.state = state }

// SetTokens configures the fungible-token ledger pools draw balances from.
func (e *Engine) SetTokens(tokens TokenLedger) { e.tokens = tokens }

// SetRegistry configures the registry identity permitted to initialize pools.
func (e *Engine) SetRegistry(registry common.Address) { e.registry = registry }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
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

// RegisterCallee binds a flash-swap callee to a destination address. The
// in-process registry stands in for contract dispatch on the destination.
func (e *Engine) RegisterCallee(addr common.Address, callee Callee) {
	if callee == nil {
		delete(e.callees, addr)
		return
	}
	e.callees[addr] = callee
}

// Initialize binds the ordered token pair to a new pool record. It is
// callable exactly once per pool and only by the configured registry.
func (e *Engine) Initialize(caller, pool, token0, token1 common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.registry || e.registry == (common.Address{}) {
		return ErrForbidden
	}
	if exists, err := e.state.KVGet(poolRecordKey(pool), nil); err != nil {
		return err
	} else if exists {
		return ErrAlreadyInitialized
	}
	p := &Pool{
		Address:              pool,
		Token0:               token0,
		Token1:               token1,
		Reserve0:             big.NewInt(0),
		Reserve1:             big.NewInt(0),
		Price0CumulativeLast: uint256.NewInt(0),
		Price1CumulativeLast: uint256.NewInt(0),
		KLast:                big.NewInt(0),
	}
	return e.savePool(p)
}

// GetReserves returns the last-synchronized reserves and their timestamp.
func (e *Engine) GetReserves(pool common.Address) (*big.Int, *big.Int, uint32, error) {
	p, err := e.loadPool(pool)
	if err != nil {
		return nil, nil, 0, err
	}
	return p.Reserve0, p.Reserve1, p.BlockTimestampLast, nil
}

// PoolState returns a copy of the full pool record.
func (e *Engine) PoolState(pool common.Address) (*Pool, error) {
	p, err := e.loadPool(pool)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CurrentCumulativePrices returns the price accumulators extrapolated to the
// present, as an oracle would observe them if the pool synced right now.
func (e *Engine) CurrentCumulativePrices(pool common.Address) (*uint256.Int, *uint256.Int, uint32, error) {
	p, err := e.loadPool(pool)
	if err != nil {
		return nil, nil, 0, err
	}
	price0 := new(uint256.Int).Set(p.Price0CumulativeLast)
	price1 := new(uint256.Int).Set(p.Price1CumulativeLast)
	now := uint32(e.now())
	elapsed := now - p.BlockTimestampLast
	if elapsed > 0 && p.Reserve0.Sign() > 0 && p.Reserve1.Sign() > 0 {
		window := uint256.NewInt(uint64(elapsed))
		price0.Add(price0, new(uint256.Int).Mul(divUQ112(encodeUQ112(p.Reserve1), p.Reserve0), window))
		price1.Add(price1, new(uint256.Int).Mul(divUQ112(encodeUQ112(p.Reserve0), p.Reserve1), window))
	}
	return price0, price1, now, nil
}

// Mint converts the token amounts deposited since the last sync into new
// liquidity shares credited to the recipient. The first deposit permanently
// locks MinimumLiquidity shares.
func (e *Engine) Mint(caller, pool, to common.Address) (liquidity *big.Int, err error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	if err := e.lock(pool); err != nil {
		return nil, err
	}
	defer e.unlock(pool)
	snap := e.state.Snapshot()
	defer func() {
		if err != nil {
			e.state.RevertToSnapshot(snap)
		}
	}()

	p, err := e.loadPool(pool)
	if err != nil {
		return nil, err
	}
	balance0, err := e.tokens.BalanceOf(p.Token0, pool)
	if err != nil {
		return nil, err
	}
	balance1, err := e.tokens.BalanceOf(p.Token1, pool)
	if err != nil {
		return nil, err
	}
	amount0 := new(big.Int).Sub(balance0, p.Reserve0)
	amount1 := new(big.Int).Sub(balance1, p.Reserve1)

	feeOn, err := e.mintFee(p)
	if err != nil {
		return nil, err
	}
	totalShares, err := e.tokens.TotalSupply(pool)
	if err != nil {
		return nil, err
	}
	if totalShares.Sign() == 0 {
		liquidity = new(big.Int).Sub(integerSqrt(new(big.Int).Mul(amount0, amount1)), big.NewInt(MinimumLiquidity))
		if liquidity.Sign() <= 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
		if err := e.tokens.Mint(pool, lockAddress, big.NewInt(MinimumLiquidity)); err != nil {
			return nil, err
		}
	} else {
		liquidity = minBigInt(
			new(big.Int).Div(new(big.Int).Mul(amount0, totalShares), p.Reserve0),
			new(big.Int).Div(new(big.Int).Mul(amount1, totalShares), p.Reserve1),
		)
		if liquidity.Sign() <= 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
	}
	if err := e.tokens.Mint(pool, to, liquidity); err != nil {
		return nil, err
	}
	if err := e.update(p, balance0, balance1); err != nil {
		return nil, err
	}
	if feeOn {
		p.KLast = new(big.Int).Mul(p.Reserve0, p.Reserve1)
	}
	if err := e.savePool(p); err != nil {
		return nil, err
	}
	e.emit(events.Mint{Pool: pool, Sender: caller, Amount0: amount0, Amount1: amount1})
	return liquidity, nil
}

// Burn redeems the liquidity shares held by the pool itself, transferring the
// proportional token amounts to the recipient. Callers move shares into the
// pool first and then burn (pull-then-burn).
func (e *Engine) Burn(caller, pool, to common.Address) (amount0, amount1 *big.Int, err error) {
	if err := e.checkWired(); err != nil {
		return nil, nil, err
	}
	if err := e.lock(pool); err != nil {
		return nil, nil, err
	}
	defer e.unlock(pool)
	snap := e.state.Snapshot()
	defer func() {
		if err != nil {
			e.state.RevertToSnapshot(snap)
		}
	}()

	p, err := e.loadPool(pool)
	if err != nil {
		return nil, nil, err
	}
	balance0, err := e.tokens.BalanceOf(p.Token0, pool)
	if err != nil {
		return nil, nil, err
	}
	balance1, err := e.tokens.BalanceOf(p.Token1, pool)
	if err != nil {
		return nil, nil, err
	}
	liquidity, err := e.tokens.BalanceOf(pool, pool)
	if err != nil {
		return nil, nil, err
	}

	feeOn, err := e.mintFee(p)
	if err != nil {
		return nil, nil, err
	}
	totalShares, err := e.tokens.TotalSupply(pool)
	if err != nil {
		return nil, nil, err
	}
	if totalShares.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}
	amount0 = new(big.Int).Div(new(big.Int).Mul(liquidity, balance0), totalShares)
	amount1 = new(big.Int).Div(new(big.Int).Mul(liquidity, balance1), totalShares)
	if amount0.Sign() == 0 || amount1.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}
	if err := e.tokens.Burn(pool, pool, liquidity); err != nil {
		return nil, nil, err
	}
	if err := e.tokens.Transfer(p.Token0, pool, to, amount0); err != nil {
		return nil, nil, err
	}
	if err := e.tokens.Transfer(p.Token1, pool, to, amount1); err != nil {
		return nil, nil, err
	}
	balance0, err = e.tokens.BalanceOf(p.Token0, pool)
	if err != nil {
		return nil, nil, err
	}
	balance1, err = e.tokens.BalanceOf(p.Token1, pool)
	if err != nil {
		return nil, nil, err
	}
	if err := e.update(p, balance0, balance1); err != nil {
		return nil, nil, err
	}
	if feeOn {
		p.KLast = new(big.Int).Mul(p.Reserve0, p.Reserve1)
	}
	if err := e.savePool(p); err != nil {
		return nil, nil, err
	}
	e.emit(events.Burn{Pool: pool, Sender: caller, Amount0: amount0, Amount1: amount1, To: to})
	return amount0, amount1, nil
}

// Swap transfers the requested outputs optimistically, hands control to the
// flash-swap callee when data is supplied, then verifies the fee-adjusted
// constant product against post-call balances. Any failure, including an
// invariant violation caused by the callee, unwinds the whole call.
func (e *Engine) Swap(caller, pool common.Address, amount0Out, amount1Out *big.Int, to common.Address, data []byte) (err error) {
	if err := e.checkWired(); err != nil {
		return err
	}
	if amount0Out == nil {
		amount0Out = big.NewInt(0)
	}
	if amount1Out == nil {
		amount1Out = big.NewInt(0)
	}
	if amount0Out.Sign() < 0 || amount1Out.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount0Out.Sign() == 0 && amount1Out.Sign() == 0 {
		return ErrInsufficientOutputAmount
	}
	if err := e.lock(pool); err != nil {
		return err
	}
	defer e.unlock(pool)
	snap := e.state.Snapshot()
	defer func() {
		if err != nil {
			e.state.RevertToSnapshot(snap)
		}
	}()

	p, err := e.loadPool(pool)
	if err != nil {
		return err
	}
	if amount0Out.Cmp(p.Reserve0) >= 0 || amount1Out.Cmp(p.Reserve1) >= 0 {
		return ErrInsufficientLiquidity
	}
	if to == p.Token0 || to == p.Token1 {
		return ErrInvalidTo
	}

	if amount0Out.Sign() > 0 {
		if err := e.tokens.Transfer(p.Token0, pool, to, amount0Out); err != nil {
			return err
		}
	}
	if amount1Out.Sign() > 0 {
		if err := e.tokens.Transfer(p.Token1, pool, to, amount1Out); err != nil {
			return err
		}
	}
	if len(data) > 0 {
		callee, ok := e.callees[to]
		if !ok {
			return ErrNoCallee
		}
		if err := callee.SwapCall(caller, amount0Out, amount1Out, data); err != nil {
			return err
		}
	}

	balance0, err := e.tokens.BalanceOf(p.Token0, pool)
	if err != nil {
		return err
	}
	balance1, err := e.tokens.BalanceOf(p.Token1, pool)
	if err != nil {
		return err
	}
	amount0In := impliedInput(balance0, p.Reserve0, amount0Out)
	amount1In := impliedInput(balance1, p.Reserve1, amount1Out)
	if amount0In.Sign() == 0 && amount1In.Sign() == 0 {
		return ErrInsufficientInputAmount
	}

	adjusted0 := adjustedBalance(balance0, amount0In)
	adjusted1 := adjustedBalance(balance1, amount1In)
	kBefore := new(big.Int).Mul(new(big.Int).Mul(p.Reserve0, p.Reserve1), new(big.Int).Mul(bigThousand, bigThousand))
	if new(big.Int).Mul(adjusted0, adjusted1).Cmp(kBefore) < 0 {
		return ErrKInvariant
	}

	if err := e.update(p, balance0, balance1); err != nil {
		return err
	}
	if err := e.savePool(p); err != nil {
		return err
	}
	e.emit(events.Swap{
		Pool:       pool,
		Sender:     caller,
		Amount0In:  amount0In,
		Amount1In:  amount1In,
		Amount0Out: amount0Out,
		Amount1Out: amount1Out,
		To:         to,
	})
	return nil
}

// Sync forces the reserves to match the pool's actual token balances. It is
// the reconciliation path for tokens moved into the pool outside mint/swap.
func (e *Engine) Sync(pool common.Address) (err error) {
	if err := e.checkWired(); err != nil {
		return err
	}
	if err := e.lock(pool); err != nil {
		return err
	}
	defer e.unlock(pool)
	snap := e.state.Snapshot()
	defer func() {
		if err != nil {
			e.state.RevertToSnapshot(snap)
		}
	}()

	p, err := e.loadPool(pool)
	if err != nil {
		return err
	}
	balance0, err := e.tokens.BalanceOf(p.Token0, pool)
	if err != nil {
		return err
	}
	balance1, err := e.tokens.BalanceOf(p.Token1, pool)
	if err != nil {
		return err
	}
	if err := e.update(p, balance0, balance1); err != nil {
		return err
	}
	return e.savePool(p)
}

// Skim transfers any balance above the tracked reserves to the recipient,
// the counterpart of Sync for recovering surplus instead of absorbing it.
func (e *Engine) Skim(pool, to common.Address) (err error) {
	if err := e.checkWired(); err != nil {
		return err
	}
	if err := e.lock(pool); err != nil {
		return err
	}
	defer e.unlock(pool)
	snap := e.state.Snapshot()
	defer func() {
		if err != nil {
			e.state.RevertToSnapshot(snap)
		}
	}()

	p, err := e.loadPool(pool)
	if err != nil {
		return err
	}
	balance0, err := e.tokens.BalanceOf(p.Token0, pool)
	if err != nil {
		return err
	}
	balance1, err := e.tokens.BalanceOf(p.Token1, pool)
	if err != nil {
		return err
	}
	excess0 := new(big.Int).Sub(balance0, p.Reserve0)
	excess1 := new(big.Int).Sub(balance1, p.Reserve1)
	if excess0.Sign() > 0 {
		if err := e.tokens.Transfer(p.Token0, pool, to, excess0); err != nil {
			return err
		}
	}
	if excess1.Sign() > 0 {
		if err := e.tokens.Transfer(p.Token1, pool, to, excess1); err != nil {
			return err
		}
	}
	return nil
}

// mintFee mints protocol-fee shares worth 1/6th of the growth of
// sqrt(reserve0*reserve1) since the last fee event, when a fee recipient is
// configured.
func (e *Engine) mintFee(p *Pool) (bool, error) {
	cfg := &storedFeeConfig{}
	if _, err := e.state.KVGet(feeConfigKey, cfg); err != nil {
		return false, err
	}
	recipient := common.Address(cfg.Recipient)
	feeOn := recipient != (common.Address{})
	if !feeOn {
		if p.KLast.Sign() != 0 {
			p.KLast = big.NewInt(0)
		}
		return false, nil
	}
	if p.KLast.Sign() == 0 {
		return true, nil
	}
	rootK := integerSqrt(new(big.Int).Mul(p.Reserve0, p.Reserve1))
	rootKLast := integerSqrt(p.KLast)
	if rootK.Cmp(rootKLast) <= 0 {
		return true, nil
	}
	totalShares, err := e.tokens.TotalSupply(p.Address)
	if err != nil {
		return false, err
	}
	numerator := new(big.Int).Mul(totalShares, new(big.Int).Sub(rootK, rootKLast))
	denominator := new(big.Int).Add(new(big.Int).Mul(rootK, bigFive), rootKLast)
	liquidity := new(big.Int).Div(numerator, denominator)
	if liquidity.Sign() > 0 {
		if err := e.tokens.Mint(p.Address, recipient, liquidity); err != nil {
			return false, err
		}
	}
	return true, nil
}

// update accumulates the time-weighted prices over the elapsed window and
// moves the reserves to the observed balances.
func (e *Engine) update(p *Pool, balance0, balance1 *big.Int) error {
	if balance0.Cmp(maxReserve) > 0 || balance1.Cmp(maxReserve) > 0 {
		return ErrOverflow
	}
	now := uint32(e.now())
	elapsed := now - p.BlockTimestampLast
	if elapsed > 0 && p.Reserve0.Sign() > 0 && p.Reserve1.Sign() > 0 {
		window := uint256.NewInt(uint64(elapsed))
		p.Price0CumulativeLast.Add(p.Price0CumulativeLast,
			new(uint256.Int).Mul(divUQ112(encodeUQ112(p.Reserve1), p.Reserve0), window))
		p.Price1CumulativeLast.Add(p.Price1CumulativeLast,
			new(uint256.Int).Mul(divUQ112(encodeUQ112(p.Reserve0), p.Reserve1), window))
	}
	p.Reserve0 = new(big.Int).Set(balance0)
	p.Reserve1 = new(big.Int).Set(balance1)
	p.BlockTimestampLast = now
	e.emit(events.Sync{Pool: p.Address, Reserve0: p.Reserve0, Reserve1: p.Reserve1})
	return nil
}

func (e *Engine) loadPool(pool common.Address) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	stored := &storedPool{}
	ok, err := e.state.KVGet(poolRecordKey(pool), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPoolNotFound
	}
	return stored.pool(pool), nil
}

func (e *Engine) savePool(p *Pool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.KVPut(poolRecordKey(p.Address), p.stored())
}

func (e *Engine) checkWired() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.tokens == nil {
		return errNilTokens
	}
	return nil
}

func (e *Engine) lock(pool common.Address) error {
	if e.locks[pool] {
		return ErrLocked
	}
	e.locks[pool] = true
	return nil
}

func (e *Engine) unlock(pool common.Address) {
	delete(e.locks, pool)
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func impliedInput(balance, reserve, amountOut *big.Int) *big.Int {
	floor := new(big.Int).Sub(reserve, amountOut)
	if balance.Cmp(floor) <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(balance, floor)
}

func adjustedBalance(balance, amountIn *big.Int) *big.Int {
	return new(big.Int).Sub(
		new(big.Int).Mul(balance, bigThousand),
		new(big.Int).Mul(amountIn, bigFee),
	)
}
