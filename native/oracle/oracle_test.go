package oracle

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"dexcore/core/events"
	"dexcore/native/amm"
	"dexcore/native/token"
	"dexcore/state"
	"dexcore/storage"
)

var (
	testTokenA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testTokenB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	testTokenC = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	controller = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	provider   = common.HexToAddress("0x0000000000000000000000000000000000000a0a")
)

type testClock struct {
	now int64
}

func (c *testClock) advance(seconds int64) { c.now += seconds }

type testSystem struct {
	oracle   *Engine
	pairs    *amm.Engine
	factory  *amm.Factory
	tokens   *token.Ledger
	clock    *testClock
	recorder *events.Recorder
}

func newTestSystem(t *testing.T) *testSystem {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	tokens := token.NewLedger(manager)
	clock := &testClock{now: 1_000_000}
	recorder := &events.Recorder{}

	registry := common.HexToAddress("0x0000000000000000000000000000000000fac100")
	pairs := amm.NewEngine()
	pairs.SetState(manager)
	pairs.SetTokens(tokens)
	pairs.SetRegistry(registry)
	pairs.SetNowFunc(func() int64 { return clock.now })

	factory := amm.NewFactory(registry)
	factory.SetState(manager)
	factory.SetEngine(pairs)
	if err := factory.Initialize(controller); err != nil {
		t.Fatalf("initialize factory: %v", err)
	}

	oracle := NewEngine()
	oracle.SetState(manager)
	oracle.SetResolver(factory)
	oracle.SetPoolReader(pairs)
	oracle.SetRegistry(registry)
	oracle.SetPeriod(60 * time.Second)
	oracle.SetEmitter(recorder)
	factory.SetOracle(oracle)

	return &testSystem{
		oracle:   oracle,
		pairs:    pairs,
		factory:  factory,
		tokens:   tokens,
		clock:    clock,
		recorder: recorder,
	}
}

func (s *testSystem) createPoolWithLiquidity(t *testing.T, amount0, amount1 *big.Int) common.Address {
	t.Helper()
	pool, err := s.factory.CreatePool(testTokenA, testTokenB)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := s.tokens.Mint(testTokenA, pool, amount0); err != nil {
		t.Fatalf("fund token0: %v", err)
	}
	if err := s.tokens.Mint(testTokenB, pool, amount1); err != nil {
		t.Fatalf("fund token1: %v", err)
	}
	if _, err := s.pairs.Mint(provider, pool, provider); err != nil {
		t.Fatalf("mint: %v", err)
	}
	return pool
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestCreateRestrictedToRegistry(t *testing.T) {
	sys := newTestSystem(t)
	sys.createPoolWithLiquidity(t, ether(5), ether(10))

	outsider := common.HexToAddress("0x000000000000000000000000000000000000dead")
	if err := sys.oracle.Create(outsider, testTokenA, testTokenB); !errors.Is(err, ErrInvalidCaller) {
		t.Fatalf("expected ErrInvalidCaller, got %v", err)
	}
	// The registry flow already created the observation with the pool.
	if err := sys.oracle.Create(sys.factory.Address(), testTokenA, testTokenB); !errors.Is(err, ErrAlreadyCreated) {
		t.Fatalf("expected ErrAlreadyCreated, got %v", err)
	}
}

func TestUpdateNotCreated(t *testing.T) {
	sys := newTestSystem(t)
	if err := sys.oracle.Update(testTokenA, testTokenC); !errors.Is(err, ErrNotCreated) {
		t.Fatalf("expected ErrNotCreated, got %v", err)
	}
}

func TestUpdateNoReserves(t *testing.T) {
	sys := newTestSystem(t)
	if _, err := sys.factory.CreatePool(testTokenA, testTokenB); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := sys.oracle.Update(testTokenA, testTokenB); !errors.Is(err, ErrNoReserves) {
		t.Fatalf("expected ErrNoReserves, got %v", err)
	}
}

func TestUpdateThrottleIsSilent(t *testing.T) {
	sys := newTestSystem(t)
	sys.createPoolWithLiquidity(t, ether(5), ether(10))

	if err := sys.oracle.Update(testTokenA, testTokenB); err != nil {
		t.Fatalf("first update: %v", err)
	}
	first, err := sys.oracle.Observation(testTokenA, testTokenB)
	if err != nil {
		t.Fatalf("observation: %v", err)
	}

	// Inside the window: a no-op, not an error, and nothing changes.
	sys.clock.advance(30)
	if err := sys.oracle.Update(testTokenA, testTokenB); err != nil {
		t.Fatalf("throttled update: %v", err)
	}
	throttled, err := sys.oracle.Observation(testTokenA, testTokenB)
	if err != nil {
		t.Fatalf("observation: %v", err)
	}
	if throttled.BlockTimestampLast != first.BlockTimestampLast {
		t.Fatalf("expected timestamp unchanged, got %d", throttled.BlockTimestampLast)
	}
	if throttled.Price0Cumulative.Cmp(first.Price0Cumulative) != 0 {
		t.Fatalf("expected cumulative unchanged inside window")
	}

	// Past the window the observation advances with elapsed time.
	sys.clock.advance(60)
	if err := sys.oracle.Update(testTokenA, testTokenB); err != nil {
		t.Fatalf("update after window: %v", err)
	}
	refreshed, err := sys.oracle.Observation(testTokenA, testTokenB)
	if err != nil {
		t.Fatalf("observation: %v", err)
	}
	if refreshed.BlockTimestampLast <= first.BlockTimestampLast {
		t.Fatalf("expected timestamp to advance, got %d", refreshed.BlockTimestampLast)
	}
	if refreshed.Price0Cumulative.Cmp(first.Price0Cumulative) <= 0 {
		t.Fatalf("expected cumulative price to grow")
	}
}

func TestUpdateEmitsEvent(t *testing.T) {
	sys := newTestSystem(t)
	sys.createPoolWithLiquidity(t, ether(5), ether(10))

	if err := sys.oracle.Update(testTokenA, testTokenB); err != nil {
		t.Fatalf("update: %v", err)
	}
	var updated *events.OracleUpdated
	for _, evt := range sys.recorder.Events {
		if e, ok := evt.(events.OracleUpdated); ok {
			updated = &e
		}
	}
	if updated == nil {
		t.Fatal("expected OracleUpdated event")
	}
	if updated.Reserve0.Cmp(ether(5)) != 0 || updated.Reserve1.Cmp(ether(10)) != 0 {
		t.Fatalf("unexpected reserves in event: %s/%s", updated.Reserve0, updated.Reserve1)
	}
}

func TestConsultPassthroughWithoutObservation(t *testing.T) {
	sys := newTestSystem(t)

	amountIn := ether(7)
	out, err := sys.oracle.Consult(testTokenA, amountIn, testTokenC)
	if err != nil {
		t.Fatalf("consult: %v", err)
	}
	if out.Cmp(amountIn) != 0 {
		t.Fatalf("expected identity passthrough %s, got %s", amountIn, out)
	}
}

func TestConsultAveragePrice(t *testing.T) {
	sys := newTestSystem(t)
	sys.createPoolWithLiquidity(t, ether(5), ether(10))

	if err := sys.oracle.Update(testTokenA, testTokenB); err != nil {
		t.Fatalf("update: %v", err)
	}
	sys.clock.advance(120)

	// Constant reserves 5/10 price token0 at exactly 2 token1.
	out, err := sys.oracle.Consult(testTokenA, ether(1), testTokenB)
	if err != nil {
		t.Fatalf("consult: %v", err)
	}
	if out.Cmp(ether(2)) != 0 {
		t.Fatalf("expected 2e18 out, got %s", out)
	}

	// And token1 at exactly 0.5 token0.
	back, err := sys.oracle.Consult(testTokenB, ether(2), testTokenA)
	if err != nil {
		t.Fatalf("consult reverse: %v", err)
	}
	if back.Cmp(ether(1)) != 0 {
		t.Fatalf("expected 1e18 back, got %s", back)
	}
}

func TestConsultSameSecondAsObservation(t *testing.T) {
	sys := newTestSystem(t)
	sys.createPoolWithLiquidity(t, ether(5), ether(10))

	if err := sys.oracle.Update(testTokenA, testTokenB); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := sys.oracle.Consult(testTokenA, ether(1), testTokenB); !errors.Is(err, ErrNoTimeElapsed) {
		t.Fatalf("expected ErrNoTimeElapsed, got %v", err)
	}
}
