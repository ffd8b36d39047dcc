package amm

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"dexcore/core/events"
)

// creationFingerprint stands in for the hash of the pool creation code. It is
// fixed for the lifetime of the registry so that pool identities stay a pure
// function of (registry, ordered pair).
var creationFingerprint = ethcrypto.Keccak256Hash([]byte("dexcore/amm/pool/v1"))

// PoolAddress derives the deterministic identity of the pool for a token
// pair. It never touches state, so routers can compute it before the pool
// exists.
func PoolAddress(registry, tokenX, tokenY common.Address) (common.Address, error) {
	token0, token1, err := SortTokens(tokenX, tokenY)
	if err != nil {
		return common.Address{}, err
	}
	salt := ethcrypto.Keccak256(token0.Bytes(), token1.Bytes())
	hash := ethcrypto.Keccak256([]byte{0xff}, registry.Bytes(), salt, creationFingerprint.Bytes())
	return common.BytesToAddress(hash[12:]), nil
}

// ObservationBinder is the hook the registry uses to keep oracle observation
// existence in lockstep with pool existence. A nil binder defers observation
// creation to the oracle's first update.
type ObservationBinder interface {
	Create(caller, tokenX, tokenY common.Address) error
}

// Factory registers pools: at most one per unordered token pair, at a
// deterministic address, recorded under both token orderings.
type Factory struct {
	state   Storage
	engine  *Engine
	oracle  ObservationBinder
	emitter events.Emitter
	address common.Address
}

// NewFactory creates a registry with the given identity and a no-op emitter.
func NewFactory(address common.Address) *Factory {
	return &Factory{
		address: address,
		emitter: events.NoopEmitter{},
	}
}

// SetState configures the state backend used by the registry.
func (f *Factory) SetState(state Storage) { f.state = state }

// SetEngine configures the pool engine that initializes new pools.
func (f *Factory) SetEngine(engine *Engine) { f.engine = engine }

// SetOracle configures the observation binder invoked on pool creation.
func (f *Factory) SetOracle(oracle ObservationBinder) { f.oracle = oracle }

// SetEmitter configures the event emitter used by the registry. Passing nil
// resets the emitter to a no-op implementation.
func (f *Factory) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		f.emitter = events.NoopEmitter{}
		return
	}
	f.emitter = emitter
}

// Address returns the registry identity used for deterministic addressing.
func (f *Factory) Address() common.Address { return f.address }

// Initialize writes the fee configuration exactly once. The fee controller is
// the only identity that may change it afterwards.
func (f *Factory) Initialize(feeController common.Address) error {
	if f == nil || f.state == nil {
		return errNilState
	}
	if exists, err := f.state.KVGet(feeConfigKey, nil); err != nil {
		return err
	} else if exists {
		return ErrAlreadyInitialized
	}
	return f.state.KVPut(feeConfigKey, &storedFeeConfig{Controller: feeController})
}

// CreatePool registers a pool for the unordered pair, initializes its token
// binding through the engine, and installs the oracle observation when a
// binder is wired. The returned identity equals PoolAddress for the pair.
func (f *Factory) CreatePool(tokenX, tokenY common.Address) (pool common.Address, err error) {
	if f == nil || f.state == nil {
		return common.Address{}, errNilState
	}
	if f.engine == nil {
		return common.Address{}, errNilState
	}
	token0, token1, err := SortTokens(tokenX, tokenY)
	if err != nil {
		return common.Address{}, err
	}
	if _, exists, err := f.GetPool(token0, token1); err != nil {
		return common.Address{}, err
	} else if exists {
		return common.Address{}, ErrPoolExists
	}

	snap := f.state.Snapshot()
	defer func() {
		if err != nil {
			f.state.RevertToSnapshot(snap)
		}
	}()

	pool, err = PoolAddress(f.address, token0, token1)
	if err != nil {
		return common.Address{}, err
	}
	if err = f.engine.Initialize(f.address, pool, token0, token1); err != nil {
		return common.Address{}, err
	}
	stored := [20]byte(pool)
	if err = f.state.KVPut(pairIndexKey(token0, token1), stored); err != nil {
		return common.Address{}, err
	}
	if err = f.state.KVPut(pairIndexKey(token1, token0), stored); err != nil {
		return common.Address{}, err
	}
	pools, err := f.AllPools()
	if err != nil {
		return common.Address{}, err
	}
	pools = append(pools, pool)
	if err = f.state.KVPut(poolListKey, pools); err != nil {
		return common.Address{}, err
	}
	if f.oracle != nil {
		if err = f.oracle.Create(f.address, token0, token1); err != nil {
			return common.Address{}, err
		}
	}
	f.emit(events.PoolCreated{
		Token0:    token0,
		Token1:    token1,
		Pool:      pool,
		PoolCount: uint64(len(pools)),
	})
	return pool, nil
}

// GetPool resolves the pool registered for the pair in either token order.
func (f *Factory) GetPool(tokenX, tokenY common.Address) (common.Address, bool, error) {
	if f == nil || f.state == nil {
		return common.Address{}, false, errNilState
	}
	var stored [20]byte
	ok, err := f.state.KVGet(pairIndexKey(tokenX, tokenY), &stored)
	if err != nil || !ok {
		return common.Address{}, false, err
	}
	return common.Address(stored), true, nil
}

// AllPools returns every created pool in creation order.
func (f *Factory) AllPools() ([]common.Address, error) {
	if f == nil || f.state == nil {
		return nil, errNilState
	}
	var pools []common.Address
	if _, err := f.state.KVGet(poolListKey, &pools); err != nil {
		return nil, err
	}
	return pools, nil
}

// AllPoolsLength returns the number of created pools.
func (f *Factory) AllPoolsLength() (uint64, error) {
	pools, err := f.AllPools()
	if err != nil {
		return 0, err
	}
	return uint64(len(pools)), nil
}

// FeeRecipient returns the configured protocol-fee recipient, zero when the
// protocol fee is disabled.
func (f *Factory) FeeRecipient() (common.Address, error) {
	cfg, err := f.feeConfig()
	if err != nil {
		return common.Address{}, err
	}
	return common.Address(cfg.Recipient), nil
}

// FeeController returns the identity permitted to change fee settings.
func (f *Factory) FeeController() (common.Address, error) {
	cfg, err := f.feeConfig()
	if err != nil {
		return common.Address{}, err
	}
	return common.Address(cfg.Controller), nil
}

// SetFeeRecipient changes the protocol-fee recipient. Only the current fee
// controller may call it; a zero recipient disables the fee.
func (f *Factory) SetFeeRecipient(caller, recipient common.Address) error {
	cfg, err := f.feeConfig()
	if err != nil {
		return err
	}
	if caller != common.Address(cfg.Controller) {
		return ErrNotFeeController
	}
	cfg.Recipient = recipient
	return f.state.KVPut(feeConfigKey, cfg)
}

// SetFeeController hands fee administration to a new identity. Only the
// current fee controller may call it.
func (f *Factory) SetFeeController(caller, controller common.Address) error {
	cfg, err := f.feeConfig()
	if err != nil {
		return err
	}
	if caller != common.Address(cfg.Controller) {
		return ErrNotFeeController
	}
	cfg.Controller = controller
	return f.state.KVPut(feeConfigKey, cfg)
}

func (f *Factory) feeConfig() (*storedFeeConfig, error) {
	if f == nil || f.state == nil {
		return nil, errNilState
	}
	cfg := &storedFeeConfig{}
	if _, err := f.state.KVGet(feeConfigKey, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *Factory) emit(event events.Event) {
	if f == nil || f.emitter == nil {
		return
	}
	f.emitter.Emit(event)
}
