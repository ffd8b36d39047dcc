package amm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"dexcore/core/events"
)

func TestCreatePoolDeterministicAndSymmetric(t *testing.T) {
	sys := newTestSystem(t)

	predicted, err := PoolAddress(sys.factory.Address(), testTokenB, testTokenA)
	if err != nil {
		t.Fatalf("pool address: %v", err)
	}
	pool := sys.createPool(t, testTokenA, testTokenB)
	if pool != predicted {
		t.Fatalf("expected pool %s, got %s", predicted.Hex(), pool.Hex())
	}

	forward, ok, err := sys.factory.GetPool(testTokenA, testTokenB)
	if err != nil || !ok {
		t.Fatalf("forward lookup failed: ok=%v err=%v", ok, err)
	}
	reverse, ok, err := sys.factory.GetPool(testTokenB, testTokenA)
	if err != nil || !ok {
		t.Fatalf("reverse lookup failed: ok=%v err=%v", ok, err)
	}
	if forward != pool || reverse != pool {
		t.Fatalf("lookups disagree: %s / %s / %s", pool.Hex(), forward.Hex(), reverse.Hex())
	}

	if _, err := sys.factory.CreatePool(testTokenA, testTokenB); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists, got %v", err)
	}
	if _, err := sys.factory.CreatePool(testTokenB, testTokenA); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists for reversed order, got %v", err)
	}

	count, err := sys.factory.AllPoolsLength()
	if err != nil {
		t.Fatalf("pool count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 pool, got %d", count)
	}
}

func TestCreatePoolCanonicalOrder(t *testing.T) {
	sys := newTestSystem(t)
	pool := sys.createPool(t, testTokenB, testTokenA)

	p, err := sys.engine.PoolState(pool)
	if err != nil {
		t.Fatalf("pool state: %v", err)
	}
	if bytes.Compare(p.Token0.Bytes(), p.Token1.Bytes()) >= 0 {
		t.Fatalf("tokens not canonically ordered: %s / %s", p.Token0.Hex(), p.Token1.Hex())
	}
}

func TestCreatePoolValidation(t *testing.T) {
	sys := newTestSystem(t)

	if _, err := sys.factory.CreatePool(testTokenA, testTokenA); !errors.Is(err, ErrIdenticalTokens) {
		t.Fatalf("expected ErrIdenticalTokens, got %v", err)
	}
	if _, err := sys.factory.CreatePool(common.Address{}, testTokenB); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
}

func TestCreatePoolEmitsEvent(t *testing.T) {
	sys := newTestSystem(t)
	pool := sys.createPool(t, testTokenA, testTokenB)

	var created *events.PoolCreated
	for _, evt := range sys.recorder.Events {
		if e, ok := evt.(events.PoolCreated); ok {
			created = &e
		}
	}
	if created == nil {
		t.Fatal("expected PoolCreated event")
	}
	if created.Pool != pool || created.PoolCount != 1 {
		t.Fatalf("unexpected event payload: %+v", created)
	}
	if created.Token0 != testTokenA || created.Token1 != testTokenB {
		t.Fatalf("unexpected ordered tokens: %s / %s", created.Token0.Hex(), created.Token1.Hex())
	}
}

func TestInitializeGating(t *testing.T) {
	sys := newTestSystem(t)
	pool := sys.createPool(t, testTokenA, testTokenB)

	outsider := common.HexToAddress("0x0000000000000000000000000000000000badbad")
	if err := sys.engine.Initialize(outsider, pool, testTokenA, testTokenB); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := sys.engine.Initialize(sys.factory.Address(), pool, testTokenA, testTokenB); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestFeeConfigAuthorization(t *testing.T) {
	sys := newTestSystem(t)

	outsider := common.HexToAddress("0x000000000000000000000000000000000000dead")
	if err := sys.factory.SetFeeRecipient(outsider, feeReceiver); !errors.Is(err, ErrNotFeeController) {
		t.Fatalf("expected ErrNotFeeController, got %v", err)
	}
	if err := sys.factory.SetFeeRecipient(controller, feeReceiver); err != nil {
		t.Fatalf("set fee recipient: %v", err)
	}
	recipient, err := sys.factory.FeeRecipient()
	if err != nil {
		t.Fatalf("fee recipient: %v", err)
	}
	if recipient != feeReceiver {
		t.Fatalf("expected recipient %s, got %s", feeReceiver.Hex(), recipient.Hex())
	}

	successor := common.HexToAddress("0x0000000000000000000000000000000000000c02")
	if err := sys.factory.SetFeeController(outsider, successor); !errors.Is(err, ErrNotFeeController) {
		t.Fatalf("expected ErrNotFeeController, got %v", err)
	}
	if err := sys.factory.SetFeeController(controller, successor); err != nil {
		t.Fatalf("set fee controller: %v", err)
	}
	if err := sys.factory.SetFeeRecipient(controller, feeReceiver); !errors.Is(err, ErrNotFeeController) {
		t.Fatalf("expected old controller to be locked out, got %v", err)
	}
	if err := sys.factory.SetFeeRecipient(successor, common.Address{}); err != nil {
		t.Fatalf("new controller rejected: %v", err)
	}
}

func TestFactoryInitializeOnce(t *testing.T) {
	sys := newTestSystem(t)
	if err := sys.factory.Initialize(controller); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}
