package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"dexcore/state"
	"dexcore/storage"
)

var (
	asset = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b22")
)

func newLedger() *Ledger {
	return NewLedger(state.NewManager(storage.NewMemDB()))
}

func TestMintTransferBurn(t *testing.T) {
	ledger := newLedger()

	if err := ledger.Mint(asset, alice, big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(asset, alice, bob, big.NewInt(200)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := ledger.Burn(asset, bob, big.NewInt(50)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	aliceBalance, err := ledger.BalanceOf(asset, alice)
	if err != nil {
		t.Fatalf("balance alice: %v", err)
	}
	if aliceBalance.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected alice 300, got %s", aliceBalance)
	}
	bobBalance, err := ledger.BalanceOf(asset, bob)
	if err != nil {
		t.Fatalf("balance bob: %v", err)
	}
	if bobBalance.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("expected bob 150, got %s", bobBalance)
	}
	supply, err := ledger.TotalSupply(asset)
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Cmp(big.NewInt(450)) != 0 {
		t.Fatalf("expected supply 450, got %s", supply)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	ledger := newLedger()
	if err := ledger.Mint(asset, alice, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(asset, alice, bob, big.NewInt(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.Burn(asset, alice, big.NewInt(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance on burn, got %v", err)
	}
}

func TestInvalidAmounts(t *testing.T) {
	ledger := newLedger()
	if err := ledger.Transfer(asset, alice, bob, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for nil, got %v", err)
	}
	if err := ledger.Mint(asset, alice, big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
}

func TestZeroAndSelfTransferNoop(t *testing.T) {
	ledger := newLedger()
	if err := ledger.Mint(asset, alice, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(asset, alice, bob, big.NewInt(0)); err != nil {
		t.Fatalf("zero transfer: %v", err)
	}
	if err := ledger.Transfer(asset, alice, alice, big.NewInt(5)); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	balance, err := ledger.BalanceOf(asset, alice)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected balance unchanged, got %s", balance)
	}
}
