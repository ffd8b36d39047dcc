package token

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNilStore indicates the ledger was used before a store was configured.
	ErrNilStore = errors.New("token: store not configured")
	// ErrInvalidAmount indicates a nil or negative amount was supplied.
	ErrInvalidAmount = errors.New("token: invalid amount")
	// ErrInsufficientBalance indicates the sender holds less than the
	// requested amount.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
)

// Storage abstracts the subset of state manager functionality required by the
// token ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Ledger tracks per-token balances and total supply in the underlying
// key-value store. Any 20-byte identity can denominate a token; liquidity
// pools reuse their own address as the identity of their share token.
type Ledger struct {
	store Storage
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store}
}

// BalanceOf returns the holder's balance of the given token. Missing entries
// read as zero.
func (l *Ledger) BalanceOf(token, holder common.Address) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, ErrNilStore
	}
	balance := new(big.Int)
	if _, err := l.store.KVGet(balanceKey(token, holder), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// TotalSupply returns the outstanding supply of the given token.
func (l *Ledger) TotalSupply(token common.Address) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, ErrNilStore
	}
	supply := new(big.Int)
	if _, err := l.store.KVGet(supplyKey(token), supply); err != nil {
		return nil, err
	}
	return supply, nil
}

// Transfer moves amount of token from one holder to another.
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	if l == nil || l.store == nil {
		return ErrNilStore
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromBalance, err := l.BalanceOf(token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := l.BalanceOf(token, to)
	if err != nil {
		return err
	}
	fromBalance.Sub(fromBalance, amount)
	toBalance.Add(toBalance, amount)
	if err := l.store.KVPut(balanceKey(token, from), fromBalance); err != nil {
		return err
	}
	return l.store.KVPut(balanceKey(token, to), toBalance)
}

// Mint creates amount new units of token credited to the recipient.
func (l *Ledger) Mint(token, to common.Address, amount *big.Int) error {
	if l == nil || l.store == nil {
		return ErrNilStore
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	supply, err := l.TotalSupply(token)
	if err != nil {
		return err
	}
	balance, err := l.BalanceOf(token, to)
	if err != nil {
		return err
	}
	supply.Add(supply, amount)
	balance.Add(balance, amount)
	if err := l.store.KVPut(supplyKey(token), supply); err != nil {
		return err
	}
	return l.store.KVPut(balanceKey(token, to), balance)
}

// Burn destroys amount units of token held by from.
func (l *Ledger) Burn(token, from common.Address, amount *big.Int) error {
	if l == nil || l.store == nil {
		return ErrNilStore
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	balance, err := l.BalanceOf(token, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := l.TotalSupply(token)
	if err != nil {
		return err
	}
	balance.Sub(balance, amount)
	supply.Sub(supply, amount)
	if err := l.store.KVPut(balanceKey(token, from), balance); err != nil {
		return err
	}
	return l.store.KVPut(supplyKey(token), supply)
}
