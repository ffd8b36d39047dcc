package amm

import "errors"

var (
	// ErrIdenticalTokens indicates both sides of a pair used the same token.
	ErrIdenticalTokens = errors.New("amm: identical tokens")
	// ErrZeroAddress indicates the null token identity was supplied.
	ErrZeroAddress = errors.New("amm: zero address")
	// ErrPoolExists indicates a pool is already registered for the pair.
	ErrPoolExists = errors.New("amm: pool exists")
	// ErrPoolNotFound indicates no pool is registered at the given identity.
	ErrPoolNotFound = errors.New("amm: pool not found")
	// ErrNotFeeController indicates the caller may not change fee settings.
	ErrNotFeeController = errors.New("amm: not fee controller")
	// ErrForbidden indicates a pool mutation reserved for the registry.
	ErrForbidden = errors.New("amm: forbidden")
	// ErrAlreadyInitialized indicates a second initialization attempt.
	ErrAlreadyInitialized = errors.New("amm: already initialized")
	// ErrInsufficientLiquidityMinted indicates a deposit too small to mint
	// any shares.
	ErrInsufficientLiquidityMinted = errors.New("amm: insufficient liquidity minted")
	// ErrInsufficientLiquidityBurned indicates a burn that would release no
	// tokens on at least one side.
	ErrInsufficientLiquidityBurned = errors.New("amm: insufficient liquidity burned")
	// ErrInsufficientOutputAmount indicates a swap requesting no output.
	ErrInsufficientOutputAmount = errors.New("amm: insufficient output amount")
	// ErrInsufficientLiquidity indicates a swap output exceeding reserves.
	ErrInsufficientLiquidity = errors.New("amm: insufficient liquidity")
	// ErrInsufficientInputAmount indicates a swap that supplied no input.
	ErrInsufficientInputAmount = errors.New("amm: insufficient input amount")
	// ErrKInvariant indicates the fee-adjusted constant product decreased.
	ErrKInvariant = errors.New("amm: k invariant violated")
	// ErrInvalidTo indicates a swap destination equal to a pooled token.
	ErrInvalidTo = errors.New("amm: invalid to address")
	// ErrInvalidAmount indicates a nil or negative amount was supplied.
	ErrInvalidAmount = errors.New("amm: invalid amount")
	// ErrLocked indicates a reentrant call into a pool's mutating entry
	// points.
	ErrLocked = errors.New("amm: pool locked")
	// ErrOverflow indicates a balance beyond the 112-bit reserve width.
	ErrOverflow = errors.New("amm: reserve overflow")
	// ErrNoCallee indicates swap data was supplied but no callee is
	// registered for the destination.
	ErrNoCallee = errors.New("amm: no swap callee registered")

	errNilState  = errors.New("amm: state not configured")
	errNilTokens = errors.New("amm: token ledger not configured")
)
