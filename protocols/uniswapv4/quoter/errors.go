package quoter

import (
	"errors"
	"maps"

	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/poolmanager"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/revert"
)

var (
	ErrInvalidAmount         = errors.New("exact amount must be positive and fit in uint128")
	ErrNotEnoughLiquidity    = errors.New("not enough liquidity")
	ErrNotSelf               = errors.New("not self")
	ErrNotPoolManager        = errors.New("not pool manager")
	ErrUnexpectedCallSuccess = errors.New("unexpected call success")
	ErrUnexpectedRevertBytes = errors.New("unexpected revert bytes")
	ErrUnknownMethod         = errors.New("unknown quoter method")

	// errQuoteSwap carries a computed amount out of the unlock scope.
	errQuoteSwap = errors.New("quote swap")
)

// ErrorsABI holds the custom errors the quoter reverts with.
const ErrorsABI = `[
	{"type":"error","name":"QuoteSwap","inputs":[{"name":"amount","type":"uint256"}]},
	{"type":"error","name":"NotEnoughLiquidity","inputs":[{"name":"poolId","type":"bytes32"}]},
	{"type":"error","name":"NotSelf","inputs":[]},
	{"type":"error","name":"NotPoolManager","inputs":[]},
	{"type":"error","name":"UnexpectedCallSuccess","inputs":[]},
	{"type":"error","name":"UnexpectedRevertBytes","inputs":[{"name":"revertData","type":"bytes"}]}
]`

var reverts = func() *revert.Registry {
	sentinels := map[string]error{
		"QuoteSwap":             errQuoteSwap,
		"NotEnoughLiquidity":    ErrNotEnoughLiquidity,
		"NotSelf":               ErrNotSelf,
		"NotPoolManager":        ErrNotPoolManager,
		"UnexpectedCallSuccess": ErrUnexpectedCallSuccess,
		"UnexpectedRevertBytes": ErrUnexpectedRevertBytes,
	}
	maps.Copy(sentinels, poolmanager.ErrorSentinels)
	return revert.MustRegistry(sentinels, poolmanager.ErrorsABI, ErrorsABI)
}()
