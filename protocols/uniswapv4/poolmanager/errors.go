package poolmanager

import (
	"errors"

	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/revert"
)

var (
	ErrPoolNotInitialized        = errors.New("pool not initialized")
	ErrCurrencyNotSettled        = errors.New("currency not settled")
	ErrManagerLocked             = errors.New("manager locked")
	ErrSwapAmountCannotBeZero    = errors.New("swap amount cannot be zero")
	ErrInvalidCallbackAddress    = errors.New("invalid callback address")
	ErrPriceLimitAlreadyExceeded = errors.New("price limit already exceeded")
	ErrPriceLimitOutOfBounds     = errors.New("price limit out of bounds")
	ErrInvalidFeeForExactOut     = errors.New("invalid fee for exact out")
	ErrPoolAlreadyInitialized    = errors.New("pool already initialized")
)

// ErrorsABI holds the custom errors the manager reverts with.
const ErrorsABI = `[
	{"type":"error","name":"PoolNotInitialized","inputs":[]},
	{"type":"error","name":"CurrencyNotSettled","inputs":[]},
	{"type":"error","name":"ManagerLocked","inputs":[]},
	{"type":"error","name":"SwapAmountCannotBeZero","inputs":[]},
	{"type":"error","name":"InvalidCallbackAddress","inputs":[]},
	{"type":"error","name":"PriceLimitAlreadyExceeded","inputs":[{"name":"sqrtPriceCurrentX96","type":"uint160"},{"name":"sqrtPriceLimitX96","type":"uint160"}]},
	{"type":"error","name":"PriceLimitOutOfBounds","inputs":[{"name":"sqrtPriceLimitX96","type":"uint160"}]},
	{"type":"error","name":"InvalidFeeForExactOut","inputs":[]}
]`

// ErrorSentinels binds ErrorsABI definitions to this package's errors.
var ErrorSentinels = map[string]error{
	"PoolNotInitialized":        ErrPoolNotInitialized,
	"CurrencyNotSettled":        ErrCurrencyNotSettled,
	"ManagerLocked":             ErrManagerLocked,
	"SwapAmountCannotBeZero":    ErrSwapAmountCannotBeZero,
	"InvalidCallbackAddress":    ErrInvalidCallbackAddress,
	"PriceLimitAlreadyExceeded": ErrPriceLimitAlreadyExceeded,
	"PriceLimitOutOfBounds":     ErrPriceLimitOutOfBounds,
	"InvalidFeeForExactOut":     ErrInvalidFeeForExactOut,
}

var reverts = revert.MustRegistry(ErrorSentinels, ErrorsABI)
