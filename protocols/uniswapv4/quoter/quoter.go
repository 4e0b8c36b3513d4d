// Package quoter quotes single pool swaps against the V4 pool manager without
// changing its state.
//
// A quote opens an unlock scope, re-enters the quoter through a self call,
// executes the swap and then reverts with QuoteSwap(amount). The revert rolls
// the manager back while the amount travels out in the revert payload. The
// caller sees one of three outcomes: a decoded amount, a typed pool failure,
// or a protocol failure meaning the mechanism itself cannot be trusted.
package quoter

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/owlprotocol/veraswap-sub000/gas"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickmath"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/poolmanager"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/revert"
)

const (
	methodExactInputSingle  = "_quoteExactInputSingle"
	methodExactOutputSingle = "_quoteExactOutputSingle"
)

const selfABI = `[
	{"type":"function","name":"_quoteExactInputSingle","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[
		{"name":"poolKey","type":"tuple","components":[
			{"name":"currency0","type":"address"},
			{"name":"currency1","type":"address"},
			{"name":"fee","type":"uint24"},
			{"name":"tickSpacing","type":"int24"},
			{"name":"hooks","type":"address"}
		]},
		{"name":"zeroForOne","type":"bool"},
		{"name":"exactAmount","type":"uint128"},
		{"name":"hookData","type":"bytes"}
	]}],"outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"_quoteExactOutputSingle","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[
		{"name":"poolKey","type":"tuple","components":[
			{"name":"currency0","type":"address"},
			{"name":"currency1","type":"address"},
			{"name":"fee","type":"uint24"},
			{"name":"tickSpacing","type":"int24"},
			{"name":"hooks","type":"address"}
		]},
		{"name":"zeroForOne","type":"bool"},
		{"name":"exactAmount","type":"uint128"},
		{"name":"hookData","type":"bytes"}
	]}],"outputs":[{"name":"","type":"bytes"}]}
]`

var quoterABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(selfABI))
	if err != nil {
		panic(fmt.Sprintf("parse quoter abi: %v", err))
	}
	return parsed
}()

// abiPoolKey and abiQuoteParams mirror the tuple layout of selfABI.
type abiPoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

type abiQuoteParams struct {
	PoolKey     abiPoolKey
	ZeroForOne  bool
	ExactAmount *big.Int
	HookData    []byte
}

// QuoteExactSingleParams describes a swap against one pool.
type QuoteExactSingleParams struct {
	PoolKey     uniswapv4.PoolKey
	ZeroForOne  bool
	ExactAmount *big.Int
	HookData    []byte
}

// Quote is the counterparty amount of a simulated swap and the gas the
// simulated call consumed.
type Quote struct {
	Amount      *big.Int
	GasEstimate uint64
}

type options struct {
	schedule gas.Schedule
	gasLimit uint64
}

// Option configures a Quoter.
type Option func(*options)

// WithSchedule sets the schedule used to price the quoter's own overhead.
func WithSchedule(s gas.Schedule) Option {
	return func(o *options) { o.schedule = s }
}

// WithGasLimit bounds the gas a single quote may consume. Zero is unbounded.
func WithGasLimit(limit uint64) Option {
	return func(o *options) { o.gasLimit = limit }
}

// Quoter is the simulate-and-revert adapter for one pool manager.
type Quoter struct {
	address common.Address
	manager *poolmanager.PoolManager
	opts    options
}

// New returns a quoter deployed at address, bound to manager.
func New(address common.Address, manager *poolmanager.PoolManager, opts ...Option) (*Quoter, error) {
	if address == (common.Address{}) {
		return nil, errors.New("quoter address must be non-zero")
	}
	if manager == nil {
		return nil, errors.New("pool manager is required")
	}
	o := options{schedule: gas.DefaultSchedule()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Quoter{address: address, manager: manager, opts: o}, nil
}

// Address implements poolmanager.Locker.
func (q *Quoter) Address() common.Address {
	return q.address
}

// QuoteExactInputSingle returns the output of swapping ExactAmount in.
func (q *Quoter) QuoteExactInputSingle(params QuoteExactSingleParams) (Quote, error) {
	return q.quote(methodExactInputSingle, params)
}

// QuoteExactOutputSingle returns the input required to receive ExactAmount.
func (q *Quoter) QuoteExactOutputSingle(params QuoteExactSingleParams) (Quote, error) {
	return q.quote(methodExactOutputSingle, params)
}

func (q *Quoter) quote(method string, params QuoteExactSingleParams) (Quote, error) {
	if params.ExactAmount == nil || params.ExactAmount.Sign() <= 0 || params.ExactAmount.BitLen() > 128 {
		return Quote{}, ErrInvalidAmount
	}
	data, err := quoterABI.Pack(method, toABI(params))
	if err != nil {
		return Quote{}, fmt.Errorf("encode %s: %w", method, err)
	}

	meter := gas.NewMeter(q.opts.gasLimit)
	if err := meter.Charge(q.opts.schedule.QuoterCall); err != nil {
		return Quote{}, err
	}
	_, err = q.manager.Unlock(meter, q, data)
	if err == nil {
		// the scope committed, which a quote must never do
		return Quote{}, reverts.Revert(ErrUnexpectedCallSuccess)
	}
	var rev *revert.Error
	if !errors.As(err, &rev) {
		return Quote{}, err
	}
	return parseQuote(rev, meter.Used())
}

// parseQuote classifies the payload of a reverted quote.
func parseQuote(rev *revert.Error, gasUsed uint64) (Quote, error) {
	decoded, err := reverts.Decode(rev.Data)
	if err != nil {
		return Quote{}, reverts.Revert(ErrUnexpectedRevertBytes, rev.Data)
	}
	switch decoded.Sentinel {
	case errQuoteSwap:
		return Quote{Amount: decoded.Args[0].(*big.Int), GasEstimate: gasUsed}, nil
	case ErrNotEnoughLiquidity, poolmanager.ErrPoolNotInitialized,
		poolmanager.ErrPriceLimitAlreadyExceeded, poolmanager.ErrInvalidFeeForExactOut,
		ErrNotSelf, ErrNotPoolManager, poolmanager.ErrInvalidCallbackAddress,
		ErrUnexpectedCallSuccess, ErrUnexpectedRevertBytes:
		return Quote{}, reverts.Recognize(rev)
	}
	return Quote{}, reverts.Revert(ErrUnexpectedRevertBytes, rev.Data)
}

// UnlockCallback implements poolmanager.Locker. Only the bound manager may
// call it; it forwards data to the quoter itself so the self call checks
// apply.
func (q *Quoter) UnlockCallback(scope *poolmanager.Scope, data []byte) ([]byte, error) {
	if scope.Sender() != q.manager.Address() {
		return nil, reverts.Revert(ErrNotPoolManager)
	}
	return q.Call(q.address, scope, data)
}

// Call executes one of the quoter's self-only entry points on behalf of
// sender. On success it never returns normally: the result is delivered as a
// QuoteSwap revert.
func (q *Quoter) Call(sender common.Address, scope *poolmanager.Scope, data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: short calldata", ErrUnknownMethod)
	}
	method, err := quoterABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, err)
	}
	if sender != q.address {
		return nil, reverts.Revert(ErrNotSelf)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method.Name, err)
	}
	params := *abi.ConvertType(args[0], new(abiQuoteParams)).(*abiQuoteParams)
	key := fromABI(params.PoolKey)

	switch method.Name {
	case methodExactInputSingle:
		delta, err := swap(scope, key, params.ZeroForOne, new(big.Int).Neg(params.ExactAmount), params.HookData)
		if err != nil {
			return nil, err
		}
		amountOut := delta.Amount0
		if params.ZeroForOne {
			amountOut = delta.Amount1
		}
		return nil, reverts.Revert(errQuoteSwap, amountOut)
	case methodExactOutputSingle:
		delta, err := swap(scope, key, params.ZeroForOne, params.ExactAmount, params.HookData)
		if err != nil {
			return nil, err
		}
		paid := delta.Amount1
		if params.ZeroForOne {
			paid = delta.Amount0
		}
		return nil, reverts.Revert(errQuoteSwap, new(big.Int).Neg(paid))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
}

// swap executes a swap with the widest price limit and requires the specified
// side of the delta to be filled exactly.
func swap(scope *poolmanager.Scope, key uniswapv4.PoolKey, zeroForOne bool, amountSpecified *big.Int, hookData []byte) (uniswapv4.BalanceDelta, error) {
	limit := tickmath.MaxSqrtPriceLimit
	if zeroForOne {
		limit = tickmath.MinSqrtPriceLimit
	}
	delta, err := scope.Swap(key, uniswapv4.SwapParams{
		ZeroForOne:        zeroForOne,
		AmountSpecified:   amountSpecified,
		SqrtPriceLimitX96: limit,
	}, hookData)
	if err != nil {
		return uniswapv4.BalanceDelta{}, err
	}

	actual := delta.Amount1
	if zeroForOne == (amountSpecified.Sign() < 0) {
		actual = delta.Amount0
	}
	if actual.Cmp(amountSpecified) != 0 {
		return uniswapv4.BalanceDelta{}, reverts.Revert(ErrNotEnoughLiquidity, [32]byte(key.ID()))
	}
	return delta, nil
}

func toABI(p QuoteExactSingleParams) abiQuoteParams {
	hookData := p.HookData
	if hookData == nil {
		hookData = []byte{}
	}
	return abiQuoteParams{
		PoolKey: abiPoolKey{
			Currency0:   p.PoolKey.Currency0.Address(),
			Currency1:   p.PoolKey.Currency1.Address(),
			Fee:         new(big.Int).SetUint64(uint64(p.PoolKey.Fee)),
			TickSpacing: big.NewInt(int64(p.PoolKey.TickSpacing)),
			Hooks:       p.PoolKey.Hooks,
		},
		ZeroForOne:  p.ZeroForOne,
		ExactAmount: p.ExactAmount,
		HookData:    hookData,
	}
}

func fromABI(k abiPoolKey) uniswapv4.PoolKey {
	return uniswapv4.PoolKey{
		Currency0:   currency.FromAddress(k.Currency0),
		Currency1:   currency.FromAddress(k.Currency1),
		Fee:         uint32(k.Fee.Uint64()),
		TickSpacing: int32(k.TickSpacing.Int64()),
		Hooks:       k.Hooks,
	}
}
