package uniswapv3

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/liquiditymath"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/swapmath"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickbitmap"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickmath"
)

var (
	ErrInvalidAmount      = errors.New("amount specified must be non-zero")
	ErrInvalidPoolState   = errors.New("pool state is incomplete")
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrNotEnoughLiquidity = errors.New("not enough liquidity")
	// ErrPriceLimitAlreadyExceeded is returned when the limit lies behind the
	// current price in the swap direction.
	ErrPriceLimitAlreadyExceeded = errors.New("price limit already exceeded")
	// ErrPriceLimitOutOfBounds is returned when the limit lies outside the
	// representable price range.
	ErrPriceLimitOutOfBounds = errors.New("price limit out of bounds")
)

// SwapParams describes one swap against a pool state.
type SwapParams struct {
	ZeroForOne bool
	// AmountSpecified is positive for exact input and negative for exact
	// output of its magnitude.
	AmountSpecified *big.Int
	// SqrtPriceLimitX96 bounds the price movement. nil selects the widest
	// limit for the direction.
	SqrtPriceLimitX96 *big.Int
	FeePips           uint32
	TickSpacing       int32
}

// SwapResult is the outcome of a simulated swap. The input pool state is never
// modified; the resulting price, tick and liquidity are returned here.
type SwapResult struct {
	// AmountIn includes fees.
	AmountIn  *big.Int
	AmountOut *big.Int
	// AmountSpecifiedRemaining is the part of AmountSpecified that could not
	// be filled before the price limit was reached.
	AmountSpecifiedRemaining *big.Int
	SqrtPriceX96             *big.Int
	Tick                     int32
	Liquidity                *big.Int
	// TicksCrossed counts initialized ticks crossed.
	TicksCrossed uint32
	// Steps counts swap steps, one per visited tick range.
	Steps uint32
}

// Filled reports whether the whole specified amount was swapped.
func (r SwapResult) Filled() bool {
	return r.AmountSpecifiedRemaining.Sign() == 0
}

// swapState carries the running values of one tick walk.
type swapState struct {
	remaining    *big.Int
	amountIn     *big.Int
	amountOut    *big.Int
	sqrtPriceX96 *big.Int
	liquidity    *big.Int
	tick         int32

	sqrtPriceStartX96 *big.Int
	sqrtPriceNextX96  *big.Int
	liquidityNet      *big.Int
	paid              *big.Int
	step              *swapmath.Step
}

var swapStatePool = sync.Pool{
	New: func() any {
		return &swapState{
			remaining:         new(big.Int),
			amountIn:          new(big.Int),
			amountOut:         new(big.Int),
			sqrtPriceX96:      new(big.Int),
			liquidity:         new(big.Int),
			sqrtPriceStartX96: new(big.Int),
			sqrtPriceNextX96:  new(big.Int),
			liquidityNet:      new(big.Int),
			paid:              new(big.Int),
			step:              swapmath.NewStep(),
		}
	},
}

// Swap walks the pool's liquidity from its current tick in the swap direction,
// stepping from one initialized tick to the next through the bitmap, until the
// specified amount is filled or the price reaches the limit. Both exact input
// and exact output go through the same walk.
func Swap(state uniswapv3.PoolState, bitmap tickbitmap.TickBitmap, params SwapParams) (SwapResult, error) {
	if params.AmountSpecified == nil || params.AmountSpecified.Sign() == 0 {
		return SwapResult{}, ErrInvalidAmount
	}
	if state.SqrtPriceX96 == nil || state.Liquidity == nil {
		return SwapResult{}, ErrInvalidPoolState
	}
	if params.TickSpacing <= 0 {
		return SwapResult{}, fmt.Errorf("%w: tick spacing %d", ErrInvalidPoolState, params.TickSpacing)
	}
	limit, err := priceLimit(state.SqrtPriceX96, params)
	if err != nil {
		return SwapResult{}, err
	}

	s := swapStatePool.Get().(*swapState)
	defer swapStatePool.Put(s)

	s.remaining.Set(params.AmountSpecified)
	s.amountIn.SetUint64(0)
	s.amountOut.SetUint64(0)
	s.sqrtPriceX96.Set(state.SqrtPriceX96)
	s.liquidity.Set(state.Liquidity)
	s.tick = state.Tick

	exactInput := params.AmountSpecified.Sign() > 0
	zeroForOne := params.ZeroForOne
	var crossed, steps uint32

	for s.remaining.Sign() != 0 && s.sqrtPriceX96.Cmp(limit) != 0 {
		s.sqrtPriceStartX96.Set(s.sqrtPriceX96)

		tickNext, initialized := bitmap.NextInitializedTickWithinOneWord(s.tick, params.TickSpacing, zeroForOne)
		tickNext = min(max(tickNext, tickmath.MIN_TICK), tickmath.MAX_TICK)
		if err := tickmath.GetSqrtRatioAtTick(s.sqrtPriceNextX96, tickNext); err != nil {
			return SwapResult{}, err
		}

		target := swapmath.GetSqrtPriceTarget(zeroForOne, s.sqrtPriceNextX96, limit)
		if err := swapmath.ComputeSwapStep(s.step, s.sqrtPriceX96, target, s.liquidity, s.remaining, params.FeePips); err != nil {
			return SwapResult{}, fmt.Errorf("step at tick %d: %w", s.tick, err)
		}
		steps++
		s.sqrtPriceX96.Set(s.step.SqrtPriceNextX96)

		s.paid.Add(s.step.AmountIn, s.step.FeeAmount)
		s.amountIn.Add(s.amountIn, s.paid)
		s.amountOut.Add(s.amountOut, s.step.AmountOut)
		if exactInput {
			s.remaining.Sub(s.remaining, s.paid)
		} else {
			s.remaining.Add(s.remaining, s.step.AmountOut)
		}

		switch {
		case s.sqrtPriceX96.Cmp(s.sqrtPriceNextX96) == 0:
			if initialized {
				if liquidityNet(state.Ticks, tickNext, s.liquidityNet) {
					if zeroForOne {
						s.liquidityNet.Neg(s.liquidityNet)
					}
					if err := liquiditymath.AddDelta(s.liquidity, s.liquidity, s.liquidityNet); err != nil {
						return SwapResult{}, fmt.Errorf("crossing tick %d: %w", tickNext, err)
					}
				}
				crossed++
			}
			if zeroForOne {
				s.tick = tickNext - 1
			} else {
				s.tick = tickNext
			}
		case s.sqrtPriceX96.Cmp(s.sqrtPriceStartX96) != 0:
			tick, err := tickmath.GetTickAtSqrtRatio(s.sqrtPriceX96)
			if err != nil {
				return SwapResult{}, err
			}
			s.tick = tick
		}
	}

	return SwapResult{
		AmountIn:                 new(big.Int).Set(s.amountIn),
		AmountOut:                new(big.Int).Set(s.amountOut),
		AmountSpecifiedRemaining: new(big.Int).Set(s.remaining),
		SqrtPriceX96:             new(big.Int).Set(s.sqrtPriceX96),
		Tick:                     s.tick,
		Liquidity:                new(big.Int).Set(s.liquidity),
		TicksCrossed:             crossed,
		Steps:                    steps,
	}, nil
}

func priceLimit(sqrtPriceX96 *big.Int, params SwapParams) (*big.Int, error) {
	limit := params.SqrtPriceLimitX96
	if params.ZeroForOne {
		if limit == nil {
			limit = tickmath.MinSqrtPriceLimit
		}
		if limit.Cmp(sqrtPriceX96) >= 0 {
			return nil, fmt.Errorf("%w: limit %s, price %s", ErrPriceLimitAlreadyExceeded, limit, sqrtPriceX96)
		}
		if limit.Cmp(tickmath.MIN_SQRT_RATIO) <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrPriceLimitOutOfBounds, limit)
		}
		return limit, nil
	}
	if limit == nil {
		limit = tickmath.MaxSqrtPriceLimit
	}
	if limit.Cmp(sqrtPriceX96) <= 0 {
		return nil, fmt.Errorf("%w: limit %s, price %s", ErrPriceLimitAlreadyExceeded, limit, sqrtPriceX96)
	}
	if limit.Cmp(tickmath.MAX_SQRT_RATIO) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrPriceLimitOutOfBounds, limit)
	}
	return limit, nil
}

// liquidityNet copies the net liquidity of an initialized tick into dest.
// ticks must be sorted by index.
func liquidityNet(ticks []uniswapv3.TickInfo, index int32, dest *big.Int) bool {
	i, found := slices.BinarySearchFunc(ticks, index, func(t uniswapv3.TickInfo, target int32) int {
		switch {
		case t.Index < target:
			return -1
		case t.Index > target:
			return 1
		}
		return 0
	})
	if !found || ticks[i].LiquidityNet == nil {
		return false
	}
	dest.Set(ticks[i].LiquidityNet)
	return true
}

// Quote is the result of a fully filled single-pool quote.
type Quote struct {
	// Amount is the output for exact input, or the required input for exact output.
	Amount       *big.Int
	TicksCrossed uint32
	Steps        uint32
}

// QuotePool prices an exact amount of currencyIn (exactInput) or of the
// opposite currency (exact output) against a pool. A swap that cannot be fully
// filled before the price bound fails with ErrNotEnoughLiquidity.
func QuotePool(
	amount *big.Int,
	currencyIn currency.Currency,
	exactInput bool,
	pool uniswapv3.Pool,
	bitmap tickbitmap.TickBitmap,
) (Quote, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Quote{}, ErrInvalidAmount
	}
	zeroForOne, err := direction(currencyIn, pool)
	if err != nil {
		return Quote{}, err
	}

	specified := new(big.Int).Set(amount)
	if !exactInput {
		specified.Neg(specified)
	}
	res, err := Swap(pool.PoolState, bitmap, SwapParams{
		ZeroForOne:      zeroForOne,
		AmountSpecified: specified,
		FeePips:         pool.Fee,
		TickSpacing:     pool.TickSpacing,
	})
	if err != nil {
		return Quote{}, err
	}
	if !res.Filled() {
		return Quote{}, fmt.Errorf("%w: pool %s/%s fee %d, %s of %s unfilled",
			ErrNotEnoughLiquidity, pool.Currency0, pool.Currency1, pool.Fee, res.AmountSpecifiedRemaining, specified)
	}

	q := Quote{Amount: res.AmountOut, TicksCrossed: res.TicksCrossed, Steps: res.Steps}
	if !exactInput {
		q.Amount = res.AmountIn
	}
	return q, nil
}

// GetAmountOut returns the output bought by an exact amountIn of currencyIn.
func GetAmountOut(amountIn *big.Int, currencyIn currency.Currency, pool uniswapv3.Pool, bitmap tickbitmap.TickBitmap) (*big.Int, error) {
	q, err := QuotePool(amountIn, currencyIn, true, pool, bitmap)
	if err != nil {
		return nil, err
	}
	return q.Amount, nil
}

// GetAmountIn returns the input of currencyIn required to buy an exact amountOut.
func GetAmountIn(amountOut *big.Int, currencyIn currency.Currency, pool uniswapv3.Pool, bitmap tickbitmap.TickBitmap) (*big.Int, error) {
	q, err := QuotePool(amountOut, currencyIn, false, pool, bitmap)
	if err != nil {
		return nil, err
	}
	return q.Amount, nil
}

func direction(currencyIn currency.Currency, pool uniswapv3.Pool) (zeroForOne bool, err error) {
	switch currencyIn {
	case pool.Currency0:
		return true, nil
	case pool.Currency1:
		return false, nil
	}
	return false, fmt.Errorf("%w: pool %s/%s does not contain %s", ErrCurrencyMismatch, pool.Currency0, pool.Currency1, currencyIn)
}
