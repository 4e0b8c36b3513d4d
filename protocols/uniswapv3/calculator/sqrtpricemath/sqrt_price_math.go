// Package sqrtpricemath computes price movements and token deltas over a
// constant liquidity range in Q64.96 sqrt price space.
package sqrtpricemath

import (
	"errors"
	"math/big"
	"sync"
)

// Resolution is the number of fractional bits of a Q64.96 value.
const Resolution = 96

var (
	// Q96 is 1.0 in Q64.96.
	Q96 = new(big.Int).Lsh(big.NewInt(1), Resolution)

	ErrLiquidityZero          = errors.New("liquidity must be greater than zero")
	ErrSqrtPriceZero          = errors.New("sqrt price must be greater than zero")
	ErrPriceUnderflow         = errors.New("output exceeds available reserves at this price")
	ErrDenominatorNonPositive = errors.New("denominator underflow")
)

// workspace carries the intermediates of a single price computation.
type workspace struct {
	num   *big.Int
	den   *big.Int
	prod  *big.Int
	tmp   *big.Int
	quo   *big.Int
	rem   *big.Int
	delta *big.Int
}

var workspaces = sync.Pool{
	New: func() any {
		return &workspace{
			num:   new(big.Int),
			den:   new(big.Int),
			prod:  new(big.Int),
			tmp:   new(big.Int),
			quo:   new(big.Int),
			rem:   new(big.Int),
			delta: new(big.Int),
		}
	},
}

func acquire() *workspace { return workspaces.Get().(*workspace) }

func release(w *workspace) { workspaces.Put(w) }

// floorMulDiv sets dest to floor(a*b/c).
func (w *workspace) floorMulDiv(dest, a, b, c *big.Int) *big.Int {
	w.prod.Mul(a, b)
	return dest.Quo(w.prod, c)
}

// ceilMulDiv sets dest to ceil(a*b/c).
func (w *workspace) ceilMulDiv(dest, a, b, c *big.Int) *big.Int {
	w.prod.Mul(a, b)
	return w.ceilDiv(dest, w.prod, c)
}

// ceilDiv sets dest to ceil(a/b) for non-negative operands.
func (w *workspace) ceilDiv(dest, a, b *big.Int) *big.Int {
	dest.QuoRem(a, b, w.rem)
	if w.rem.Sign() != 0 {
		dest.Add(dest, bigOne)
	}
	return dest
}

var bigOne = big.NewInt(1)

// GetNextSqrtPriceFromInput returns in dest the price reached after adding
// amountIn of the input currency. Rounding favours the pool.
func GetNextSqrtPriceFromInput(dest, sqrtPX96, liquidity, amountIn *big.Int, zeroForOne bool) error {
	if err := checkPriceAndLiquidity(sqrtPX96, liquidity); err != nil {
		return err
	}
	w := acquire()
	defer release(w)
	if zeroForOne {
		return w.nextFromAmount0(dest, sqrtPX96, liquidity, amountIn, true)
	}
	return w.nextFromAmount1(dest, sqrtPX96, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput returns in dest the price reached after
// removing amountOut of the output currency.
func GetNextSqrtPriceFromOutput(dest, sqrtPX96, liquidity, amountOut *big.Int, zeroForOne bool) error {
	if err := checkPriceAndLiquidity(sqrtPX96, liquidity); err != nil {
		return err
	}
	w := acquire()
	defer release(w)
	if zeroForOne {
		return w.nextFromAmount1(dest, sqrtPX96, liquidity, amountOut, false)
	}
	return w.nextFromAmount0(dest, sqrtPX96, liquidity, amountOut, false)
}

// GetNextSqrtPriceFromAmount0RoundingUp moves the price by amount of
// currency0, rounding the result up.
func GetNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amount *big.Int, add bool) error {
	w := acquire()
	defer release(w)
	return w.nextFromAmount0(dest, sqrtPX96, liquidity, amount, add)
}

// GetNextSqrtPriceFromAmount1RoundingDown moves the price by amount of
// currency1, rounding the result down.
func GetNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amount *big.Int, add bool) error {
	w := acquire()
	defer release(w)
	return w.nextFromAmount1(dest, sqrtPX96, liquidity, amount, add)
}

func checkPriceAndLiquidity(sqrtPX96, liquidity *big.Int) error {
	if sqrtPX96.Sign() <= 0 {
		return ErrSqrtPriceZero
	}
	if liquidity.Sign() <= 0 {
		return ErrLiquidityZero
	}
	return nil
}

// nextFromAmount0 computes L*P / (L ± amount*P) with L shifted into Q96.
func (w *workspace) nextFromAmount0(dest, sqrtPX96, liquidity, amount *big.Int, add bool) error {
	if amount.Sign() == 0 {
		dest.Set(sqrtPX96)
		return nil
	}
	w.num.Lsh(liquidity, Resolution)
	w.tmp.Mul(amount, sqrtPX96)
	if add {
		w.den.Add(w.num, w.tmp)
	} else {
		if w.num.Cmp(w.tmp) <= 0 {
			return ErrDenominatorNonPositive
		}
		w.den.Sub(w.num, w.tmp)
	}
	w.ceilMulDiv(dest, w.num, sqrtPX96, w.den)
	return nil
}

// nextFromAmount1 computes P ± amount/L in Q96.
func (w *workspace) nextFromAmount1(dest, sqrtPX96, liquidity, amount *big.Int, add bool) error {
	if add {
		w.floorMulDiv(w.quo, amount, Q96, liquidity)
		dest.Add(sqrtPX96, w.quo)
		return nil
	}
	w.ceilMulDiv(w.quo, amount, Q96, liquidity)
	if sqrtPX96.Cmp(w.quo) <= 0 {
		return ErrPriceUnderflow
	}
	dest.Sub(sqrtPX96, w.quo)
	return nil
}

// GetAmount0Delta returns in dest the currency0 amount between two prices
// for the given liquidity. The prices may be passed in either order.
func GetAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) error {
	lower, upper := ordered(sqrtRatioAX96, sqrtRatioBX96)
	if lower.Sign() <= 0 {
		return ErrSqrtPriceZero
	}
	w := acquire()
	defer release(w)

	w.num.Lsh(liquidity, Resolution)
	w.delta.Sub(upper, lower)
	if roundUp {
		w.ceilMulDiv(w.tmp, w.num, w.delta, upper)
		w.ceilDiv(dest, w.tmp, lower)
		return nil
	}
	w.floorMulDiv(w.tmp, w.num, w.delta, upper)
	dest.Quo(w.tmp, lower)
	return nil
}

// GetAmount1Delta returns in dest the currency1 amount between two prices
// for the given liquidity.
func GetAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) {
	lower, upper := ordered(sqrtRatioAX96, sqrtRatioBX96)
	w := acquire()
	defer release(w)

	w.delta.Sub(upper, lower)
	if roundUp {
		w.ceilMulDiv(dest, liquidity, w.delta, Q96)
		return
	}
	w.floorMulDiv(dest, liquidity, w.delta, Q96)
}

func ordered(a, b *big.Int) (*big.Int, *big.Int) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}
