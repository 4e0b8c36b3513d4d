// Package swapmath computes a single swap step between two sqrt prices.
package swapmath

import (
	"errors"
	"math/big"
	"sync"

	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/sqrtpricemath"
)

// MaxFeePips is a fee of 100%, in hundredths of a bip.
const MaxFeePips = 1_000_000

var (
	ErrFeeTooLarge = errors.New("fee exceeds 100%")

	feeDenominator = big.NewInt(MaxFeePips)
)

// Step is the result of one ComputeSwapStep call. The caller owns the
// big.Ints and may reuse a Step across steps.
type Step struct {
	SqrtPriceNextX96 *big.Int
	AmountIn         *big.Int
	AmountOut        *big.Int
	FeeAmount        *big.Int
}

// NewStep allocates a zeroed Step.
func NewStep() *Step {
	return &Step{
		SqrtPriceNextX96: new(big.Int),
		AmountIn:         new(big.Int),
		AmountOut:        new(big.Int),
		FeeAmount:        new(big.Int),
	}
}

type scratch struct {
	remainingLessFee *big.Int
	remainingAbs     *big.Int
	feeComplement    *big.Int
	fee              *big.Int
	prod             *big.Int
	rem              *big.Int
}

var scratchPool = sync.Pool{
	New: func() any {
		return &scratch{
			remainingLessFee: new(big.Int),
			remainingAbs:     new(big.Int),
			feeComplement:    new(big.Int),
			fee:              new(big.Int),
			prod:             new(big.Int),
			rem:              new(big.Int),
		}
	},
}

// GetSqrtPriceTarget returns the price a step should aim for: the next
// tick price unless the limit is closer in the swap direction.
func GetSqrtPriceTarget(zeroForOne bool, sqrtPriceNextX96, sqrtPriceLimitX96 *big.Int) *big.Int {
	if zeroForOne {
		if sqrtPriceNextX96.Cmp(sqrtPriceLimitX96) < 0 {
			return sqrtPriceLimitX96
		}
		return sqrtPriceNextX96
	}
	if sqrtPriceNextX96.Cmp(sqrtPriceLimitX96) > 0 {
		return sqrtPriceLimitX96
	}
	return sqrtPriceNextX96
}

// ComputeSwapStep swaps within a single liquidity range, moving from the
// current price toward the target. amountRemaining >= 0 means exact input,
// a negative value means exact output of its magnitude. The direction is
// implied by the relative order of the two prices.
func ComputeSwapStep(
	step *Step,
	sqrtPriceCurrentX96 *big.Int,
	sqrtPriceTargetX96 *big.Int,
	liquidity *big.Int,
	amountRemaining *big.Int,
	feePips uint32,
) error {
	if feePips > MaxFeePips {
		return ErrFeeTooLarge
	}
	s := scratchPool.Get().(*scratch)
	defer scratchPool.Put(s)

	zeroForOne := sqrtPriceCurrentX96.Cmp(sqrtPriceTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0
	next := step.SqrtPriceNextX96

	step.AmountIn.SetUint64(0)
	step.AmountOut.SetUint64(0)
	step.FeeAmount.SetUint64(0)
	s.fee.SetUint64(uint64(feePips))
	s.feeComplement.Sub(feeDenominator, s.fee)

	if exactIn {
		s.prod.Mul(amountRemaining, s.feeComplement)
		s.remainingLessFee.Quo(s.prod, feeDenominator)
		if err := maxAmountIn(step.AmountIn, sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity, zeroForOne); err != nil {
			return err
		}
		if s.remainingLessFee.Cmp(step.AmountIn) >= 0 {
			next.Set(sqrtPriceTargetX96)
		} else if err := sqrtpricemath.GetNextSqrtPriceFromInput(next, sqrtPriceCurrentX96, liquidity, s.remainingLessFee, zeroForOne); err != nil {
			return err
		}
	} else {
		s.remainingAbs.Neg(amountRemaining)
		if err := maxAmountOut(step.AmountOut, sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity, zeroForOne); err != nil {
			return err
		}
		if s.remainingAbs.Cmp(step.AmountOut) >= 0 {
			next.Set(sqrtPriceTargetX96)
		} else if err := sqrtpricemath.GetNextSqrtPriceFromOutput(next, sqrtPriceCurrentX96, liquidity, s.remainingAbs, zeroForOne); err != nil {
			return err
		}
	}

	reachedTarget := next.Cmp(sqrtPriceTargetX96) == 0

	// amounts at the target were computed above; otherwise recompute at next
	if !(reachedTarget && exactIn) {
		if err := maxAmountIn(step.AmountIn, sqrtPriceCurrentX96, next, liquidity, zeroForOne); err != nil {
			return err
		}
	}
	if !(reachedTarget && !exactIn) {
		if err := maxAmountOut(step.AmountOut, sqrtPriceCurrentX96, next, liquidity, zeroForOne); err != nil {
			return err
		}
	}

	if !exactIn && step.AmountOut.Cmp(s.remainingAbs) > 0 {
		step.AmountOut.Set(s.remainingAbs)
	}

	switch {
	case exactIn && !reachedTarget:
		// the remainder of the input is kept as fee
		step.FeeAmount.Sub(amountRemaining, step.AmountIn)
	case feePips == MaxFeePips:
		step.FeeAmount.Set(step.AmountIn)
	default:
		s.prod.Mul(step.AmountIn, s.fee)
		step.FeeAmount.QuoRem(s.prod, s.feeComplement, s.rem)
		if s.rem.Sign() != 0 {
			step.FeeAmount.Add(step.FeeAmount, big.NewInt(1))
		}
	}
	return nil
}

// maxAmountIn is the input needed to move the price from a to b, rounded up.
func maxAmountIn(dest, a, b, liquidity *big.Int, zeroForOne bool) error {
	if zeroForOne {
		return sqrtpricemath.GetAmount0Delta(dest, b, a, liquidity, true)
	}
	sqrtpricemath.GetAmount1Delta(dest, a, b, liquidity, true)
	return nil
}

// maxAmountOut is the output released moving the price from a to b, rounded down.
func maxAmountOut(dest, a, b, liquidity *big.Int, zeroForOne bool) error {
	if zeroForOne {
		sqrtpricemath.GetAmount1Delta(dest, b, a, liquidity, false)
		return nil
	}
	return sqrtpricemath.GetAmount0Delta(dest, a, b, liquidity, false)
}
