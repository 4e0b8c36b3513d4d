package uniswapv2

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	uniswapv2 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2"
)

var (
	// basisPointDivisor is a constant representing 100% in basis points (10000).
	basisPointDivisor = big.NewInt(10000)
	one               = big.NewInt(1)

	// ErrInvalidAmount is returned when an input/output amount is negative.
	ErrInvalidAmount = errors.New("amount must be non-negative")
	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrCurrencyMismatch is returned when the input currency is not one of the pool's currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrInvalidReserves is returned when either side of the pool holds no reserves.
	ErrInvalidReserves = errors.New("invalid reserves")
	// ErrInsufficientLiquidity is returned when an amountOut is requested that is greater than or equal to the available reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for swap")
	// ErrInsufficientOutputAmount is returned when an exact input would buy nothing.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
)

// Calculator holds reusable big.Int objects to avoid memory allocations during calculations.
// Instances of this struct are NOT safe for concurrent use by themselves.
// They are intended to be managed by the sync.Pool below.
type Calculator struct {
	feeMultiplier *big.Int
	numerator     *big.Int
	denominator   *big.Int
	scaled        *big.Int
}

// calculatorPool manages a pool of Calculator objects, allowing for safe concurrent use
// and drastically reducing memory allocations.
var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{
			feeMultiplier: new(big.Int),
			numerator:     new(big.Int),
			denominator:   new(big.Int),
			scaled:        new(big.Int),
		}
	},
}

// GetAmountOut returns the output bought by an exact amountIn of currencyIn.
func GetAmountOut(amountIn *big.Int, currencyIn currency.Currency, pool uniswapv2.Pool) (*big.Int, error) {
	return Quote(amountIn, currencyIn, true, pool)
}

// GetAmountIn returns the input of currencyIn required to buy an exact amountOut.
func GetAmountIn(amountOut *big.Int, currencyIn currency.Currency, pool uniswapv2.Pool) (*big.Int, error) {
	return Quote(amountOut, currencyIn, false, pool)
}

// Quote prices one side of a swap against the pool. With exactInput the
// amount is what the trader pays and the result is what they receive;
// otherwise the amount is the desired output and the result the required input.
func Quote(amount *big.Int, currencyIn currency.Currency, exactInput bool, pool uniswapv2.Pool) (*big.Int, error) {
	if amount == nil {
		return nil, ErrNilAmount
	}
	if amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	reserveIn, reserveOut, err := GetReserves(currencyIn, pool)
	if err != nil {
		return nil, err
	}

	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.constantProduct(amount, reserveIn, reserveOut, pool.Fee(), exactInput)
}

// constantProduct solves (rIn + in*γ) * (rOut - out) = rIn * rOut for the
// unknown side, with γ = (10000 - feeBps) / 10000. Exact output rounds the
// required input up so the invariant never decreases.
func (c *Calculator) constantProduct(
	amount, reserveIn, reserveOut *big.Int,
	feeBps uint16,
	exactInput bool,
) (*big.Int, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: reserveIn=%v reserveOut=%v", ErrInvalidReserves, reserveIn, reserveOut)
	}

	c.feeMultiplier.SetUint64(uint64(feeBps))
	c.feeMultiplier.Sub(basisPointDivisor, c.feeMultiplier)

	if exactInput {
		// out = in*γ*rOut / (rIn*10000 + in*γ)
		c.scaled.Mul(amount, c.feeMultiplier)
		c.numerator.Mul(c.scaled, reserveOut)
		c.denominator.Mul(reserveIn, basisPointDivisor)
		c.denominator.Add(c.denominator, c.scaled)
		out := new(big.Int).Quo(c.numerator, c.denominator)
		if out.Sign() == 0 {
			return nil, fmt.Errorf("%w: amountIn %s", ErrInsufficientOutputAmount, amount)
		}
		return out, nil
	}

	if amount.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: requested amountOut (%s) is >= reserveOut (%s)", ErrInsufficientLiquidity, amount.String(), reserveOut.String())
	}

	// in = rIn*out*10000 / ((rOut - out)*γ) + 1
	c.numerator.Mul(reserveIn, amount)
	c.numerator.Mul(c.numerator, basisPointDivisor)
	c.denominator.Sub(reserveOut, amount)
	c.denominator.Mul(c.denominator, c.feeMultiplier)
	if c.denominator.Sign() == 0 {
		return nil, fmt.Errorf("%w: pool denominator is zero", ErrInvalidReserves)
	}

	in := new(big.Int).Quo(c.numerator, c.denominator)
	return in.Add(in, one), nil
}

// GetReserves orders the pool's reserves for a swap paying currencyIn.
func GetReserves(currencyIn currency.Currency, pool uniswapv2.Pool) (reserveIn, reserveOut *big.Int, err error) {
	switch currencyIn {
	case pool.Currency0:
		return pool.Reserve0, pool.Reserve1, nil
	case pool.Currency1:
		return pool.Reserve1, pool.Reserve0, nil
	}
	return nil, nil, fmt.Errorf("%w: pool %s/%s does not contain %s", ErrCurrencyMismatch, pool.Currency0, pool.Currency1, currencyIn)
}
