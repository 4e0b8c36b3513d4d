package uniswapv3

import (
	"math/big"
	"testing"

	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/swapmath"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickbitmap"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickmath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenA = currency.HexToCurrency("0x000000000000000000000000000000000000000a")
	tokenB = currency.HexToCurrency("0x000000000000000000000000000000000000000b")
	tokenC = currency.HexToCurrency("0x000000000000000000000000000000000000000c")

	ether = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func sqrtAtTick(t *testing.T, tick int32) *big.Int {
	t.Helper()
	v := new(big.Int)
	require.NoError(t, tickmath.GetSqrtRatioAtTick(v, tick))
	return v
}

func etherMul(num, den int64) *big.Int {
	v := new(big.Int).Mul(ether, big.NewInt(num))
	return v.Quo(v, big.NewInt(den))
}

// newTestPool returns a 0.3% pool at price 1 holding two positions,
// [-1200, 1200] and [-600, 600], each with 1e18 liquidity.
func newTestPool(tb testing.TB) (uniswapv3.Pool, tickbitmap.TickBitmap) {
	tb.Helper()
	pool := uniswapv3.Pool{
		Currency0:   tokenA,
		Currency1:   tokenB,
		Fee:         3000,
		TickSpacing: 60,
		PoolState: uniswapv3.PoolState{
			SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
			Tick:         0,
			Liquidity:    new(big.Int).Mul(ether, big.NewInt(2)),
			Ticks: []uniswapv3.TickInfo{
				{Index: -1200, LiquidityGross: ether, LiquidityNet: ether},
				{Index: -600, LiquidityGross: ether, LiquidityNet: ether},
				{Index: 600, LiquidityGross: ether, LiquidityNet: new(big.Int).Neg(ether)},
				{Index: 1200, LiquidityGross: ether, LiquidityNet: new(big.Int).Neg(ether)},
			},
		},
	}
	bitmap, err := tickbitmap.FromTicks(pool.Ticks, pool.TickSpacing)
	require.NoError(tb, err)
	return pool, bitmap
}

func TestSwap_WithinRange(t *testing.T) {
	pool, bitmap := newTestPool(t)
	amountIn := etherMul(1, 100)

	res, err := Swap(pool.PoolState, bitmap, SwapParams{
		ZeroForOne:      true,
		AmountSpecified: amountIn,
		FeePips:         pool.Fee,
		TickSpacing:     pool.TickSpacing,
	})
	require.NoError(t, err)

	// the same move computed as a single step against the active range
	step := swapmath.NewStep()
	require.NoError(t, swapmath.ComputeSwapStep(step, pool.SqrtPriceX96, sqrtAtTick(t, -600), pool.Liquidity, amountIn, pool.Fee))

	assert.True(t, res.Filled())
	assert.Zero(t, res.AmountIn.Cmp(amountIn))
	assert.Zero(t, res.AmountOut.Cmp(step.AmountOut))
	assert.Zero(t, res.SqrtPriceX96.Cmp(step.SqrtPriceNextX96))
	assert.Zero(t, res.Liquidity.Cmp(pool.Liquidity))
	assert.Equal(t, uint32(0), res.TicksCrossed)
	assert.Less(t, res.Tick, int32(0))
	assert.Greater(t, res.Tick, int32(-600))
}

func TestSwap_CrossesInitializedTick(t *testing.T) {
	pool, bitmap := newTestPool(t)

	testCases := []struct {
		name       string
		zeroForOne bool
		amount     *big.Int
	}{
		{"zero for one exact in", true, etherMul(8, 100)},
		{"one for zero exact in", false, etherMul(8, 100)},
		{"zero for one exact out", true, new(big.Int).Neg(etherMul(7, 100))},
		{"one for zero exact out", false, new(big.Int).Neg(etherMul(7, 100))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Swap(pool.PoolState, bitmap, SwapParams{
				ZeroForOne:      tc.zeroForOne,
				AmountSpecified: tc.amount,
				FeePips:         pool.Fee,
				TickSpacing:     pool.TickSpacing,
			})
			require.NoError(t, err)
			require.True(t, res.Filled())

			assert.Equal(t, uint32(1), res.TicksCrossed)
			assert.Zero(t, res.Liquidity.Cmp(ether), "only the wide position remains active")
			if tc.zeroForOne {
				assert.Less(t, res.Tick, int32(-600))
				assert.GreaterOrEqual(t, res.Tick, int32(-1200))
			} else {
				assert.GreaterOrEqual(t, res.Tick, int32(600))
				assert.Less(t, res.Tick, int32(1200))
			}
		})
	}
}

func TestSwap_PriceLimit(t *testing.T) {
	pool, bitmap := newTestPool(t)
	limit := sqrtAtTick(t, -300)

	res, err := Swap(pool.PoolState, bitmap, SwapParams{
		ZeroForOne:        true,
		AmountSpecified:   ether,
		SqrtPriceLimitX96: limit,
		FeePips:           pool.Fee,
		TickSpacing:       pool.TickSpacing,
	})
	require.NoError(t, err)
	assert.False(t, res.Filled())
	assert.Zero(t, res.SqrtPriceX96.Cmp(limit))
	assert.Equal(t, int32(-300), res.Tick)

	t.Run("errors", func(t *testing.T) {
		testCases := []struct {
			name       string
			zeroForOne bool
			limit      *big.Int
			err        error
		}{
			{"zero for one limit above price", true, sqrtAtTick(t, 10), ErrPriceLimitAlreadyExceeded},
			{"zero for one limit at price", true, pool.SqrtPriceX96, ErrPriceLimitAlreadyExceeded},
			{"zero for one limit at min ratio", true, tickmath.MIN_SQRT_RATIO, ErrPriceLimitOutOfBounds},
			{"one for zero limit below price", false, sqrtAtTick(t, -10), ErrPriceLimitAlreadyExceeded},
			{"one for zero limit at max ratio", false, tickmath.MAX_SQRT_RATIO, ErrPriceLimitOutOfBounds},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := Swap(pool.PoolState, bitmap, SwapParams{
					ZeroForOne:        tc.zeroForOne,
					AmountSpecified:   ether,
					SqrtPriceLimitX96: tc.limit,
					FeePips:           pool.Fee,
					TickSpacing:       pool.TickSpacing,
				})
				assert.ErrorIs(t, err, tc.err)
			})
		}
	})
}

func TestSwap_InvalidInput(t *testing.T) {
	pool, bitmap := newTestPool(t)

	_, err := Swap(pool.PoolState, bitmap, SwapParams{AmountSpecified: new(big.Int), TickSpacing: 60})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Swap(uniswapv3.PoolState{}, bitmap, SwapParams{AmountSpecified: ether, TickSpacing: 60})
	assert.ErrorIs(t, err, ErrInvalidPoolState)

	_, err = Swap(pool.PoolState, bitmap, SwapParams{AmountSpecified: ether})
	assert.ErrorIs(t, err, ErrInvalidPoolState)
}

func TestSwap_DoesNotMutatePool(t *testing.T) {
	pool, bitmap := newTestPool(t)
	before := pool.PoolState.Clone()

	for range 2 {
		_, err := Swap(pool.PoolState, bitmap, SwapParams{
			ZeroForOne:      true,
			AmountSpecified: etherMul(8, 100),
			FeePips:         pool.Fee,
			TickSpacing:     pool.TickSpacing,
		})
		require.NoError(t, err)
	}

	assert.Zero(t, before.SqrtPriceX96.Cmp(pool.SqrtPriceX96))
	assert.Zero(t, before.Liquidity.Cmp(pool.Liquidity))
	assert.Equal(t, before.Tick, pool.Tick)
}

func TestQuotePool(t *testing.T) {
	pool, bitmap := newTestPool(t)

	t.Run("exact input is deterministic", func(t *testing.T) {
		first, err := GetAmountOut(etherMul(8, 100), tokenA, pool, bitmap)
		require.NoError(t, err)
		second, err := GetAmountOut(etherMul(8, 100), tokenA, pool, bitmap)
		require.NoError(t, err)
		assert.Zero(t, first.Cmp(second))
		assert.Equal(t, 1, etherMul(8, 100).Cmp(first), "price 1 with a fee pays out less than the input")
	})

	t.Run("direction symmetry", func(t *testing.T) {
		for _, in := range []currency.Currency{tokenA, tokenB} {
			for _, amount := range []*big.Int{big.NewInt(1_000_000), etherMul(1, 100), etherMul(8, 100)} {
				out, err := GetAmountOut(amount, in, pool, bitmap)
				require.NoError(t, err)
				back, err := GetAmountIn(out, in, pool, bitmap)
				require.NoError(t, err)
				assert.True(t, back.Cmp(amount) <= 0, "in %s: amount %s, out %s, back %s", in, amount, out, back)
			}
		}
	})

	t.Run("exact output counts crossings", func(t *testing.T) {
		q, err := QuotePool(etherMul(7, 100), tokenB, false, pool, bitmap)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), q.TicksCrossed)
		assert.Equal(t, 1, q.Amount.Cmp(etherMul(7, 100)))
	})

	t.Run("exact input larger than the liquidity", func(t *testing.T) {
		_, err := GetAmountOut(new(big.Int).Mul(ether, big.NewInt(100)), tokenA, pool, bitmap)
		assert.ErrorIs(t, err, ErrNotEnoughLiquidity)
	})

	t.Run("exact output larger than the liquidity", func(t *testing.T) {
		_, err := GetAmountIn(ether, tokenA, pool, bitmap)
		assert.ErrorIs(t, err, ErrNotEnoughLiquidity)
	})

	t.Run("foreign currency", func(t *testing.T) {
		_, err := GetAmountOut(ether, tokenC, pool, bitmap)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("non positive amount", func(t *testing.T) {
		_, err := GetAmountOut(new(big.Int), tokenA, pool, bitmap)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = GetAmountIn(big.NewInt(-1), tokenA, pool, bitmap)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func BenchmarkGetAmountOut(b *testing.B) {
	pool, bitmap := newTestPool(b)
	amount := etherMul(8, 100)

	for b.Loop() {
		if _, err := GetAmountOut(amount, tokenA, pool, bitmap); err != nil {
			b.Fatal(err)
		}
	}
}
