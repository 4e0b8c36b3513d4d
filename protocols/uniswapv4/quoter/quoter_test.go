package quoter

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/owlprotocol/veraswap-sub000/gas"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	calculator "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickbitmap"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickmath"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/poolmanager"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/revert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenA = currency.HexToCurrency("0x000000000000000000000000000000000000000a")
	tokenB = currency.HexToCurrency("0x000000000000000000000000000000000000000b")

	managerAddress = common.HexToAddress("0x00000000000000000000000000000000000000f4")
	quoterAddress  = common.HexToAddress("0x00000000000000000000000000000000000000e1")

	ether = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func testState() uniswapv3.PoolState {
	return uniswapv3.PoolState{
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
		Liquidity:    new(big.Int).Mul(ether, big.NewInt(2)),
		Ticks: []uniswapv3.TickInfo{
			{Index: -1200, LiquidityGross: ether, LiquidityNet: ether},
			{Index: -600, LiquidityGross: ether, LiquidityNet: ether},
			{Index: 600, LiquidityGross: ether, LiquidityNet: new(big.Int).Neg(ether)},
			{Index: 1200, LiquidityGross: ether, LiquidityNet: new(big.Int).Neg(ether)},
		},
	}
}

func testPool() uniswapv4.Pool {
	return uniswapv4.Pool{
		Key:       uniswapv4.NewPoolKey(tokenA, tokenB, 3000, 60, common.Address{}),
		PoolState: testState(),
	}
}

type locker struct {
	fn func(scope *poolmanager.Scope, data []byte) ([]byte, error)
}

func (locker) Address() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000c1")
}

func (l locker) UnlockCallback(scope *poolmanager.Scope, data []byte) ([]byte, error) {
	return l.fn(scope, data)
}

func newTestQuoter(t *testing.T) (*Quoter, *poolmanager.PoolManager) {
	t.Helper()
	pm, err := poolmanager.New(managerAddress, gas.DefaultSchedule(), []uniswapv4.Pool{testPool()})
	require.NoError(t, err)
	q, err := New(quoterAddress, pm)
	require.NoError(t, err)
	return q, pm
}

// oracle prices the same pool directly with the tick walk.
func oracle(t *testing.T, amount *big.Int, zeroForOne, exactInput bool) *big.Int {
	t.Helper()
	pool := uniswapv3.Pool{Currency0: tokenA, Currency1: tokenB, Fee: 3000, TickSpacing: 60, PoolState: testState()}
	bitmap, err := tickbitmap.FromTicks(pool.Ticks, pool.TickSpacing)
	require.NoError(t, err)
	in := tokenB
	if zeroForOne {
		in = tokenA
	}
	q, err := calculator.QuotePool(amount, in, exactInput, pool, bitmap)
	require.NoError(t, err)
	return q.Amount
}

func TestNew(t *testing.T) {
	pm, err := poolmanager.New(managerAddress, gas.DefaultSchedule(), nil)
	require.NoError(t, err)

	_, err = New(common.Address{}, pm)
	assert.Error(t, err)
	_, err = New(quoterAddress, nil)
	assert.Error(t, err)
}

func TestQuoteSingle(t *testing.T) {
	q, pm := newTestQuoter(t)
	key := testPool().Key

	testCases := []struct {
		name       string
		amount     *big.Int
		zeroForOne bool
		exactInput bool
	}{
		{"exact in zero for one", big.NewInt(1_000_000), true, true},
		{"exact in one for zero", big.NewInt(1_000_000), false, true},
		{"exact in crossing a tick", new(big.Int).Div(new(big.Int).Mul(ether, big.NewInt(8)), big.NewInt(100)), true, true},
		{"exact out zero for one", big.NewInt(1_000_000), true, false},
		{"exact out one for zero", new(big.Int).Div(ether, big.NewInt(100)), false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			params := QuoteExactSingleParams{PoolKey: key, ZeroForOne: tc.zeroForOne, ExactAmount: tc.amount}
			var got Quote
			var err error
			if tc.exactInput {
				got, err = q.QuoteExactInputSingle(params)
			} else {
				got, err = q.QuoteExactOutputSingle(params)
			}
			require.NoError(t, err)

			assert.Equal(t, oracle(t, tc.amount, tc.zeroForOne, tc.exactInput).String(), got.Amount.String())

			schedule := gas.DefaultSchedule()
			assert.GreaterOrEqual(t, got.GasEstimate, schedule.QuoterCall+schedule.V4Unlock+schedule.V4SwapBase+schedule.V4SwapStep)

			after, ok := pm.Pool(key.ID())
			require.True(t, ok)
			assert.Zero(t, after.SqrtPriceX96.Cmp(testState().SqrtPriceX96), "quote must not move the price")
			assert.Zero(t, after.Liquidity.Cmp(testState().Liquidity))
		})
	}

	t.Run("repeat quotes are identical", func(t *testing.T) {
		params := QuoteExactSingleParams{PoolKey: key, ZeroForOne: true, ExactAmount: new(big.Int).Div(ether, big.NewInt(20))}
		first, err := q.QuoteExactInputSingle(params)
		require.NoError(t, err)
		second, err := q.QuoteExactInputSingle(params)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("round trip does not gain", func(t *testing.T) {
		in := big.NewInt(5_000_000)
		out, err := q.QuoteExactInputSingle(QuoteExactSingleParams{PoolKey: key, ZeroForOne: true, ExactAmount: in})
		require.NoError(t, err)
		back, err := q.QuoteExactOutputSingle(QuoteExactSingleParams{PoolKey: key, ZeroForOne: true, ExactAmount: out.Amount})
		require.NoError(t, err)
		assert.LessOrEqual(t, back.Amount.Cmp(in), 0)
	})
}

func TestQuoteSingle_Failures(t *testing.T) {
	q, _ := newTestQuoter(t)
	key := testPool().Key

	t.Run("not enough liquidity", func(t *testing.T) {
		_, err := q.QuoteExactInputSingle(QuoteExactSingleParams{PoolKey: key, ZeroForOne: true, ExactAmount: new(big.Int).Mul(ether, big.NewInt(100))})
		assert.ErrorIs(t, err, ErrNotEnoughLiquidity)

		var rev *revert.Error
		require.ErrorAs(t, err, &rev)
		decoded, err := reverts.Decode(rev.Data)
		require.NoError(t, err)
		assert.Equal(t, [32]byte(key.ID()), decoded.Args[0])
	})

	t.Run("exact out beyond reserves", func(t *testing.T) {
		_, err := q.QuoteExactOutputSingle(QuoteExactSingleParams{PoolKey: key, ZeroForOne: false, ExactAmount: new(big.Int).Mul(ether, big.NewInt(100))})
		assert.ErrorIs(t, err, ErrNotEnoughLiquidity)
	})

	t.Run("pool not initialized", func(t *testing.T) {
		other := uniswapv4.NewPoolKey(tokenA, tokenB, 500, 10, common.Address{})
		_, err := q.QuoteExactInputSingle(QuoteExactSingleParams{PoolKey: other, ZeroForOne: true, ExactAmount: big.NewInt(1)})
		assert.ErrorIs(t, err, poolmanager.ErrPoolNotInitialized)
	})

	t.Run("invalid amount", func(t *testing.T) {
		for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1), new(big.Int).Lsh(big.NewInt(1), 128)} {
			_, err := q.QuoteExactInputSingle(QuoteExactSingleParams{PoolKey: key, ExactAmount: amount})
			assert.ErrorIs(t, err, ErrInvalidAmount)
		}
	})

	t.Run("drained to the price bound", func(t *testing.T) {
		drained := uniswapv4.Pool{
			Key: uniswapv4.NewPoolKey(tokenA, tokenB, 500, 10, common.Address{}),
			PoolState: uniswapv3.PoolState{
				SqrtPriceX96: new(big.Int).Set(tickmath.MIN_SQRT_RATIO),
				Tick:         tickmath.MIN_TICK,
				Liquidity:    new(big.Int),
			},
		}
		pm, err := poolmanager.New(managerAddress, gas.DefaultSchedule(), []uniswapv4.Pool{drained})
		require.NoError(t, err)
		q, err := New(quoterAddress, pm)
		require.NoError(t, err)

		_, err = q.QuoteExactInputSingle(QuoteExactSingleParams{PoolKey: drained.Key, ZeroForOne: true, ExactAmount: big.NewInt(1000)})
		assert.ErrorIs(t, err, poolmanager.ErrPriceLimitAlreadyExceeded)
		assert.NotErrorIs(t, err, ErrUnexpectedRevertBytes)
	})

	t.Run("full fee exact output", func(t *testing.T) {
		full := uniswapv4.Pool{
			Key:       uniswapv4.NewPoolKey(tokenA, tokenB, uniswapv4.DynamicFeeFlag, 60, common.Address{}),
			LPFee:     uniswapv4.MaxLPFee,
			PoolState: testState(),
		}
		pm, err := poolmanager.New(managerAddress, gas.DefaultSchedule(), []uniswapv4.Pool{full})
		require.NoError(t, err)
		q, err := New(quoterAddress, pm)
		require.NoError(t, err)

		_, err = q.QuoteExactOutputSingle(QuoteExactSingleParams{PoolKey: full.Key, ZeroForOne: true, ExactAmount: big.NewInt(1000)})
		assert.ErrorIs(t, err, poolmanager.ErrInvalidFeeForExactOut)
		assert.NotErrorIs(t, err, ErrUnexpectedRevertBytes)
	})

	t.Run("gas limit", func(t *testing.T) {
		pm, err := poolmanager.New(managerAddress, gas.DefaultSchedule(), []uniswapv4.Pool{testPool()})
		require.NoError(t, err)
		limited, err := New(quoterAddress, pm, WithGasLimit(1000))
		require.NoError(t, err)
		_, err = limited.QuoteExactInputSingle(QuoteExactSingleParams{PoolKey: key, ZeroForOne: true, ExactAmount: big.NewInt(1)})
		assert.ErrorIs(t, err, gas.ErrOutOfGas)
	})
}

func TestAccessControl(t *testing.T) {
	q, pm := newTestQuoter(t)
	data, err := quoterABI.Pack(methodExactInputSingle, toABI(QuoteExactSingleParams{
		PoolKey: testPool().Key, ZeroForOne: true, ExactAmount: big.NewInt(1000),
	}))
	require.NoError(t, err)

	t.Run("callback from another manager", func(t *testing.T) {
		impostor, err := poolmanager.New(common.HexToAddress("0xbad"), gas.DefaultSchedule(), []uniswapv4.Pool{testPool()})
		require.NoError(t, err)
		_, err = impostor.Unlock(nil, q, data)
		assert.ErrorIs(t, err, ErrNotPoolManager)
	})

	t.Run("entry point called by another sender", func(t *testing.T) {
		_, err := pm.Unlock(nil, locker{fn: func(scope *poolmanager.Scope, data []byte) ([]byte, error) {
			return q.Call(common.HexToAddress("0xbad"), scope, data)
		}}, data)
		assert.ErrorIs(t, err, ErrNotSelf)
	})

	t.Run("entry point called by self", func(t *testing.T) {
		_, err := pm.Unlock(nil, locker{fn: func(scope *poolmanager.Scope, data []byte) ([]byte, error) {
			return q.Call(quoterAddress, scope, data)
		}}, data)
		assert.ErrorIs(t, err, errQuoteSwap)
	})

	t.Run("unknown selector", func(t *testing.T) {
		_, err := pm.Unlock(nil, locker{fn: func(scope *poolmanager.Scope, _ []byte) ([]byte, error) {
			return q.Call(quoterAddress, scope, []byte{1, 2, 3, 4})
		}}, nil)
		assert.ErrorIs(t, err, ErrUnknownMethod)
	})
}

func TestParseQuote(t *testing.T) {
	amount := big.NewInt(4242)

	testCases := []struct {
		name string
		rev  *revert.Error
		err  error
	}{
		{"quote swap", reverts.Revert(errQuoteSwap, amount), nil},
		{"not enough liquidity", reverts.Revert(ErrNotEnoughLiquidity, [32]byte{1}), ErrNotEnoughLiquidity},
		{"pool not initialized", reverts.Revert(poolmanager.ErrPoolNotInitialized), poolmanager.ErrPoolNotInitialized},
		{"not self", reverts.Revert(ErrNotSelf), ErrNotSelf},
		{"unexpected success", reverts.Revert(ErrUnexpectedCallSuccess), ErrUnexpectedCallSuccess},
		{"raw payload from another frame", revert.Raw(reverts.Revert(ErrNotPoolManager).Data), ErrNotPoolManager},
		{"registered but unexpected", reverts.Revert(poolmanager.ErrCurrencyNotSettled), ErrUnexpectedRevertBytes},
		{"unknown selector", revert.Raw([]byte{0xde, 0xad, 0xbe, 0xef}), ErrUnexpectedRevertBytes},
		{"empty payload", revert.Raw(nil), ErrUnexpectedRevertBytes},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseQuote(tc.rev, 77)
			if tc.err == nil {
				require.NoError(t, err)
				assert.Zero(t, amount.Cmp(got.Amount))
				assert.Equal(t, uint64(77), got.GasEstimate)
				return
			}
			assert.ErrorIs(t, err, tc.err)
			var rev *revert.Error
			assert.ErrorAs(t, err, &rev)
		})
	}

	t.Run("unexpected bytes carry the original payload", func(t *testing.T) {
		raw := []byte{0xde, 0xad, 0xbe, 0xef}
		_, err := parseQuote(revert.Raw(raw), 0)
		var rev *revert.Error
		require.ErrorAs(t, err, &rev)
		decoded, derr := reverts.Decode(rev.Data)
		require.NoError(t, derr)
		assert.Equal(t, "UnexpectedRevertBytes", decoded.Name)
		assert.Equal(t, raw, decoded.Args[0])
	})
}
