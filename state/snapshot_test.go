package state

import (
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/owlprotocol/veraswap-sub000/engine"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	uniswapv2 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2"
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4"
	v4quoter "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/quoter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenA = currency.HexToCurrency("0x000000000000000000000000000000000000000a")
	tokenB = currency.HexToCurrency("0x000000000000000000000000000000000000000b")

	ether = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func poolState() uniswapv3.PoolState {
	return uniswapv3.PoolState{
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
		Liquidity:    new(big.Int).Set(ether),
		Ticks: []uniswapv3.TickInfo{
			{Index: -600, LiquidityGross: new(big.Int).Set(ether), LiquidityNet: new(big.Int).Set(ether)},
			{Index: 600, LiquidityGross: new(big.Int).Set(ether), LiquidityNet: new(big.Int).Neg(ether)},
		},
	}
}

func testPools() Pools {
	return Pools{
		V2: []uniswapv2.Pool{{Currency0: tokenA, Currency1: tokenB, Reserve0: big.NewInt(1000), Reserve1: big.NewInt(2000)}},
		V3: []uniswapv3.Pool{{Currency0: tokenA, Currency1: tokenB, Fee: 3000, TickSpacing: 60, PoolState: poolState()}},
		V4: []uniswapv4.Pool{{Key: uniswapv4.NewPoolKey(tokenA, tokenB, 500, 10, common.Address{}), PoolState: poolState()}},
	}
}

func TestNew(t *testing.T) {
	s, err := New(testPools(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, Counts{V2: 1, V3: 1, V4: 1}, s.Counts())

	v2, ok := s.V2Pool(uniswapv2.NewPoolKey(tokenB, tokenA))
	require.True(t, ok)
	assert.Equal(t, big.NewInt(2000), v2.Reserve1)

	v3, ok := s.V3Pool(uniswapv3.NewPoolKey(tokenA, tokenB, 3000))
	require.True(t, ok)
	assert.Equal(t, int32(60), v3.TickSpacing)
	_, ok = s.V3Pool(uniswapv3.NewPoolKey(tokenA, tokenB, 500))
	assert.False(t, ok)

	q := s.V4Quoter()
	require.NotNil(t, q)
	quote, err := q.QuoteExactInputSingle(v4quoter.QuoteExactSingleParams{
		PoolKey:     uniswapv4.NewPoolKey(tokenA, tokenB, 500, 10, common.Address{}),
		ZeroForOne:  true,
		ExactAmount: big.NewInt(1_000_000),
	})
	require.NoError(t, err)
	assert.Positive(t, quote.Amount.Sign())
	assert.Positive(t, quote.GasEstimate)

	t.Run("invalid v4 pool", func(t *testing.T) {
		pools := testPools()
		pools.V4 = append(pools.V4, pools.V4[0])
		_, err := New(pools, DefaultOptions())
		require.Error(t, err)
	})

	t.Run("zero quoter address", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Quoter = common.Address{}
		_, err := New(testPools(), opts)
		require.Error(t, err)
	})
}

func TestEmpty(t *testing.T) {
	s := Empty()
	assert.Equal(t, Counts{}, s.Counts())
	// an untyped nil, so callers can compare against nil
	assert.True(t, s.V4Quoter() == nil)
	_, ok := s.V2Pool(uniswapv2.NewPoolKey(tokenA, tokenB))
	assert.False(t, ok)
	_, ok = s.V4Pool(uniswapv4.NewPoolKey(tokenA, tokenB, 500, 10, common.Address{}).ID())
	assert.False(t, ok)
}

func TestFromEngine(t *testing.T) {
	pools := testPools()
	st := &engine.State{
		ChainID: 1,
		Block:   engine.BlockSummary{Number: big.NewInt(42)},
		Protocols: map[engine.ProtocolID]engine.ProtocolState{
			"uniswap_v2": {Schema: uniswapv2.Schema, Data: pools.V2},
			"uniswap_v3": {Schema: uniswapv3.Schema, Data: pools.V3},
			"uniswap_v4": {Schema: uniswapv4.Schema, Data: pools.V4},
			"sushiswap":  {Schema: uniswapv2.Schema, Error: "out of sync"},
			"other":      {Schema: "other@v1", Data: map[string]any{}},
		},
	}

	s, skipped, err := FromEngine(st, DefaultOptions())
	require.NoError(t, err)
	assert.ElementsMatch(t, []engine.ProtocolID{"sushiswap", "other"}, skipped)
	assert.Equal(t, uint64(1), s.ChainID)
	assert.Equal(t, uint64(42), s.BlockNumber)
	assert.Equal(t, Counts{V2: 1, V3: 1, V4: 1}, s.Counts())

	_, _, err = FromEngine(nil, DefaultOptions())
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	raw, err := json.Marshal(File{ChainID: 10, BlockNumber: 7, Pools: testPools()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	s, err := LoadFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), s.ChainID)
	assert.Equal(t, uint64(7), s.BlockNumber)
	assert.Equal(t, Counts{V2: 1, V3: 1, V4: 1}, s.Counts())

	id := uniswapv4.NewPoolKey(tokenA, tokenB, 500, 10, common.Address{}).ID()
	p, ok := s.V4Pool(id)
	require.True(t, ok)
	assert.Equal(t, ether, p.Liquidity)

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "missing.json"), DefaultOptions())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"pools":`), 0o600))
		_, err := LoadFile(bad, DefaultOptions())
		assert.Error(t, err)
	})
}
