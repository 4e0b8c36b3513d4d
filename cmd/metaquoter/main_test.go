package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/owlprotocol/veraswap-sub000/api"
	"github.com/owlprotocol/veraswap-sub000/metaquoter"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	uniswapv2 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2"
	"github.com/owlprotocol/veraswap-sub000/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenA = currency.HexToCurrency("0x000000000000000000000000000000000000000a")
	tokenB = currency.HexToCurrency("0x000000000000000000000000000000000000000b")
)

func writeSnapshot(t *testing.T) string {
	t.Helper()
	file := state.File{
		ChainID:     1,
		BlockNumber: 42,
		Pools: state.Pools{
			V2: []uniswapv2.Pool{{
				Currency0: tokenA,
				Currency1: tokenB,
				Reserve0:  big.NewInt(1000),
				Reserve1:  big.NewInt(2000),
			}},
		},
	}
	raw, err := json.Marshal(file)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestQuoteCommand(t *testing.T) {
	snapshot := writeSnapshot(t)

	t.Run("exact input single", func(t *testing.T) {
		out, err := execute(t, "quote",
			"--snapshot-file", snapshot,
			"--exact", tokenA.Hex(),
			"--variable", tokenB.Hex(),
			"--amount", "100",
			"--route", "single",
			"--log-level", "error",
		)
		require.NoError(t, err)

		var results []api.SingleResult
		require.NoError(t, json.Unmarshal([]byte(out), &results))
		require.Len(t, results, 1)
		assert.Equal(t, metaquoter.V2, results[0].Version)
		assert.True(t, results[0].ZeroForOne)
		assert.Equal(t, int64(181), results[0].VariableAmount.ToInt().Int64())
	})

	t.Run("exact output best", func(t *testing.T) {
		out, err := execute(t, "quote",
			"--snapshot-file", snapshot,
			"--exact", tokenB.Hex(),
			"--variable", tokenA.Hex(),
			"--amount", "0xb5",
			"--exact-output",
			"--log-level", "error",
		)
		require.NoError(t, err)

		var best api.BestResult
		require.NoError(t, json.Unmarshal([]byte(out), &best))
		assert.Equal(t, metaquoter.BestSwapSingle, best.BestSwapType)
		require.NotNil(t, best.BestSingleSwap)
		assert.Equal(t, int64(100), best.BestSingleSwap.VariableAmount.ToInt().Int64())
		assert.Nil(t, best.BestMultihopSwap)
	})
}

func TestQuoteCommand_Errors(t *testing.T) {
	snapshot := writeSnapshot(t)
	base := []string{"quote", "--snapshot-file", snapshot, "--log-level", "error"}

	testCases := []struct {
		name string
		args []string
	}{
		{"no snapshot", []string{"quote", "--exact", tokenA.Hex(), "--variable", tokenB.Hex(), "--amount", "1"}},
		{"bad exact", append(base, "--exact", "nope", "--variable", tokenB.Hex(), "--amount", "1")},
		{"bad amount", append(base, "--exact", tokenA.Hex(), "--variable", tokenB.Hex(), "--amount", "ten")},
		{"bad route", append(base, "--exact", tokenA.Hex(), "--variable", tokenB.Hex(), "--amount", "1", "--route", "twohop")},
		{"zero amount", append(base, "--exact", tokenA.Hex(), "--variable", tokenB.Hex(), "--amount", "0")},
		{"bad version", append(base, "--exact", tokenA.Hex(), "--variable", tokenB.Hex(), "--amount", "1", "--versions", "v9")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			assert.Error(t, err)
		})
	}
}

func TestServeCommand_RequiresStateSource(t *testing.T) {
	_, err := execute(t, "serve", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream-url or snapshot-file")
}
