package api

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/owlprotocol/veraswap-sub000/metaquoter"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4"
)

// QuoteArgs is the wire form of a meta-quote query. Omitted hops and pool
// options fall back to the service defaults.
type QuoteArgs struct {
	ExactCurrency    currency.Currency           `json:"exactCurrency"`
	VariableCurrency currency.Currency           `json:"variableCurrency"`
	HopCurrencies    []currency.Currency         `json:"hopCurrencies"`
	ExactAmount      *hexutil.Big                `json:"exactAmount"`
	PoolKeyOptions   []metaquoter.PoolKeyOptions `json:"poolKeyOptions"`
}

type PoolKey struct {
	Currency0   currency.Currency `json:"currency0"`
	Currency1   currency.Currency `json:"currency1"`
	Fee         uint32            `json:"fee"`
	TickSpacing int32             `json:"tickSpacing"`
	Hooks       common.Address    `json:"hooks"`
}

type PathKey struct {
	IntermediateCurrency currency.Currency  `json:"intermediateCurrency"`
	Fee                  uint32             `json:"fee"`
	TickSpacing          int32              `json:"tickSpacing"`
	Hooks                common.Address     `json:"hooks"`
	HookData             hexutil.Bytes      `json:"hookData"`
	Version              metaquoter.Version `json:"version"`
}

type SingleResult struct {
	PoolKey        PoolKey            `json:"poolKey"`
	Version        metaquoter.Version `json:"version"`
	ZeroForOne     bool               `json:"zeroForOne"`
	HookData       hexutil.Bytes      `json:"hookData"`
	VariableAmount *hexutil.Big       `json:"variableAmount"`
	GasEstimate    hexutil.Uint64     `json:"gasEstimate"`
}

type MultihopResult struct {
	Path           []PathKey      `json:"path"`
	VariableAmount *hexutil.Big   `json:"variableAmount"`
	GasEstimate    hexutil.Uint64 `json:"gasEstimate"`
}

type BestResult struct {
	BestSingleSwap   *SingleResult       `json:"bestSingleSwap"`
	BestMultihopSwap *MultihopResult     `json:"bestMultihopSwap"`
	BestSwapType     metaquoter.BestSwap `json:"bestSwapType"`
}

// SnapshotInfo describes the state queries currently read.
type SnapshotInfo struct {
	ChainID     hexutil.Uint64 `json:"chainId"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	V2Pools     int            `json:"v2Pools"`
	V3Pools     int            `json:"v3Pools"`
	V4Pools     int            `json:"v4Pools"`
}

func toPoolKey(k uniswapv4.PoolKey) PoolKey {
	return PoolKey{
		Currency0:   k.Currency0,
		Currency1:   k.Currency1,
		Fee:         k.Fee,
		TickSpacing: k.TickSpacing,
		Hooks:       k.Hooks,
	}
}

func toSingle(r metaquoter.MetaQuoteExactSingleResult) SingleResult {
	return SingleResult{
		PoolKey:        toPoolKey(r.PoolKey),
		Version:        r.Version,
		ZeroForOne:     r.ZeroForOne,
		HookData:       hexutil.Bytes(r.HookData),
		VariableAmount: (*hexutil.Big)(new(big.Int).Set(r.VariableAmount)),
		GasEstimate:    hexutil.Uint64(r.GasEstimate),
	}
}

func toMultihop(r metaquoter.MetaQuoteExactResult) MultihopResult {
	path := make([]PathKey, len(r.Path))
	for i, p := range r.Path {
		path[i] = PathKey{
			IntermediateCurrency: p.IntermediateCurrency,
			Fee:                  p.Fee,
			TickSpacing:          p.TickSpacing,
			Hooks:                p.Hooks,
			HookData:             hexutil.Bytes(p.HookData),
			Version:              p.Version,
		}
	}
	return MultihopResult{
		Path:           path,
		VariableAmount: (*hexutil.Big)(new(big.Int).Set(r.VariableAmount)),
		GasEstimate:    hexutil.Uint64(r.GasEstimate),
	}
}

func toBest(r metaquoter.BestResult) BestResult {
	out := BestResult{BestSwapType: r.BestSwapType}
	if r.BestSingleSwap != nil {
		s := toSingle(*r.BestSingleSwap)
		out.BestSingleSwap = &s
	}
	if r.BestMultihopSwap != nil {
		m := toMultihop(*r.BestMultihopSwap)
		out.BestMultihopSwap = &m
	}
	return out
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
