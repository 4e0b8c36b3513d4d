package metaquoter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/owlprotocol/veraswap-sub000/gas"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	uniswapv2 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2"
	v2calculator "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2/calculator"
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	v3calculator "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator"
	v3indexer "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/indexer"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/poolmanager"
	v4quoter "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/quoter"
)

// V4Quoter is the simulate-and-revert adapter of a V4 pool manager.
type V4Quoter interface {
	QuoteExactInputSingle(params v4quoter.QuoteExactSingleParams) (v4quoter.Quote, error)
	QuoteExactOutputSingle(params v4quoter.QuoteExactSingleParams) (v4quoter.Quote, error)
}

// StateReader is a consistent view of pool state across versions.
type StateReader interface {
	V2Pool(key uniswapv2.PoolKey) (uniswapv2.Pool, bool)
	V3Pool(key uniswapv3.PoolKey) (v3indexer.IndexedPool, bool)
	// V4Quoter returns nil when no V4 pools are known.
	V4Quoter() V4Quoter
}

// LegQuote is the counterparty amount of a single leg and its gas estimate.
type LegQuote struct {
	Amount      *big.Int
	GasEstimate uint64
}

// Simulator quotes a single leg of one pool version without changing state.
// With exactInput, amount is paid and the result is the output; otherwise
// amount is the desired output and the result the required input.
type Simulator interface {
	QuoteSingle(ctx context.Context, leg Leg, zeroForOne, exactInput bool, amount *big.Int) (LegQuote, error)
}

type v2Simulator struct {
	reader   StateReader
	schedule gas.Schedule
}

func (s v2Simulator) QuoteSingle(_ context.Context, leg Leg, zeroForOne, exactInput bool, amount *big.Int) (LegQuote, error) {
	key := V2PoolKey(leg.PoolKey.Currency0, leg.PoolKey.Currency1)
	pool, ok := s.reader.V2Pool(key)
	if !ok {
		return LegQuote{}, fmt.Errorf("%w: %s/%s", ErrV2PoolDoesNotExist, key.Currency0, key.Currency1)
	}
	out, err := v2calculator.Quote(amount, currencyIn(leg, zeroForOne), exactInput, pool)
	if err != nil {
		return LegQuote{}, err
	}
	return LegQuote{Amount: out, GasEstimate: s.schedule.V2Swap}, nil
}

type v3Simulator struct {
	reader   StateReader
	schedule gas.Schedule
}

func (s v3Simulator) QuoteSingle(_ context.Context, leg Leg, zeroForOne, exactInput bool, amount *big.Int) (LegQuote, error) {
	key := uniswapv3.NewPoolKey(leg.PoolKey.Currency0, leg.PoolKey.Currency1, leg.PoolKey.Fee)
	pool, ok := s.reader.V3Pool(key)
	if !ok {
		return LegQuote{}, fmt.Errorf("%w: v3 %s/%s fee %d", ErrPoolDoesNotExist, key.Currency0, key.Currency1, key.Fee)
	}
	if pool.TickSpacing != leg.PoolKey.TickSpacing || leg.PoolKey.Hooks != (common.Address{}) {
		return LegQuote{}, fmt.Errorf("%w: v3 %s/%s fee %d has tick spacing %d, not %d without hooks",
			ErrPoolDoesNotExist, key.Currency0, key.Currency1, key.Fee, pool.TickSpacing, leg.PoolKey.TickSpacing)
	}
	q, err := v3calculator.QuotePool(amount, currencyIn(leg, zeroForOne), exactInput, pool.Pool, pool.Bitmap)
	if err != nil {
		return LegQuote{}, err
	}
	return LegQuote{Amount: q.Amount, GasEstimate: s.schedule.V3Swap(q.TicksCrossed)}, nil
}

type v4Simulator struct {
	reader StateReader
}

func (s v4Simulator) QuoteSingle(_ context.Context, leg Leg, zeroForOne, exactInput bool, amount *big.Int) (LegQuote, error) {
	q := s.reader.V4Quoter()
	if q == nil {
		return LegQuote{}, fmt.Errorf("%w: no v4 pool manager", poolmanager.ErrPoolNotInitialized)
	}
	params := v4quoter.QuoteExactSingleParams{PoolKey: leg.PoolKey, ZeroForOne: zeroForOne, ExactAmount: amount}
	var (
		quote v4quoter.Quote
		err   error
	)
	if exactInput {
		quote, err = q.QuoteExactInputSingle(params)
	} else {
		quote, err = q.QuoteExactOutputSingle(params)
	}
	if err != nil {
		return LegQuote{}, err
	}
	return LegQuote{Amount: quote.Amount, GasEstimate: quote.GasEstimate}, nil
}

// simulators dispatches a leg to the simulator of its version.
type simulators struct {
	versions Versions
	byVer    [V4 + 1]Simulator
}

func newSimulators(reader StateReader, schedule gas.Schedule, versions Versions) *simulators {
	s := &simulators{versions: versions}
	s.byVer[V2] = v2Simulator{reader: reader, schedule: schedule}
	s.byVer[V3] = v3Simulator{reader: reader, schedule: schedule}
	s.byVer[V4] = v4Simulator{reader: reader}
	return s
}

// quote simulates one leg. An exact input that buys nothing is reported as
// a liquidity failure rather than a zero result.
func (s *simulators) quote(ctx context.Context, leg Leg, in currency.Currency, exactInput bool, amount *big.Int) (LegQuote, error) {
	if !s.versions.Has(leg.Version) || s.byVer[leg.Version] == nil {
		return LegQuote{}, fmt.Errorf("%w: %s", ErrVersionDisabled, leg.Version)
	}
	zeroForOne := in == leg.PoolKey.Currency0
	q, err := s.byVer[leg.Version].QuoteSingle(ctx, leg, zeroForOne, exactInput, amount)
	if err != nil {
		return LegQuote{}, err
	}
	if q.Amount == nil || q.Amount.Sign() <= 0 {
		return LegQuote{}, fmt.Errorf("%w: %s leg %s/%s", ErrZeroOutput, leg.Version, leg.PoolKey.Currency0, leg.PoolKey.Currency1)
	}
	return q, nil
}

func currencyIn(leg Leg, zeroForOne bool) currency.Currency {
	if zeroForOne {
		return leg.PoolKey.Currency0
	}
	return leg.PoolKey.Currency1
}
