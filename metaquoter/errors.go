package metaquoter

import (
	"errors"

	"github.com/owlprotocol/veraswap-sub000/gas"
	v2calculator "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2/calculator"
	v3calculator "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/poolmanager"
	v4quoter "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/quoter"
)

var (
	ErrInvalidExactAmount  = errors.New("exact amount must be positive and fit in uint128")
	ErrIdenticalCurrencies = errors.New("exact and variable currencies are identical")

	// ErrPoolDoesNotExist is returned for a V3 leg with no deployed pool, or
	// whose options do not match the deployed pool.
	ErrPoolDoesNotExist = errors.New("pool does not exist")
	// ErrV2PoolDoesNotExist is returned for a V2 leg with no deployed pair.
	ErrV2PoolDoesNotExist = errors.New("v2 pool does not exist")
	// ErrZeroOutput is returned when an exact input buys nothing.
	ErrZeroOutput = errors.New("exact input yields zero output")
	// ErrVersionDisabled is returned for a leg of a version with no simulator.
	ErrVersionDisabled = errors.New("pool version disabled")
)

// FailureKind classifies a failed leg simulation.
type FailureKind uint8

const (
	// FailureOther is any error outside the known taxonomy. It aborts the query.
	FailureOther FailureKind = iota
	FailurePoolAbsent
	FailureInsufficientLiquidity
	// FailureProtocolViolation means the simulation mechanism itself failed
	// and no result of the query can be trusted.
	FailureProtocolViolation
	// FailureOutOfGas means the simulation ran past its gas limit.
	FailureOutOfGas
)

func (k FailureKind) String() string {
	switch k {
	case FailurePoolAbsent:
		return "pool_absent"
	case FailureInsufficientLiquidity:
		return "insufficient_liquidity"
	case FailureProtocolViolation:
		return "protocol_violation"
	case FailureOutOfGas:
		return "out_of_gas"
	}
	return "other"
}

// Dropped reports whether a failure of this kind only removes its candidate.
func (k FailureKind) Dropped() bool {
	return k == FailurePoolAbsent || k == FailureInsufficientLiquidity || k == FailureOutOfGas
}

var (
	poolAbsent = []error{
		ErrPoolDoesNotExist,
		ErrV2PoolDoesNotExist,
		ErrVersionDisabled,
		poolmanager.ErrPoolNotInitialized,
	}
	insufficientLiquidity = []error{
		ErrZeroOutput,
		v2calculator.ErrInvalidReserves,
		v2calculator.ErrInsufficientLiquidity,
		v2calculator.ErrInsufficientOutputAmount,
		v3calculator.ErrNotEnoughLiquidity,
		// the pool is drained to the bound of the swap direction
		v3calculator.ErrPriceLimitAlreadyExceeded,
		poolmanager.ErrPriceLimitAlreadyExceeded,
		// a 100% fee pool cannot produce an exact output
		poolmanager.ErrInvalidFeeForExactOut,
		v4quoter.ErrNotEnoughLiquidity,
		// an intermediate amount beyond uint128 cannot be quoted by the manager
		v4quoter.ErrInvalidAmount,
	}
	protocolViolation = []error{
		poolmanager.ErrInvalidCallbackAddress,
		v4quoter.ErrNotSelf,
		v4quoter.ErrNotPoolManager,
		v4quoter.ErrUnexpectedCallSuccess,
		v4quoter.ErrUnexpectedRevertBytes,
	}
)

// Classify maps a leg simulation error to its failure kind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureOther
	case isAny(err, protocolViolation):
		return FailureProtocolViolation
	case isAny(err, poolAbsent):
		return FailurePoolAbsent
	case isAny(err, insufficientLiquidity):
		return FailureInsufficientLiquidity
	case errors.Is(err, gas.ErrOutOfGas):
		return FailureOutOfGas
	}
	return FailureOther
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
