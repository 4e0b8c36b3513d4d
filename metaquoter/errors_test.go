package metaquoter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/owlprotocol/veraswap-sub000/gas"
	v2calculator "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2/calculator"
	v3calculator "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/poolmanager"
	v4quoter "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/quoter"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, FailureOther},
		{"v3 pool missing", fmt.Errorf("%w: v3", ErrPoolDoesNotExist), FailurePoolAbsent},
		{"v2 pool missing", ErrV2PoolDoesNotExist, FailurePoolAbsent},
		{"version disabled", ErrVersionDisabled, FailurePoolAbsent},
		{"v4 pool not initialized", poolmanager.ErrPoolNotInitialized, FailurePoolAbsent},
		{"zero output", ErrZeroOutput, FailureInsufficientLiquidity},
		{"v2 reserves", fmt.Errorf("%w: empty", v2calculator.ErrInvalidReserves), FailureInsufficientLiquidity},
		{"v2 liquidity", v2calculator.ErrInsufficientLiquidity, FailureInsufficientLiquidity},
		{"v3 liquidity", v3calculator.ErrNotEnoughLiquidity, FailureInsufficientLiquidity},
		{"v4 liquidity", v4quoter.ErrNotEnoughLiquidity, FailureInsufficientLiquidity},
		{"v4 intermediate too large", v4quoter.ErrInvalidAmount, FailureInsufficientLiquidity},
		{"v3 price at bound", fmt.Errorf("%w: limit 4295128740, price 4295128739", v3calculator.ErrPriceLimitAlreadyExceeded), FailureInsufficientLiquidity},
		{"v4 price at bound", poolmanager.ErrPriceLimitAlreadyExceeded, FailureInsufficientLiquidity},
		{"v4 full fee exact output", poolmanager.ErrInvalidFeeForExactOut, FailureInsufficientLiquidity},
		{"out of gas", fmt.Errorf("%w: limit 20000", gas.ErrOutOfGas), FailureOutOfGas},
		{"invalid callback", poolmanager.ErrInvalidCallbackAddress, FailureProtocolViolation},
		{"not self", v4quoter.ErrNotSelf, FailureProtocolViolation},
		{"not pool manager", v4quoter.ErrNotPoolManager, FailureProtocolViolation},
		{"unexpected success", v4quoter.ErrUnexpectedCallSuccess, FailureProtocolViolation},
		{"unexpected revert", v4quoter.ErrUnexpectedRevertBytes, FailureProtocolViolation},
		{"violation wins over liquidity", errors.Join(v4quoter.ErrNotEnoughLiquidity, v4quoter.ErrNotSelf), FailureProtocolViolation},
		{"unknown", errors.New("boom"), FailureOther},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kind := Classify(tc.err)
			assert.Equal(t, tc.want, kind)
			dropped := tc.want == FailurePoolAbsent || tc.want == FailureInsufficientLiquidity || tc.want == FailureOutOfGas
			assert.Equal(t, dropped, kind.Dropped())
		})
	}
}

func TestFailureKind_String(t *testing.T) {
	assert.Equal(t, "pool_absent", FailurePoolAbsent.String())
	assert.Equal(t, "insufficient_liquidity", FailureInsufficientLiquidity.String())
	assert.Equal(t, "protocol_violation", FailureProtocolViolation.String())
	assert.Equal(t, "out_of_gas", FailureOutOfGas.String())
	assert.Equal(t, "other", FailureOther.String())
}
