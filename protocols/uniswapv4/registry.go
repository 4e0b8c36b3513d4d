package uniswapv4

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/owlprotocol/veraswap-sub000/engine"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
)

// Schema is the decode contract for a snapshot of singleton manager pools.
const Schema engine.ProtocolSchema = "veraswap/uniswap-v4/Pool@v1"

const (
	// DynamicFeeFlag marks a key whose LP fee is read from pool state.
	DynamicFeeFlag = 0x800000
	// MaxLPFee is 100% in hundredths of a bip.
	MaxLPFee       = 1_000_000
	MinTickSpacing = 1
	MaxTickSpacing = 32767
)

var (
	ErrCurrenciesOutOfOrder = errors.New("currencies out of order or identical")
	ErrTickSpacingTooLarge  = errors.New("tick spacing too large")
	ErrTickSpacingTooSmall  = errors.New("tick spacing too small")
	ErrLPFeeTooLarge        = errors.New("lp fee too large")
)

// PoolKey identifies a pool held by the pool manager.
type PoolKey struct {
	Currency0   currency.Currency `json:"currency0"`
	Currency1   currency.Currency `json:"currency1"`
	Fee         uint32            `json:"fee"`
	TickSpacing int32             `json:"tickSpacing"`
	Hooks       common.Address    `json:"hooks"`
}

// NewPoolKey sorts an unordered pair and combines it with a pool configuration.
func NewPoolKey(a, b currency.Currency, fee uint32, tickSpacing int32, hooks common.Address) PoolKey {
	c0, c1 := currency.Sort(a, b)
	return PoolKey{Currency0: c0, Currency1: c1, Fee: fee, TickSpacing: tickSpacing, Hooks: hooks}
}

// IsDynamicFee reports whether the fee is managed by the pool rather than the key.
func (k PoolKey) IsDynamicFee() bool {
	return k.Fee == DynamicFeeFlag
}

// Validate applies the manager's initialization rules to a key.
func (k PoolKey) Validate() error {
	if !k.Currency0.Less(k.Currency1) {
		return fmt.Errorf("%w: %s/%s", ErrCurrenciesOutOfOrder, k.Currency0, k.Currency1)
	}
	if k.TickSpacing > MaxTickSpacing {
		return fmt.Errorf("%w: %d", ErrTickSpacingTooLarge, k.TickSpacing)
	}
	if k.TickSpacing < MinTickSpacing {
		return fmt.Errorf("%w: %d", ErrTickSpacingTooSmall, k.TickSpacing)
	}
	if !k.IsDynamicFee() && k.Fee > MaxLPFee {
		return fmt.Errorf("%w: %d", ErrLPFeeTooLarge, k.Fee)
	}
	return nil
}

var poolKeyArguments = func() abi.Arguments {
	newType := func(t string) abi.Type {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		return typ
	}
	address := newType("address")
	return abi.Arguments{
		{Name: "currency0", Type: address},
		{Name: "currency1", Type: address},
		{Name: "fee", Type: newType("uint24")},
		{Name: "tickSpacing", Type: newType("int24")},
		{Name: "hooks", Type: address},
	}
}()

// ID returns keccak256(abi.encode(key)), the manager's pool identifier.
func (k PoolKey) ID() PoolID {
	encoded, err := poolKeyArguments.Pack(
		k.Currency0.Address(),
		k.Currency1.Address(),
		new(big.Int).SetUint64(uint64(k.Fee)),
		big.NewInt(int64(k.TickSpacing)),
		k.Hooks,
	)
	if err != nil {
		// only reachable if the key's field types drift from the ABI
		panic(fmt.Sprintf("encode pool key: %v", err))
	}
	return PoolID(crypto.Keccak256Hash(encoded))
}

// PoolID is the hash of a PoolKey.
type PoolID common.Hash

func (id PoolID) Hex() string {
	return common.Hash(id).Hex()
}

func (id PoolID) String() string {
	return id.Hex()
}

// SwapParams follows the manager's sign convention: a negative AmountSpecified
// is an exact input, a positive one an exact output.
type SwapParams struct {
	ZeroForOne        bool
	AmountSpecified   *big.Int
	SqrtPriceLimitX96 *big.Int
}

// BalanceDelta is a swap's effect on the caller's balances. Negative amounts
// are owed by the caller to the manager, positive amounts are owed to the caller.
type BalanceDelta struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// Pool is an initialized pool held by the manager.
type Pool struct {
	Key PoolKey `json:"key"`
	// LPFee is the fee charged when the key carries DynamicFeeFlag.
	LPFee               uint32 `json:"lpFee,omitempty"`
	uniswapv3.PoolState `json:",inline"`
}

func (p Pool) ID() PoolID {
	return p.Key.ID()
}

// SwapFee returns the fee charged per swap, in hundredths of a bip.
func (p Pool) SwapFee() uint32 {
	if p.Key.IsDynamicFee() {
		return p.LPFee
	}
	return p.Key.Fee
}
