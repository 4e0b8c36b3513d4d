// Package poolmanager holds every V4 pool in one singleton. Pool state may only
// change inside an unlock scope; a scope whose callback fails is rolled back
// in full, so a caller can run a swap and discard it by failing on purpose.
package poolmanager

import (
	"cmp"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/owlprotocol/veraswap-sub000/gas"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	calculator "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickbitmap"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickmath"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4"
)

// Locker is a contract that can hold the unlock scope.
type Locker interface {
	Address() common.Address
	// UnlockCallback runs inside the scope. Returning an error reverts every
	// change made in the scope.
	UnlockCallback(scope *Scope, data []byte) ([]byte, error)
}

type pool struct {
	key    uniswapv4.PoolKey
	lpFee  uint32
	state  uniswapv3.PoolState
	bitmap tickbitmap.TickBitmap
}

// PoolManager is the singleton holding V4 pool state.
type PoolManager struct {
	address  common.Address
	schedule gas.Schedule

	// mu is held for the whole of an unlock scope.
	mu    sync.Mutex
	pools map[uniswapv4.PoolID]*pool
}

// New creates a manager at address with the given pools initialized.
func New(address common.Address, schedule gas.Schedule, pools []uniswapv4.Pool) (*PoolManager, error) {
	pm := &PoolManager{
		address:  address,
		schedule: schedule,
		pools:    make(map[uniswapv4.PoolID]*pool, len(pools)),
	}
	for _, p := range pools {
		if err := pm.initialize(p); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

func (pm *PoolManager) initialize(p uniswapv4.Pool) error {
	if err := p.Key.Validate(); err != nil {
		return err
	}
	id := p.Key.ID()
	if _, ok := pm.pools[id]; ok {
		return fmt.Errorf("%w: %s", ErrPoolAlreadyInitialized, id)
	}
	if p.SqrtPriceX96 == nil || p.SqrtPriceX96.Cmp(tickmath.MIN_SQRT_RATIO) < 0 || p.SqrtPriceX96.Cmp(tickmath.MAX_SQRT_RATIO) >= 0 {
		return fmt.Errorf("pool %s: %w", id, tickmath.ErrSqrtPriceOutOfBounds)
	}
	if p.Key.IsDynamicFee() && p.LPFee > uniswapv4.MaxLPFee {
		return fmt.Errorf("pool %s: %w: %d", id, uniswapv4.ErrLPFeeTooLarge, p.LPFee)
	}
	state := p.PoolState.Clone()
	if !slices.IsSortedFunc(state.Ticks, compareTicks) {
		state.Ticks = slices.Clone(state.Ticks)
		slices.SortFunc(state.Ticks, compareTicks)
	}
	bitmap, err := tickbitmap.FromTicks(state.Ticks, p.Key.TickSpacing)
	if err != nil {
		return fmt.Errorf("pool %s: %w", id, err)
	}
	if state.Liquidity == nil {
		state.Liquidity = new(big.Int)
	}
	pm.pools[id] = &pool{key: p.Key, lpFee: p.LPFee, state: state, bitmap: bitmap}
	return nil
}

func compareTicks(a, b uniswapv3.TickInfo) int {
	return cmp.Compare(a.Index, b.Index)
}

func (pm *PoolManager) Address() common.Address {
	return pm.address
}

// Pool returns a copy of an initialized pool's current state.
func (pm *PoolManager) Pool(id uniswapv4.PoolID) (uniswapv4.Pool, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p, ok := pm.pools[id]
	if !ok {
		return uniswapv4.Pool{}, false
	}
	return uniswapv4.Pool{Key: p.key, LPFee: p.lpFee, PoolState: p.state.Clone()}, true
}

// Len returns the number of initialized pools.
func (pm *PoolManager) Len() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.pools)
}

// Unlock opens the manager's exclusive scope and hands it to locker. Scopes on
// one manager run one at a time. Gas is charged to meter, which is not rolled
// back. The callback's changes are committed only if it returns without error
// and leaves every currency delta settled.
func (pm *PoolManager) Unlock(meter *gas.Meter, locker Locker, data []byte) ([]byte, error) {
	if locker == nil || locker.Address() == (common.Address{}) {
		return nil, reverts.Revert(ErrInvalidCallbackAddress)
	}
	if meter == nil {
		meter = gas.NewMeter(0)
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if err := meter.Charge(pm.schedule.V4Unlock); err != nil {
		return nil, err
	}

	scope := &Scope{
		manager: pm,
		meter:   meter,
		journal: make(map[uniswapv4.PoolID]uniswapv3.PoolState),
		deltas:  make(map[currency.Currency]*big.Int),
	}
	result, err := locker.UnlockCallback(scope, data)
	scope.closed = true
	if err != nil {
		scope.rollback()
		return nil, err
	}
	if scope.nonzeroDeltas() > 0 {
		scope.rollback()
		return nil, reverts.Revert(ErrCurrencyNotSettled)
	}
	return result, nil
}

// Scope is the capability handed to a locker for the duration of one unlock.
type Scope struct {
	manager *PoolManager
	meter   *gas.Meter
	closed  bool

	// journal holds the state of every pool before its first change.
	journal map[uniswapv4.PoolID]uniswapv3.PoolState
	deltas  map[currency.Currency]*big.Int
}

// Sender is the caller the callback observes, which is always the manager.
func (s *Scope) Sender() common.Address {
	return s.manager.address
}

// Meter is the gas meter of the enclosing unlock.
func (s *Scope) Meter() *gas.Meter {
	return s.meter
}

// Swap executes a swap against an initialized pool and credits the resulting
// balance delta to the locker. hookData is passed to hooks, which this
// manager does not execute.
func (s *Scope) Swap(key uniswapv4.PoolKey, params uniswapv4.SwapParams, hookData []byte) (uniswapv4.BalanceDelta, error) {
	if s.closed {
		return uniswapv4.BalanceDelta{}, reverts.Revert(ErrManagerLocked)
	}
	if params.AmountSpecified == nil || params.AmountSpecified.Sign() == 0 {
		return uniswapv4.BalanceDelta{}, reverts.Revert(ErrSwapAmountCannotBeZero)
	}
	id := key.ID()
	p, ok := s.manager.pools[id]
	if !ok {
		return uniswapv4.BalanceDelta{}, reverts.Revert(ErrPoolNotInitialized)
	}
	if err := s.meter.Charge(s.manager.schedule.V4SwapBase); err != nil {
		return uniswapv4.BalanceDelta{}, err
	}

	fee := key.Fee
	if key.IsDynamicFee() {
		fee = p.lpFee
	}
	exactInput := params.AmountSpecified.Sign() < 0
	if !exactInput && fee >= uniswapv4.MaxLPFee {
		return uniswapv4.BalanceDelta{}, reverts.Revert(ErrInvalidFeeForExactOut)
	}

	res, err := calculator.Swap(p.state, p.bitmap, calculator.SwapParams{
		ZeroForOne:        params.ZeroForOne,
		AmountSpecified:   new(big.Int).Neg(params.AmountSpecified),
		SqrtPriceLimitX96: params.SqrtPriceLimitX96,
		FeePips:           fee,
		TickSpacing:       key.TickSpacing,
	})
	if err != nil {
		return uniswapv4.BalanceDelta{}, s.swapRevert(p, params, err)
	}

	gasUsed := s.manager.schedule.V4SwapStep*uint64(res.Steps) + s.manager.schedule.V4TickCross*uint64(res.TicksCrossed)
	if err := s.meter.Charge(gasUsed); err != nil {
		return uniswapv4.BalanceDelta{}, err
	}

	if _, touched := s.journal[id]; !touched {
		s.journal[id] = p.state
	}
	p.state = uniswapv3.PoolState{
		SqrtPriceX96: res.SqrtPriceX96,
		Tick:         res.Tick,
		Liquidity:    res.Liquidity,
		Ticks:        p.state.Ticks,
	}

	paid := new(big.Int).Neg(res.AmountIn)
	var delta uniswapv4.BalanceDelta
	if params.ZeroForOne {
		delta = uniswapv4.BalanceDelta{Amount0: paid, Amount1: res.AmountOut}
	} else {
		delta = uniswapv4.BalanceDelta{Amount0: res.AmountOut, Amount1: paid}
	}
	s.accountDelta(key.Currency0, delta.Amount0)
	s.accountDelta(key.Currency1, delta.Amount1)
	return delta, nil
}

func (s *Scope) swapRevert(p *pool, params uniswapv4.SwapParams, err error) error {
	limit := params.SqrtPriceLimitX96
	if limit == nil {
		limit = tickmath.MaxSqrtPriceLimit
		if params.ZeroForOne {
			limit = tickmath.MinSqrtPriceLimit
		}
	}
	switch {
	case errors.Is(err, calculator.ErrPriceLimitAlreadyExceeded):
		return reverts.Revert(ErrPriceLimitAlreadyExceeded, p.state.SqrtPriceX96, limit)
	case errors.Is(err, calculator.ErrPriceLimitOutOfBounds):
		return reverts.Revert(ErrPriceLimitOutOfBounds, limit)
	}
	return err
}

// Settle records a payment of amount by the locker.
func (s *Scope) Settle(c currency.Currency, amount *big.Int) error {
	if s.closed {
		return reverts.Revert(ErrManagerLocked)
	}
	s.accountDelta(c, amount)
	return nil
}

// Take records a withdrawal of amount by the locker.
func (s *Scope) Take(c currency.Currency, amount *big.Int) error {
	if s.closed {
		return reverts.Revert(ErrManagerLocked)
	}
	s.accountDelta(c, new(big.Int).Neg(amount))
	return nil
}

// CurrencyDelta returns the locker's outstanding delta for c.
func (s *Scope) CurrencyDelta(c currency.Currency) *big.Int {
	if d, ok := s.deltas[c]; ok {
		return new(big.Int).Set(d)
	}
	return new(big.Int)
}

func (s *Scope) accountDelta(c currency.Currency, amount *big.Int) {
	d, ok := s.deltas[c]
	if !ok {
		d = new(big.Int)
		s.deltas[c] = d
	}
	d.Add(d, amount)
}

func (s *Scope) nonzeroDeltas() int {
	n := 0
	for _, d := range s.deltas {
		if d.Sign() != 0 {
			n++
		}
	}
	return n
}

func (s *Scope) rollback() {
	for id, state := range s.journal {
		s.manager.pools[id].state = state
	}
	clear(s.journal)
	clear(s.deltas)
}
