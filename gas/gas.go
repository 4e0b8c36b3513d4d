// Package gas estimates execution cost of simulated swaps. Costs are opaque
// units that are only summed and compared.
package gas

import (
	"errors"
	"fmt"
	"math"
)

var ErrOutOfGas = errors.New("out of gas")

// Schedule prices the operations a quote performs.
type Schedule struct {
	// V2Swap is the flat cost of a constant-product swap.
	V2Swap uint64 `mapstructure:"v2_swap" json:"v2Swap"`
	// V3SwapBase and V3TickCross follow the QuoterV2 convention of a base cost
	// plus a cost per initialized tick crossed.
	V3SwapBase  uint64 `mapstructure:"v3_swap_base" json:"v3SwapBase"`
	V3TickCross uint64 `mapstructure:"v3_tick_cross" json:"v3TickCross"`
	// V4 costs are charged as the simulated call executes.
	V4Unlock    uint64 `mapstructure:"v4_unlock" json:"v4Unlock"`
	V4SwapBase  uint64 `mapstructure:"v4_swap_base" json:"v4SwapBase"`
	V4SwapStep  uint64 `mapstructure:"v4_swap_step" json:"v4SwapStep"`
	V4TickCross uint64 `mapstructure:"v4_tick_cross" json:"v4TickCross"`
	// QuoterCall is the overhead of entering the quoter contract.
	QuoterCall uint64 `mapstructure:"quoter_call" json:"quoterCall"`
}

// DefaultSchedule approximates mainnet costs of the reference contracts.
func DefaultSchedule() Schedule {
	return Schedule{
		V2Swap:      80_000,
		V3SwapBase:  80_000,
		V3TickCross: 24_000,
		V4Unlock:    10_000,
		V4SwapBase:  50_000,
		V4SwapStep:  5_000,
		V4TickCross: 20_000,
		QuoterCall:  5_000,
	}
}

// V3Swap returns the estimate for a V3 swap that crossed the given number of
// initialized ticks.
func (s Schedule) V3Swap(ticksCrossed uint32) uint64 {
	return s.V3SwapBase + s.V3TickCross*uint64(ticksCrossed)
}

// Meter accumulates gas charged during one simulated call. A Meter is not safe
// for concurrent use; each call gets its own.
type Meter struct {
	limit uint64
	used  uint64
}

// NewMeter returns a meter that fails once more than limit gas is charged.
// A zero limit is unbounded.
func NewMeter(limit uint64) *Meter {
	return &Meter{limit: limit}
}

// Charge adds amount to the gas used.
func (m *Meter) Charge(amount uint64) error {
	used := m.used + amount
	if used < m.used {
		m.used = math.MaxUint64
		return fmt.Errorf("%w: overflow", ErrOutOfGas)
	}
	if m.limit > 0 && used > m.limit {
		m.used = m.limit
		return fmt.Errorf("%w: limit %d", ErrOutOfGas, m.limit)
	}
	m.used = used
	return nil
}

// Used reports the gas charged so far.
func (m *Meter) Used() uint64 {
	return m.used
}
