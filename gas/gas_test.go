package gas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeter(t *testing.T) {
	t.Run("unbounded", func(t *testing.T) {
		m := NewMeter(0)
		require.NoError(t, m.Charge(10))
		require.NoError(t, m.Charge(32))
		assert.Equal(t, uint64(42), m.Used())
	})

	t.Run("limit", func(t *testing.T) {
		m := NewMeter(100)
		require.NoError(t, m.Charge(100))
		err := m.Charge(1)
		assert.ErrorIs(t, err, ErrOutOfGas)
		assert.Equal(t, uint64(100), m.Used())
	})

	t.Run("overflow", func(t *testing.T) {
		m := NewMeter(0)
		require.NoError(t, m.Charge(math.MaxUint64))
		assert.ErrorIs(t, m.Charge(1), ErrOutOfGas)
	})
}

func TestSchedule_V3Swap(t *testing.T) {
	s := DefaultSchedule()
	assert.Equal(t, s.V3SwapBase, s.V3Swap(0))
	assert.Equal(t, s.V3SwapBase+3*s.V3TickCross, s.V3Swap(3))
}
