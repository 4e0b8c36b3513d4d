package tickbitmap

import (
	"testing"

	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTickInfoSlice is a helper function to convert a slice of tick indices
// into a slice of TickInfo structs for testing purposes.
func makeTickInfoSlice(indices []int32) []uniswapv3.TickInfo {
	tickInfos := make([]uniswapv3.TickInfo, len(indices))
	for i, idx := range indices {
		tickInfos[i] = uniswapv3.TickInfo{Index: idx}
	}
	return tickInfos
}

func TestNextInitializedTickWithinOneWord(t *testing.T) {
	// word boundaries are at multiples of 256
	initialized := []int32{-200, -55, -4, 70, 78, 84, 139, 240, 535}

	testCases := []struct {
		name                string
		extra               []int32
		startTick           int32
		lte                 bool
		expectedNext        int32
		expectedInitialized bool
	}{
		// --- Search Right (lte = false) ---
		{name: "GT: at initialized tick", startTick: 78, expectedNext: 84, expectedInitialized: true},
		{name: "GT: at negative initialized tick", startTick: -55, expectedNext: -4, expectedInitialized: true},
		{name: "GT: tick directly to the right", startTick: 77, expectedNext: 78, expectedInitialized: true},
		{name: "GT: negative tick directly to the right", startTick: -56, expectedNext: -55, expectedInitialized: true},
		{name: "GT: right boundary returns next word end", startTick: 255, expectedNext: 511},
		{name: "GT: left boundary", startTick: -257, expectedNext: -200, expectedInitialized: true},
		{name: "GT: next initialized in same word", extra: []int32{340}, startTick: 328, expectedNext: 340, expectedInitialized: true},
		{name: "GT: does not exceed boundary", startTick: 508, expectedNext: 511},
		{name: "GT: skips half word", startTick: 383, expectedNext: 511},

		// --- Search Left (lte = true) ---
		{name: "LTE: same tick if initialized", startTick: 78, lte: true, expectedNext: 78, expectedInitialized: true},
		{name: "LTE: tick directly to the left", startTick: 79, lte: true, expectedNext: 78, expectedInitialized: true},
		{name: "LTE: will not exceed word boundary", startTick: 258, lte: true, expectedNext: 256},
		{name: "LTE: at the word boundary", startTick: 256, lte: true, expectedNext: 256},
		{name: "LTE: word boundary less 1", startTick: 72, lte: true, expectedNext: 70, expectedInitialized: true},
		{name: "LTE: negative word boundary", startTick: -257, lte: true, expectedNext: -512},
		{name: "LTE: entire empty word", startTick: 1023, lte: true, expectedNext: 768},
		{name: "LTE: halfway through empty word", startTick: 900, lte: true, expectedNext: 768},
		{name: "LTE: boundary is initialized", extra: []int32{329}, startTick: 456, lte: true, expectedNext: 329, expectedInitialized: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bitmap, err := FromTicks(makeTickInfoSlice(append(append([]int32{}, initialized...), tc.extra...)), 1)
			require.NoError(t, err)

			next, init := bitmap.NextInitializedTickWithinOneWord(tc.startTick, 1, tc.lte)
			assert.Equal(t, tc.expectedInitialized, init)
			assert.Equal(t, tc.expectedNext, next)
		})
	}
}

func TestNextInitializedTickWithinOneWord_TickSpacing(t *testing.T) {
	bitmap, err := FromTicks(makeTickInfoSlice([]int32{-120, 0, 60, 600}), 60)
	require.NoError(t, err)

	testCases := []struct {
		name                string
		startTick           int32
		lte                 bool
		expectedNext        int32
		expectedInitialized bool
	}{
		{"GT: between aligned ticks", 1, false, 60, true},
		{"GT: negative unaligned rounds down first", -61, false, -60, false},
		{"LTE: unaligned negative", -1, true, -120, true},
		{"LTE: exact aligned", 60, true, 60, true},
		{"GT: past last tick hits word end", 600, false, 255 * 60, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, init := bitmap.NextInitializedTickWithinOneWord(tc.startTick, 60, tc.lte)
			assert.Equal(t, tc.expectedInitialized, init)
			assert.Equal(t, tc.expectedNext, next)
		})
	}
}

func TestFlipTick(t *testing.T) {
	bitmap := TickBitmap{}
	bitmap.FlipTick(-230, 1)
	assert.True(t, bitmap.IsInitialized(-230, 1))
	assert.False(t, bitmap.IsInitialized(-231, 1))
	assert.False(t, bitmap.IsInitialized(-229, 1))
	assert.False(t, bitmap.IsInitialized(-230+256, 1))
	assert.False(t, bitmap.IsInitialized(-230-256, 1))

	bitmap.FlipTick(-230, 1)
	assert.False(t, bitmap.IsInitialized(-230, 1))
	assert.Empty(t, bitmap, "clearing the last bit drops the word")
}

func TestFromTicks_Errors(t *testing.T) {
	_, err := FromTicks(makeTickInfoSlice([]int32{10}), 0)
	assert.ErrorIs(t, err, ErrInvalidTickSpacing)

	_, err = FromTicks(makeTickInfoSlice([]int32{10}), 60)
	assert.ErrorIs(t, err, ErrTickMisaligned)
}
