package tickbitmap

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/bitmath"
)

var (
	ErrInvalidTickSpacing = errors.New("tick spacing must be positive")
	ErrTickMisaligned     = errors.New("tick is not a multiple of tick spacing")
)

// TickBitmap packs initialized ticks, compressed by tick spacing, into 256-bit
// words keyed by word position. A missing word has no initialized ticks.
type TickBitmap map[int16]*uint256.Int

// FromTicks builds the bitmap for a pool's initialized ticks.
func FromTicks(ticks []uniswapv3.TickInfo, tickSpacing int32) (TickBitmap, error) {
	if tickSpacing <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTickSpacing, tickSpacing)
	}
	bitmap := make(TickBitmap, len(ticks)/8+1)
	for _, t := range ticks {
		if t.Index%tickSpacing != 0 {
			return nil, fmt.Errorf("%w: tick %d spacing %d", ErrTickMisaligned, t.Index, tickSpacing)
		}
		bitmap.FlipTick(t.Index, tickSpacing)
	}
	return bitmap, nil
}

// Position computes the word and bit holding a compressed tick.
func Position(compressed int32) (wordPos int16, bitPos uint8) {
	return int16(compressed >> 8), uint8(compressed & 0xff)
}

// FlipTick toggles the initialized state of an aligned tick.
func (b TickBitmap) FlipTick(tick, tickSpacing int32) {
	wordPos, bitPos := Position(tick / tickSpacing)
	word, ok := b[wordPos]
	if !ok {
		word = new(uint256.Int)
		b[wordPos] = word
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
	word.Xor(word, mask)
	if word.IsZero() {
		delete(b, wordPos)
	}
}

// IsInitialized reports whether an aligned tick is set.
func (b TickBitmap) IsInitialized(tick, tickSpacing int32) bool {
	wordPos, bitPos := Position(tick / tickSpacing)
	word, ok := b[wordPos]
	if !ok {
		return false
	}
	return word.Clone().Rsh(word, uint(bitPos)).Uint64()&1 == 1
}

// NextInitializedTickWithinOneWord returns the next initialized tick contained
// in the same word as the tick that is either to the left (less than or equal
// to) or right (greater than) of the given tick. When no tick is initialized
// within the word, the word boundary is returned with initialized=false so
// the caller can step across it.
func (b TickBitmap) NextInitializedTickWithinOneWord(tick, tickSpacing int32, lte bool) (next int32, initialized bool) {
	compressed := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		compressed-- // round towards negative infinity
	}

	if lte {
		wordPos, bitPos := Position(compressed)
		// all the 1s at or to the right of the current bitPos
		mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
		mask.Sub(mask, uint256.NewInt(1))
		mask.Or(mask, new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos)))

		masked := b.masked(wordPos, mask)
		if masked.IsZero() {
			return (compressed - int32(bitPos)) * tickSpacing, false
		}
		msb, _ := bitmath.MostSignificantBit(masked)
		return (compressed - int32(bitPos) + int32(msb)) * tickSpacing, true
	}

	// start from the word of the next tick, since the current tick state doesn't matter
	wordPos, bitPos := Position(compressed + 1)
	// all the 1s at or to the left of the bitPos
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bitPos))
	mask.Sub(mask, uint256.NewInt(1))
	mask.Not(mask)

	masked := b.masked(wordPos, mask)
	if masked.IsZero() {
		return (compressed + 1 + int32(255-bitPos)) * tickSpacing, false
	}
	lsb, _ := bitmath.LeastSignificantBit(masked)
	return (compressed + 1 + int32(lsb) - int32(bitPos)) * tickSpacing, true
}

func (b TickBitmap) masked(wordPos int16, mask *uint256.Int) *uint256.Int {
	word, ok := b[wordPos]
	if !ok {
		return new(uint256.Int)
	}
	return mask.And(mask, word)
}
