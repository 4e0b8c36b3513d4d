package indexer

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickbitmap"
)

var (
	ErrInvalidPool   = errors.New("invalid uniswap v3 pool")
	ErrDuplicateTick = errors.New("duplicate tick")
)

// Indexer builds IndexedUniswapV3 views from raw pool snapshots.
type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed Uniswap V3 system from a raw slice of pools.
func (i *Indexer) Index(pools []uniswapv3.Pool) (IndexedUniswapV3, error) {
	return NewIndexableUniswapV3System(pools)
}

// IndexableUniswapV3System provides fast, indexed access to Uniswap V3 pool data.
type IndexableUniswapV3System struct {
	byKey map[uniswapv3.PoolKey]IndexedPool
	all   []uniswapv3.Pool
}

// NewIndexableUniswapV3System validates each pool, sorts its ticks and builds
// its bitmap. Pools listed with unsorted currencies are rejected since their
// prices would be inverted.
func NewIndexableUniswapV3System(pools []uniswapv3.Pool) (*IndexableUniswapV3System, error) {
	byKey := make(map[uniswapv3.PoolKey]IndexedPool, len(pools))
	all := make([]uniswapv3.Pool, 0, len(pools))

	for _, p := range pools {
		indexed, err := indexPool(p)
		if err != nil {
			return nil, err
		}
		key := p.Key()
		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("%w: duplicate pool %s/%s fee %d", ErrInvalidPool, key.Currency0, key.Currency1, key.Fee)
		}
		byKey[key] = indexed
		all = append(all, indexed.Pool)
	}

	return &IndexableUniswapV3System{
		byKey: byKey,
		all:   all,
	}, nil
}

func indexPool(p uniswapv3.Pool) (IndexedPool, error) {
	if !p.Currency0.Less(p.Currency1) {
		return IndexedPool{}, fmt.Errorf("%w: currencies %s/%s are not sorted", ErrInvalidPool, p.Currency0, p.Currency1)
	}
	if p.SqrtPriceX96 == nil || p.SqrtPriceX96.Sign() <= 0 || p.Liquidity == nil || p.Liquidity.Sign() < 0 {
		return IndexedPool{}, fmt.Errorf("%w: pool %s/%s fee %d has no price or liquidity", ErrInvalidPool, p.Currency0, p.Currency1, p.Fee)
	}

	if !slices.IsSortedFunc(p.Ticks, compareTicks) {
		p.Ticks = slices.Clone(p.Ticks)
		slices.SortFunc(p.Ticks, compareTicks)
	}
	for i := 1; i < len(p.Ticks); i++ {
		if p.Ticks[i].Index == p.Ticks[i-1].Index {
			return IndexedPool{}, fmt.Errorf("%w: %d in pool %s/%s fee %d", ErrDuplicateTick, p.Ticks[i].Index, p.Currency0, p.Currency1, p.Fee)
		}
	}

	bitmap, err := tickbitmap.FromTicks(p.Ticks, p.TickSpacing)
	if err != nil {
		return IndexedPool{}, fmt.Errorf("%w: pool %s/%s fee %d: %w", ErrInvalidPool, p.Currency0, p.Currency1, p.Fee, err)
	}
	return IndexedPool{Pool: p, Bitmap: bitmap}, nil
}

func compareTicks(a, b uniswapv3.TickInfo) int {
	return cmp.Compare(a.Index, b.Index)
}

// GetByKey retrieves a pool by pair and fee.
func (ius *IndexableUniswapV3System) GetByKey(key uniswapv3.PoolKey) (IndexedPool, bool) {
	p, ok := ius.byKey[key]
	return p, ok
}

// All returns a defensive copy of the slice of all pools.
func (ius *IndexableUniswapV3System) All() []uniswapv3.Pool {
	allCopy := make([]uniswapv3.Pool, len(ius.all))
	copy(allCopy, ius.all)
	return allCopy
}
