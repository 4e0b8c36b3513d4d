package indexer

import (
	uniswapv2 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2"
)

// Indexer builds IndexedUniswapV2 views from raw pool snapshots.
type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed Uniswap V2 system from a raw slice of pools.
func (i *Indexer) Index(pools []uniswapv2.Pool) IndexedUniswapV2 {
	return NewIndexableUniswapV2System(pools)
}

// IndexableUniswapV2System provides fast, indexed access to Uniswap V2 pool data.
// Pools are stored in canonical currency order. When two pools share a key the
// last one wins.
type IndexableUniswapV2System struct {
	byKey map[uniswapv2.PoolKey]uniswapv2.Pool
	all   []uniswapv2.Pool
}

// NewIndexableUniswapV2System creates a new indexed Uniswap V2 system.
func NewIndexableUniswapV2System(pools []uniswapv2.Pool) *IndexableUniswapV2System {
	byKey := make(map[uniswapv2.PoolKey]uniswapv2.Pool, len(pools))
	position := make(map[uniswapv2.PoolKey]int, len(pools))
	all := make([]uniswapv2.Pool, 0, len(pools))

	for _, p := range pools {
		p = p.Canonical()
		key := p.Key()
		if i, dup := position[key]; dup {
			all[i] = p
		} else {
			position[key] = len(all)
			all = append(all, p)
		}
		byKey[key] = p
	}

	return &IndexableUniswapV2System{
		byKey: byKey,
		all:   all,
	}
}

// GetByKey retrieves the pool deployed for a currency pair.
func (ius *IndexableUniswapV2System) GetByKey(key uniswapv2.PoolKey) (uniswapv2.Pool, bool) {
	p, ok := ius.byKey[key]
	return p, ok
}

// All returns a defensive copy of the slice of all pools.
func (ius *IndexableUniswapV2System) All() []uniswapv2.Pool {
	allCopy := make([]uniswapv2.Pool, len(ius.all))
	copy(allCopy, ius.all)
	return allCopy
}
