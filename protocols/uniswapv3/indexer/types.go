package indexer

import (
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/calculator/tickbitmap"
)

// IndexedPool is a pool together with the tick bitmap its swaps walk.
type IndexedPool struct {
	uniswapv3.Pool
	Bitmap tickbitmap.TickBitmap
}

// IndexedUniswapV3 provides a read-only view of all indexed concentrated
// liquidity pools, keyed by (pair, fee).
type IndexedUniswapV3 interface {
	GetByKey(key uniswapv3.PoolKey) (IndexedPool, bool)
	All() []uniswapv3.Pool
}
