package indexer

import uniswapv2 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2"

// IndexedUniswapV2 defines the methods for accessing indexed Uniswap V2 pool data.
type IndexedUniswapV2 interface {
	GetByKey(key uniswapv2.PoolKey) (uniswapv2.Pool, bool)
	All() []uniswapv2.Pool
}
