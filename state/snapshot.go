// Package state builds immutable pool-state snapshots for the meta-quoter and
// publishes them atomically.
package state

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/owlprotocol/veraswap-sub000/engine"
	"github.com/owlprotocol/veraswap-sub000/gas"
	"github.com/owlprotocol/veraswap-sub000/metaquoter"
	uniswapv2 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2"
	v2indexer "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2/indexer"
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	v3indexer "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3/indexer"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/poolmanager"
	v4quoter "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4/quoter"
)

// Canonical mainnet deployments of the V4 singleton and its quoter.
var (
	DefaultPoolManager = common.HexToAddress("0x000000000004444c5dc75cB358380D2e3dE08A90")
	DefaultQuoter      = common.HexToAddress("0x52F0E24D1c21C8A0cB1e5a5dD6198556BD9E1203")
)

// Pools is the raw pool data of one block, per version.
type Pools struct {
	V2 []uniswapv2.Pool `json:"v2"`
	V3 []uniswapv3.Pool `json:"v3"`
	V4 []uniswapv4.Pool `json:"v4"`
}

// Options configures how snapshots simulate V4 pools.
type Options struct {
	PoolManager common.Address
	Quoter      common.Address
	Schedule    gas.Schedule
	// GasLimit bounds a single V4 quote. Zero is unbounded.
	GasLimit uint64
}

// DefaultOptions uses the mainnet deployments and the default gas schedule.
func DefaultOptions() Options {
	return Options{
		PoolManager: DefaultPoolManager,
		Quoter:      DefaultQuoter,
		Schedule:    gas.DefaultSchedule(),
	}
}

// Counts is the number of pools of each version in a snapshot.
type Counts struct {
	V2 int `json:"v2"`
	V3 int `json:"v3"`
	V4 int `json:"v4"`
}

// Snapshot is a consistent view of pool state at one block. It is never
// modified after construction; V4 simulations roll back every change.
type Snapshot struct {
	ChainID     uint64
	BlockNumber uint64

	v2      v2indexer.IndexedUniswapV2
	v3      v3indexer.IndexedUniswapV3
	manager *poolmanager.PoolManager
	quoter  *v4quoter.Quoter
}

var _ metaquoter.StateReader = (*Snapshot)(nil)

// New indexes pools into a snapshot.
func New(pools Pools, opts Options) (*Snapshot, error) {
	s := &Snapshot{v2: v2indexer.New().Index(pools.V2)}

	var err error
	s.v3, err = v3indexer.New().Index(pools.V3)
	if err != nil {
		return nil, fmt.Errorf("indexing v3 pools: %w", err)
	}

	if len(pools.V4) > 0 {
		s.manager, err = poolmanager.New(opts.PoolManager, opts.Schedule, pools.V4)
		if err != nil {
			return nil, fmt.Errorf("initializing v4 pools: %w", err)
		}
		s.quoter, err = v4quoter.New(opts.Quoter, s.manager,
			v4quoter.WithSchedule(opts.Schedule),
			v4quoter.WithGasLimit(opts.GasLimit),
		)
		if err != nil {
			return nil, fmt.Errorf("deploying v4 quoter: %w", err)
		}
	}
	return s, nil
}

// Empty returns a snapshot without pools.
func Empty() *Snapshot {
	s, err := New(Pools{}, Options{})
	if err != nil {
		// an empty pool set always indexes
		panic(err)
	}
	return s
}

// FromEngine builds a snapshot from a streamed state whose protocol data has
// been typed by the stream decoder. Protocols reporting an error are skipped
// since their data is out of sync; their IDs are returned.
func FromEngine(st *engine.State, opts Options) (*Snapshot, []engine.ProtocolID, error) {
	if st == nil {
		return nil, nil, errors.New("state is nil")
	}

	var (
		pools   Pools
		skipped []engine.ProtocolID
	)
	for id, p := range st.Protocols {
		if p.Failed() {
			skipped = append(skipped, id)
			continue
		}
		switch data := p.Data.(type) {
		case []uniswapv2.Pool:
			pools.V2 = append(pools.V2, data...)
		case []uniswapv3.Pool:
			pools.V3 = append(pools.V3, data...)
		case []uniswapv4.Pool:
			pools.V4 = append(pools.V4, data...)
		default:
			skipped = append(skipped, id)
		}
	}

	slices.Sort(skipped)

	s, err := New(pools, opts)
	if err != nil {
		return nil, skipped, err
	}
	s.ChainID = st.ChainID
	if st.Block.Number != nil {
		s.BlockNumber = st.Block.Number.Uint64()
	}
	return s, skipped, nil
}

func (s *Snapshot) V2Pool(key uniswapv2.PoolKey) (uniswapv2.Pool, bool) {
	return s.v2.GetByKey(key)
}

func (s *Snapshot) V3Pool(key uniswapv3.PoolKey) (v3indexer.IndexedPool, bool) {
	return s.v3.GetByKey(key)
}

// V4Quoter returns nil when the snapshot holds no V4 pools.
func (s *Snapshot) V4Quoter() metaquoter.V4Quoter {
	if s.quoter == nil {
		return nil
	}
	return s.quoter
}

// V4Pool returns the current state of a V4 pool.
func (s *Snapshot) V4Pool(id uniswapv4.PoolID) (uniswapv4.Pool, bool) {
	if s.manager == nil {
		return uniswapv4.Pool{}, false
	}
	return s.manager.Pool(id)
}

func (s *Snapshot) Counts() Counts {
	c := Counts{V2: len(s.v2.All()), V3: len(s.v3.All())}
	if s.manager != nil {
		c.V4 = s.manager.Len()
	}
	return c
}
