// Package engine defines the pool state envelope published by a state
// engine once per block.
package engine

import (
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

type ProtocolID string

// ProtocolSchema names the decode contract of a protocol's data, e.g.
// "veraswap/uniswap-v2/Pool@v1".
type ProtocolSchema string

type ProtocolMeta struct {
	Name string   `json:"name"`
	Tags []string `json:"tags,omitempty"`
}

// ProtocolState is the data of one protocol at one block.
type ProtocolState struct {
	Meta ProtocolMeta `json:"meta"`

	// SyncedBlockNumber is the block the data was last synced at, when the
	// protocol lags the envelope.
	SyncedBlockNumber *uint64 `json:"syncedBlockNumber,omitempty"`

	Schema ProtocolSchema `json:"schema"`

	// Data is shaped by Schema. Decoders type it; raw envelopes carry JSON.
	Data any `json:"data,omitempty"`

	// Error is set when the protocol is out of sync or failed for this block.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the protocol's data must not be used.
func (p ProtocolState) Failed() bool {
	return p.Error != ""
}

// BlockSummary identifies the block a state was built at.
type BlockSummary struct {
	Number    *big.Int    `json:"number"`
	Hash      common.Hash `json:"hash"`
	Timestamp uint64      `json:"timestamp"`
	// ReceivedAt is the unix nanosecond time the engine started on the block.
	ReceivedAt int64 `json:"receivedAt"`
}

// State is the envelope broadcast to subscribers.
type State struct {
	ChainID   uint64                       `json:"chainId"`
	Timestamp uint64                       `json:"timestamp"`
	Block     BlockSummary                 `json:"block"`
	Protocols map[ProtocolID]ProtocolState `json:"protocols"`
}

// FailedProtocols returns the sorted IDs of protocols that reported an error.
func (s *State) FailedProtocols() []ProtocolID {
	var failed []ProtocolID
	for id, p := range s.Protocols {
		if p.Failed() {
			failed = append(failed, id)
		}
	}
	slices.Sort(failed)
	return failed
}
