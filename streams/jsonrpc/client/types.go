package client

import (
	"encoding/json"

	"github.com/owlprotocol/veraswap-sub000/engine"
)

// wireState is engine.State as it arrives, with protocol data left raw until
// its schema picks a decoder.
type wireState struct {
	ChainID   uint64                                  `json:"chainId"`
	Timestamp uint64                                  `json:"timestamp"`
	Block     engine.BlockSummary                     `json:"block"`
	Protocols map[engine.ProtocolID]wireProtocolState `json:"protocols"`
}

type wireProtocolState struct {
	Meta              engine.ProtocolMeta   `json:"meta"`
	SyncedBlockNumber *uint64               `json:"syncedBlockNumber,omitempty"`
	Schema            engine.ProtocolSchema `json:"schema"`
	Error             string                `json:"error,omitempty"`
	Data              json.RawMessage       `json:"data,omitempty"`
}
