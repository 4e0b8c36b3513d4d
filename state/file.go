package state

import (
	"encoding/json"
	"fmt"
	"os"
)

// File is the on-disk form of a snapshot.
type File struct {
	ChainID     uint64 `json:"chainId"`
	BlockNumber uint64 `json:"blockNumber"`
	Pools       Pools  `json:"pools"`
}

// LoadFile reads a snapshot from a JSON file.
func LoadFile(path string, opts Options) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	s, err := New(f.Pools, opts)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	s.ChainID = f.ChainID
	s.BlockNumber = f.BlockNumber
	return s, nil
}
