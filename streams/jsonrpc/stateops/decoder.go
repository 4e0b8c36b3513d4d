// Package stateops types the protocol data of streamed states.
package stateops

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/owlprotocol/veraswap-sub000/engine"
	uniswapv2 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2"
	uniswapv3 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv3"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4"
)

var ErrUnknownSchema = errors.New("unknown schema")

// Schemas lists every schema DecodeStateJSON understands.
var Schemas = []engine.ProtocolSchema{uniswapv2.Schema, uniswapv3.Schema, uniswapv4.Schema}

// DecodeStateJSON decodes the data of one protocol into its typed pool list.
// Missing data decodes to an empty list.
func DecodeStateJSON(schema engine.ProtocolSchema, data json.RawMessage) (any, error) {
	switch schema {
	case uniswapv2.Schema:
		return decode[uniswapv2.Pool](schema, data)
	case uniswapv3.Schema:
		return decode[uniswapv3.Pool](schema, data)
	case uniswapv4.Schema:
		return decode[uniswapv4.Pool](schema, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}
}

func decode[T any](schema engine.ProtocolSchema, data json.RawMessage) ([]T, error) {
	typedData := []T{}
	if len(bytes.TrimSpace(data)) == 0 {
		return typedData, nil
	}
	if err := json.Unmarshal(data, &typedData); err != nil {
		return nil, fmt.Errorf("%s: %w", schema, err)
	}
	if typedData == nil {
		typedData = []T{}
	}
	return typedData, nil
}
