// Package revert models EVM reverts that carry ABI encoded custom errors.
// A revert aborts the enclosing call frame and hands its payload to the caller,
// which decides whether the payload is a failure or a result.
package revert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrUnknownSelector = errors.New("unknown revert selector")
	ErrShortPayload    = errors.New("revert payload shorter than a selector")
)

// Error is a revert with its raw payload. When the payload was produced or
// recognized by a Registry, Unwrap yields the matching sentinel error.
type Error struct {
	Data []byte

	desc     string
	sentinel error
}

func (e *Error) Error() string {
	if e.desc != "" {
		return "execution reverted: " + e.desc
	}
	return "execution reverted: " + hexutil.Encode(e.Data)
}

func (e *Error) Unwrap() error {
	return e.sentinel
}

// Selector returns the first four bytes of the payload.
func (e *Error) Selector() ([4]byte, bool) {
	var sel [4]byte
	if len(e.Data) < 4 {
		return sel, false
	}
	copy(sel[:], e.Data[:4])
	return sel, true
}

// Raw wraps an arbitrary payload, such as one received from another frame.
func Raw(data []byte) *Error {
	return &Error{Data: data}
}

// Decoded is a payload matched against a Registry.
type Decoded struct {
	Name     string
	Args     []any
	Sentinel error
}

type entry struct {
	def      abi.Error
	sentinel error
}

// Registry maps custom error definitions to Go sentinel errors.
type Registry struct {
	bySelector map[[4]byte]entry
	byError    map[error]abi.Error
}

// NewRegistry parses the error definitions of each ABI and binds them to
// sentinels by name. Every sentinel must name an error present in the ABIs.
func NewRegistry(sentinels map[string]error, abiJSON ...string) (*Registry, error) {
	r := &Registry{
		bySelector: make(map[[4]byte]entry),
		byError:    make(map[error]abi.Error, len(sentinels)),
	}
	defs := make(map[string]abi.Error)
	for _, js := range abiJSON {
		parsed, err := abi.JSON(strings.NewReader(js))
		if err != nil {
			return nil, fmt.Errorf("parse error abi: %w", err)
		}
		for name, def := range parsed.Errors {
			defs[name] = def
		}
	}

	for name, def := range defs {
		id := def.ID
		var sel [4]byte
		copy(sel[:], id[:4])
		r.bySelector[sel] = entry{def: def, sentinel: sentinels[name]}
	}
	for name, sentinel := range sentinels {
		def, ok := defs[name]
		if !ok {
			return nil, fmt.Errorf("sentinel %q has no error definition", name)
		}
		r.byError[sentinel] = def
	}
	return r, nil
}

// MustRegistry is NewRegistry for package level definitions.
func MustRegistry(sentinels map[string]error, abiJSON ...string) *Registry {
	r, err := NewRegistry(sentinels, abiJSON...)
	if err != nil {
		panic(err)
	}
	return r
}

// Revert encodes sentinel with its arguments as a revert. It panics if the
// sentinel is not registered or the arguments do not match the definition.
func (r *Registry) Revert(sentinel error, args ...any) *Error {
	def, ok := r.byError[sentinel]
	if !ok {
		panic(fmt.Sprintf("revert: unregistered error %v", sentinel))
	}
	packed, err := def.Inputs.Pack(args...)
	if err != nil {
		panic(fmt.Sprintf("revert: pack %s: %v", def.Name, err))
	}
	id := def.ID
	data := make([]byte, 0, 4+len(packed))
	data = append(data, id[:4]...)
	data = append(data, packed...)
	return &Error{Data: data, desc: describe(def.Name, args), sentinel: sentinel}
}

// Decode matches a payload to a registered error and unpacks its arguments.
func (r *Registry) Decode(data []byte) (Decoded, error) {
	if len(data) < 4 {
		return Decoded{}, fmt.Errorf("%w: %s", ErrShortPayload, hexutil.Encode(data))
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	e, ok := r.bySelector[sel]
	if !ok {
		return Decoded{}, fmt.Errorf("%w: %s", ErrUnknownSelector, hexutil.Encode(data))
	}
	args, err := e.def.Inputs.Unpack(data[4:])
	if err != nil {
		return Decoded{}, fmt.Errorf("unpack %s: %w", e.def.Name, err)
	}
	return Decoded{Name: e.def.Name, Args: args, Sentinel: e.sentinel}, nil
}

// Recognize returns a copy of e bound to its registered sentinel, if any.
func (r *Registry) Recognize(e *Error) *Error {
	d, err := r.Decode(e.Data)
	if err != nil {
		return e
	}
	return &Error{Data: e.Data, desc: describe(d.Name, d.Args), sentinel: d.Sentinel}
}

func describe(name string, args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case [32]byte:
			parts[i] = hexutil.Encode(v[:])
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
