package metaquoter

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Version tags the pool architecture a leg is quoted against.
type Version uint8

const (
	V2 Version = 2
	V3 Version = 3
	V4 Version = 4
)

func (v Version) String() string {
	switch v {
	case V2, V3, V4:
		return fmt.Sprintf("v%d", uint8(v))
	}
	return fmt.Sprintf("version(%d)", uint8(v))
}

func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVersion accepts "v2", "v3", "v4" case-insensitively.
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v2":
		return V2, nil
	case "v3":
		return V3, nil
	case "v4":
		return V4, nil
	}
	return 0, fmt.Errorf("unknown pool version %q", s)
}

// Versions is the set of pool versions a query may route through.
type Versions uint8

// AllVersions enables every pool version.
const AllVersions = Versions(1<<V2 | 1<<V3 | 1<<V4)

// NewVersions builds a set from its members.
func NewVersions(vs ...Version) Versions {
	var set Versions
	for _, v := range vs {
		set |= 1 << v
	}
	return set
}

// ParseVersions parses a list such as ["v2", "v4"].
func ParseVersions(names []string) (Versions, error) {
	var set Versions
	for _, name := range names {
		v, err := ParseVersion(name)
		if err != nil {
			return 0, err
		}
		set |= 1 << v
	}
	return set, nil
}

func (s Versions) Has(v Version) bool {
	return v <= V4 && s&(1<<v) != 0
}

// String lists the members, e.g. "v2,v4".
func (s Versions) String() string {
	names := make([]string, 0, 3)
	for _, v := range []Version{V2, V3, V4} {
		if s.Has(v) {
			names = append(names, v.String())
		}
	}
	return strings.Join(names, ",")
}

// PoolKeyOptions is a pool configuration independent of the pair it is
// applied to.
type PoolKeyOptions struct {
	Fee         uint32         `json:"fee" mapstructure:"fee"`
	TickSpacing int32          `json:"tickSpacing" mapstructure:"tick_spacing"`
	Hooks       common.Address `json:"hooks" mapstructure:"hooks"`
}

// PathKey is one leg of a route, identified by the currency it reaches.
type PathKey struct {
	IntermediateCurrency currency.Currency `json:"intermediateCurrency"`
	Fee                  uint32            `json:"fee"`
	TickSpacing          int32             `json:"tickSpacing"`
	Hooks                common.Address    `json:"hooks"`
	HookData             []byte            `json:"hookData"`
	Version              Version           `json:"version"`
}

// MetaQuoteExactParams is a query. For exact input queries ExactCurrency is
// paid; for exact output queries it is received.
type MetaQuoteExactParams struct {
	ExactCurrency    currency.Currency   `json:"exactCurrency"`
	VariableCurrency currency.Currency   `json:"variableCurrency"`
	HopCurrencies    []currency.Currency `json:"hopCurrencies"`
	ExactAmount      *big.Int            `json:"exactAmount"`
	PoolKeyOptions   []PoolKeyOptions    `json:"poolKeyOptions"`
}

// MetaQuoteExactResult is a route through one hop currency.
//
// For exact input the path starts at ExactCurrency and each key names the
// currency reached after its leg, ending with VariableCurrency. For exact
// output the path ends at ExactCurrency: the first key names VariableCurrency,
// the input, and each key's pool joins its currency to the next one.
type MetaQuoteExactResult struct {
	Path           []PathKey `json:"path"`
	VariableAmount *big.Int  `json:"variableAmount"`
	GasEstimate    uint64    `json:"gasEstimate"`
}

// MetaQuoteExactSingleResult is a direct route through one pool.
type MetaQuoteExactSingleResult struct {
	PoolKey        uniswapv4.PoolKey `json:"poolKey"`
	Version        Version           `json:"version"`
	ZeroForOne     bool              `json:"zeroForOne"`
	HookData       []byte            `json:"hookData"`
	VariableAmount *big.Int          `json:"variableAmount"`
	GasEstimate    uint64            `json:"gasEstimate"`
}

func (r MetaQuoteExactResult) amount() *big.Int       { return r.VariableAmount }
func (r MetaQuoteExactResult) gas() uint64            { return r.GasEstimate }
func (r MetaQuoteExactSingleResult) amount() *big.Int { return r.VariableAmount }
func (r MetaQuoteExactSingleResult) gas() uint64      { return r.GasEstimate }

// BestSwap names the route shape of the overall best result.
type BestSwap uint8

const (
	BestSwapNone BestSwap = iota
	BestSwapSingle
	BestSwapMultihop
)

func (b BestSwap) String() string {
	switch b {
	case BestSwapSingle:
		return "single"
	case BestSwapMultihop:
		return "multihop"
	}
	return "none"
}

func (b BestSwap) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *BestSwap) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*b = BestSwapNone
	case "single":
		*b = BestSwapSingle
	case "multihop":
		*b = BestSwapMultihop
	default:
		return fmt.Errorf("unknown best swap type %q", text)
	}
	return nil
}

// BestResult is the reduction of a query to its best direct and best one-hop
// routes. A nil field means no route of that shape succeeded.
type BestResult struct {
	BestSingleSwap   *MetaQuoteExactSingleResult `json:"bestSingleSwap"`
	BestMultihopSwap *MetaQuoteExactResult       `json:"bestMultihopSwap"`
	BestSwapType     BestSwap                    `json:"bestSwapType"`
}
