package currency

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// Currency identifies a tradable asset by its contract address.
// The zero address is the chain's native asset.
type Currency common.Address

// Native is the chain's native asset.
var Native = Currency{}

// FromAddress converts a contract address to a Currency.
func FromAddress(addr common.Address) Currency {
	return Currency(addr)
}

// HexToCurrency parses a hex address. Invalid input yields a best effort
// conversion, mirroring common.HexToAddress.
func HexToCurrency(s string) Currency {
	return Currency(common.HexToAddress(s))
}

func (c Currency) Address() common.Address {
	return common.Address(c)
}

func (c Currency) IsNative() bool {
	return c == Native
}

// Less reports whether c sorts before o in canonical pool ordering.
func (c Currency) Less(o Currency) bool {
	return bytes.Compare(c[:], o[:]) < 0
}

// Compare returns -1, 0 or +1 following canonical pool ordering.
func (c Currency) Compare(o Currency) int {
	return bytes.Compare(c[:], o[:])
}

func (c Currency) Hex() string {
	return common.Address(c).Hex()
}

func (c Currency) String() string {
	return c.Hex()
}

func (c Currency) MarshalText() ([]byte, error) {
	return common.Address(c).MarshalText()
}

func (c *Currency) UnmarshalText(input []byte) error {
	return (*common.Address)(c).UnmarshalText(input)
}

// Sort returns the pair in canonical order (currency0, currency1).
func Sort(a, b Currency) (Currency, Currency) {
	if b.Less(a) {
		return b, a
	}
	return a, b
}
