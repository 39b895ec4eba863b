package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt wraps math/big.Int to provide JSON and CBOR marshaling as decimal
// strings, which keeps field elements readable in API payloads and stable in
// stored artifacts.
type BigInt big.Int

// NewBigInt returns a BigInt holding the given int64 value.
func NewBigInt(i int64) *BigInt {
	return (*BigInt)(big.NewInt(i))
}

// BigIntFrom wraps a *big.Int as a *BigInt. Returns nil if i is nil.
func BigIntFrom(i *big.Int) *BigInt {
	if i == nil {
		return nil
	}
	return (*BigInt)(new(big.Int).Set(i))
}

// MathBigInt converts b to a math/big.Int.
func (b *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(b)
}

// String returns the decimal representation of b.
func (b *BigInt) String() string {
	return b.MathBigInt().String()
}

// MarshalJSON implements json.Marshaler, encoding b as a decimal string.
func (b *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler, accepting both a decimal
// string and a bare JSON number.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if _, ok := b.MathBigInt().SetString(s, 10); !ok {
		return fmt.Errorf("invalid big integer %q", s)
	}
	return nil
}

// MarshalCBOR implements cbor.Marshaler, encoding b as its big-endian bytes.
func (b *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(b.MathBigInt().Bytes())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (b *BigInt) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return err
	}
	b.MathBigInt().SetBytes(buf)
	return nil
}

// Equal reports whether b and x hold the same value.
func (b *BigInt) Equal(x *BigInt) bool {
	if b == nil || x == nil {
		return b == x
	}
	return b.MathBigInt().Cmp(x.MathBigInt()) == 0
}
