package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a byte slice that marshals as a 0x-prefixed hexadecimal JSON
// string. It is used for hashes, addresses and opaque payloads in API
// responses and stored artifacts.
type HexBytes []byte

// String returns the 0x-prefixed hexadecimal representation of b.
func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// MarshalJSON implements json.Marshaler.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. The 0x prefix is optional.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid hex string %q", s)
	}
	s = strings.TrimPrefix(s[1:len(s)-1], "0x")
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// HexStringToHexBytes decodes a hexadecimal string (with optional 0x prefix)
// into a HexBytes. It returns an error if the string is not valid hex.
func HexStringToHexBytes(s string) (HexBytes, error) {
	s = strings.TrimPrefix(s, "0x")
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return decoded, nil
}
