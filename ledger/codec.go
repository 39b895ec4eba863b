package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

func encodeBalance(sb *storedBalance) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode balance: %w", err)
	}
	return em.Marshal(sb)
}

func decodeBalance(data []byte, sb *storedBalance) error {
	return cbor.Unmarshal(data, sb)
}
