package web3

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/veil-protocol/veil/pool"
)

func TestVerifyMoved(t *testing.T) {
	c := qt.New(t)

	c.Assert(verifyMoved(big.NewInt(100), big.NewInt(100)), qt.IsNil)

	// fee-on-transfer tokens credit custody with less than requested
	err := verifyMoved(big.NewInt(97), big.NewInt(100))
	c.Assert(err, qt.ErrorIs, pool.ErrAmountMismatch)
	c.Assert(err, qt.ErrorMatches, ".*requested 100, moved 97")

	// rebasing upward is just as much of a mismatch
	c.Assert(verifyMoved(big.NewInt(101), big.NewInt(100)), qt.ErrorIs, pool.ErrAmountMismatch)
}
