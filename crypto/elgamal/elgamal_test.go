package elgamal

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/veil-protocol/veil/crypto/ecc/curves"
)

func TestGenerateKey(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)

	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, publicKey, qt.Not(qt.IsNil))
	qt.Assert(t, privateKey, qt.Not(qt.IsNil))

	// Check if publicKey = privateKey * G
	testPoint := curve.New()
	testPoint.SetGenerator()
	testPoint.ScalarMult(testPoint, privateKey)
	qt.Assert(t, testPoint.Equal(publicKey), qt.IsTrue)
}

func TestEncryptDecrypt(t *testing.T) {
	curve := curves.New(curves.CurveTypeBabyJubJub)

	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	maxMessage := uint64(1000)

	for _, m := range []uint64{0, 1, 42, 999} {
		msg := big.NewInt(int64(m))
		c1, c2, k, err := Encrypt(publicKey, msg)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, k, qt.Not(qt.IsNil))

		M, recoveredMsg, err := Decrypt(publicKey, privateKey, c1, c2, maxMessage)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, recoveredMsg.String(), qt.DeepEquals, msg.String())

		// Check M = m * G
		testPoint := curve.New()
		testPoint.SetGenerator()
		testPoint.ScalarMult(testPoint, msg)
		qt.Assert(t, testPoint.Equal(M), qt.IsTrue)
	}
}

func TestHomomorphicAddition(t *testing.T) {
	c := qt.New(t)
	curve := curves.New(curves.CurveTypeBabyJubJub)

	publicKey, privateKey, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	for _, tc := range []struct{ a, b int64 }{
		{0, 0},
		{1, 0},
		{42, 58},
		{500, 499},
	} {
		ca := NewCiphertext(curve)
		_, err := ca.Encrypt(big.NewInt(tc.a), publicKey, nil)
		c.Assert(err, qt.IsNil)
		cb := NewCiphertext(curve)
		_, err = cb.Encrypt(big.NewInt(tc.b), publicKey, nil)
		c.Assert(err, qt.IsNil)

		sum := NewCiphertext(curve).Add(ca, cb)
		_, msg, err := Decrypt(publicKey, privateKey, sum.C1, sum.C2, 1100)
		c.Assert(err, qt.IsNil)
		c.Assert(msg.Int64(), qt.Equals, tc.a+tc.b)
	}
}

func TestHomomorphicSubtraction(t *testing.T) {
	c := qt.New(t)
	curve := curves.New(curves.CurveTypeBabyJubJub)

	publicKey, privateKey, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	ca := NewCiphertext(curve)
	_, err = ca.Encrypt(big.NewInt(100), publicKey, nil)
	c.Assert(err, qt.IsNil)
	cb := NewCiphertext(curve)
	_, err = cb.Encrypt(big.NewInt(60), publicKey, nil)
	c.Assert(err, qt.IsNil)

	diff := NewCiphertext(curve).Sub(ca, cb)
	_, msg, err := Decrypt(publicKey, privateKey, diff.C1, diff.C2, 1000)
	c.Assert(err, qt.IsNil)
	c.Assert(msg.Int64(), qt.Equals, int64(40))
}
