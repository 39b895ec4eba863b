package elgamal

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/veil-protocol/veil/crypto/ecc/curves"
)

func TestNewCiphertext(t *testing.T) {
	c := qt.New(t)

	cipher := NewCiphertext(curves.New(curves.CurveTypeBabyJubJub))
	c.Assert(cipher, qt.Not(qt.IsNil))
	c.Assert(cipher.C1, qt.Not(qt.IsNil))
	c.Assert(cipher.C2, qt.Not(qt.IsNil))
}

func TestCiphertextEncrypt(t *testing.T) {
	c := qt.New(t)

	curve := curves.New(curves.CurveTypeBabyJubJub)
	publicKey, _, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	msg := big.NewInt(42)

	// with nil k (random k generation)
	cipher := NewCiphertext(publicKey)
	encrypted, err := cipher.Encrypt(msg, publicKey, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(encrypted, qt.Not(qt.IsNil))

	// with specific k
	k := big.NewInt(789)
	encrypted2, err := NewCiphertext(publicKey).Encrypt(msg, publicKey, k)
	c.Assert(err, qt.IsNil)
	c.Assert(CheckK(encrypted2.C1, k), qt.IsTrue)
}

func TestCiphertextEqual(t *testing.T) {
	c := qt.New(t)

	curve := curves.New(curves.CurveTypeBabyJubJub)
	publicKey, _, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	k := big.NewInt(1234)
	a, err := NewCiphertext(curve).Encrypt(big.NewInt(7), publicKey, k)
	c.Assert(err, qt.IsNil)
	b, err := NewCiphertext(curve).Encrypt(big.NewInt(7), publicKey, k)
	c.Assert(err, qt.IsNil)
	c.Assert(a.Equal(b), qt.IsTrue)

	// same plaintext, different randomness: not equal as ciphertexts
	d, err := NewCiphertext(curve).Encrypt(big.NewInt(7), publicKey, big.NewInt(4321))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Equal(d), qt.IsFalse)
}

func TestCiphertextSerializeDeserialize(t *testing.T) {
	c := qt.New(t)

	curve := curves.New(curves.CurveTypeBabyJubJub)
	publicKey, _, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	original, err := NewCiphertext(curve).Encrypt(big.NewInt(99), publicKey, nil)
	c.Assert(err, qt.IsNil)

	data := original.Serialize()
	c.Assert(data, qt.HasLen, SizeCiphertext)

	decoded := NewCiphertext(curve)
	c.Assert(decoded.Deserialize(data), qt.IsNil)
	c.Assert(decoded.Equal(original), qt.IsTrue)

	// invalid length must be rejected
	c.Assert(decoded.Deserialize(data[:SizeCiphertext-1]), qt.IsNotNil)
}

func TestCiphertextMarshalJSON(t *testing.T) {
	c := qt.New(t)

	curve := curves.New(curves.CurveTypeBabyJubJub)
	publicKey, _, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	original, err := NewCiphertext(curve).Encrypt(big.NewInt(5), publicKey, nil)
	c.Assert(err, qt.IsNil)

	data, err := json.Marshal(original)
	c.Assert(err, qt.IsNil)

	decoded := NewCiphertext(curve)
	c.Assert(json.Unmarshal(data, decoded), qt.IsNil)
	c.Assert(decoded.Equal(original), qt.IsTrue)
}
