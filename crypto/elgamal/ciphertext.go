package elgamal

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"
	"github.com/veil-protocol/veil/crypto/ecc"
	"github.com/veil-protocol/veil/crypto/ecc/format"
)

// sizes in bytes needed to serialize a Ciphertext
const (
	sizeCoord      = 32
	sizePoint      = 2 * sizeCoord
	SizeCiphertext = 2 * sizePoint
)

// Ciphertext represents an ElGamal encrypted amount with additive
// homomorphic properties. It encapsulates the two curve points of an
// encrypted-balance group token (EGCT): balances and amount deltas are
// combined by point addition, never decrypted on this side.
type Ciphertext struct {
	C1 ecc.Point `json:"c1"`
	C2 ecc.Point `json:"c2"`
}

// NewCiphertext creates a new Ciphertext on the same curve as the given
// Point, set to the encryption of zero with zero randomness (the identity
// pair). The Point must be one of the curves supported by the
// crypto/ecc/curves package.
func NewCiphertext(curve ecc.Point) *Ciphertext {
	return &Ciphertext{C1: curve.New(), C2: curve.New()}
}

// Encrypt encrypts a message using the public key provided as elliptic curve
// point. The randomness k can be provided or nil to generate a new one.
func (z *Ciphertext) Encrypt(message *big.Int, publicKey ecc.Point, k *big.Int) (*Ciphertext, error) {
	var err error
	if k == nil {
		k, err = RandK()
		if err != nil {
			return nil, fmt.Errorf("elgamal encryption failed: %w", err)
		}
	}
	c1, c2, err := EncryptWithK(publicKey, message, k)
	if err != nil {
		return nil, fmt.Errorf("elgamal encryption failed: %w", err)
	}
	z.C1 = c1
	z.C2 = c2
	return z, nil
}

// Add adds two Ciphertext and stores the result in z, which is also returned.
// Decrypting the result yields the sum of the two plaintexts.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	z.C1.SafeAdd(x.C1, y.C1)
	z.C2.SafeAdd(x.C2, y.C2)
	return z
}

// Sub subtracts y from x and stores the result in z, which is also returned.
// Decrypting the result yields the difference of the two plaintexts.
func (z *Ciphertext) Sub(x, y *Ciphertext) *Ciphertext {
	negC1 := y.C1.New()
	negC1.Neg(y.C1)
	negC2 := y.C2.New()
	negC2.Neg(y.C2)
	z.C1.SafeAdd(x.C1, negC1)
	z.C2.SafeAdd(x.C2, negC2)
	return z
}

// Neg sets z to the encryption of the negated plaintext of x and returns z.
func (z *Ciphertext) Neg(x *Ciphertext) *Ciphertext {
	z.C1.Neg(x.C1)
	z.C2.Neg(x.C2)
	return z
}

// Equal reports whether z and x represent exactly the same ciphertext pair.
// Note this is ciphertext equality, not plaintext equality: two encryptions
// of the same amount under different randomness are not Equal.
func (z *Ciphertext) Equal(x *Ciphertext) bool {
	if z == nil || x == nil {
		return z == x
	}
	return z.C1.Equal(x.C1) && z.C2.Equal(x.C2)
}

// Clone returns a deep copy of z on the same curve.
func (z *Ciphertext) Clone() *Ciphertext {
	c := NewCiphertext(z.C1)
	c.C1.Set(z.C1)
	c.C2.Set(z.C2)
	return c
}

// Serialize returns a slice of len 4*32 bytes, representing the C1.X, C1.Y,
// C2.X, C2.Y as little-endian, in reduced twisted edwards form.
func (z *Ciphertext) Serialize() []byte {
	var buf bytes.Buffer
	c1x, c1y := format.FromTEtoRTE(z.C1.Point())
	c2x, c2y := format.FromTEtoRTE(z.C2.Point())
	for _, bi := range []*big.Int{c1x, c1y, c2x, c2y} {
		buf.Write(arbo.BigIntToBytes(sizeCoord, bi))
	}
	return buf.Bytes()
}

// Deserialize reconstructs a Ciphertext from a slice of bytes. The input
// must be of len 4*32 bytes (otherwise it returns an error), representing
// the C1.X, C1.Y, C2.X, C2.Y as little-endian, in reduced twisted edwards
// form. The receiver's points must be allocated on the target curve.
func (z *Ciphertext) Deserialize(data []byte) error {
	if len(data) != SizeCiphertext {
		return fmt.Errorf("invalid input length: got %d bytes, expected %d bytes", len(data), SizeCiphertext)
	}
	readBigInt := func(offset int) *big.Int {
		return arbo.BytesToBigInt(data[offset : offset+sizeCoord])
	}
	z.C1 = z.C1.SetPoint(format.FromRTEtoTE(
		readBigInt(0*sizeCoord),
		readBigInt(1*sizeCoord),
	))
	z.C2 = z.C2.SetPoint(format.FromRTEtoTE(
		readBigInt(2*sizeCoord),
		readBigInt(3*sizeCoord),
	))
	return nil
}

// String returns a string representation of the Ciphertext.
func (z *Ciphertext) String() string {
	if z == nil || z.C1 == nil || z.C2 == nil {
		return "{C1: nil, C2: nil}"
	}
	return fmt.Sprintf("{C1: %s, C2: %s}", z.C1.String(), z.C2.String())
}
