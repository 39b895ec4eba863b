package ecc

import (
	"math/big"

	"github.com/veil-protocol/veil/types"
)

// PointEC is the JSON representation of an elliptic curve point, with both
// affine coordinates as decimal strings.
type PointEC struct {
	X types.BigInt `json:"x"`
	Y types.BigInt `json:"y"`
}

// Point defines the operations required from an elliptic curve group element
// by the encrypted ledger. It represents the affine coordinates of a point
// and provides arithmetic, serialization and comparison methods.
type Point interface {
	// New returns a new point on the same curve, set to the identity element.
	New() Point

	// Order returns the order of the elliptic curve subgroup.
	Order() *big.Int

	// Add adds two group elements and stores the result in the receiver.
	Add(a, b Point)

	// SafeAdd adds two group elements and stores the result in the receiver,
	// ensuring exclusive access to the receiver during the operation.
	SafeAdd(a, b Point)

	// ScalarMult sets the receiver to a multiplied by scalar.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult sets the receiver to the generator multiplied by scalar.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the group element into a byte slice.
	Marshal() []byte

	// Unmarshal deserializes a byte slice into the group element. The input
	// must represent a valid serialized point, or an error is returned.
	Unmarshal(buf []byte) error

	// Equal reports whether the receiver and a represent the same point.
	Equal(a Point) bool

	// Neg sets the receiver to the inverse of a.
	Neg(a Point)

	// SetZero sets the receiver to the identity element.
	SetZero()

	// Set sets the receiver to the value of a.
	Set(a Point)

	// SetGenerator sets the receiver to the curve generator point.
	SetGenerator()

	// String returns a human-readable representation of the point.
	String() string

	// Point returns the X and Y affine coordinates of the group element.
	Point() (*big.Int, *big.Int)

	// SetPoint sets the X and Y affine coordinates of the group element.
	SetPoint(x, y *big.Int) Point
}
