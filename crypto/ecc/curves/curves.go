package curves

import (
	"fmt"

	"github.com/veil-protocol/veil/crypto/ecc"
	bjj_gnark "github.com/veil-protocol/veil/crypto/ecc/bjj_gnark"
	bjj_iden3 "github.com/veil-protocol/veil/crypto/ecc/bjj_iden3"
)

const (
	// CurveTypeBabyJubJub is the default BabyJubJub backend.
	CurveTypeBabyJubJub      = "bjj_gnark"
	CurveTypeBabyJubJubGnark = "bjj_gnark"
	CurveTypeBabyJubJubIden3 = "bjj_iden3"
)

// New creates a new instance of a curve Point implementation based on the
// provided type string. The supported types are defined as constants in this
// package. If the type is not supported, it panics.
func New(curveType string) ecc.Point {
	switch curveType {
	case CurveTypeBabyJubJubGnark:
		return bjj_gnark.New()
	case CurveTypeBabyJubJubIden3:
		return bjj_iden3.New()
	default:
		panic(fmt.Sprintf("unsupported curve type: %s", curveType))
	}
}
