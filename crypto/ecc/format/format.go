// Package format converts BabyJubJub affine coordinates between the standard
// Twisted Edwards form (a=168700, d=168696) and the Reduced Twisted Edwards
// form (a=-1) used by gnark. The two forms are related by scaling the x
// coordinate with a constant factor; the y coordinate is unchanged.
package format

import "math/big"

// baseField is the finite field over which BabyJubJub coordinates live, the
// scalar field of BN254.
var baseField, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// scalingFactor maps the x coordinate between the two curve forms.
var scalingFactor, _ = new(big.Int).SetString("6360561867910373094066688120553762416144456282423235903351243436111059670888", 10)

// scalingFactorInv is the modular inverse of scalingFactor over baseField.
var scalingFactorInv = new(big.Int).ModInverse(scalingFactor, baseField)

// FromTEtoRTE converts a point in standard Twisted Edwards form to Reduced
// Twisted Edwards form.
func FromTEtoRTE(x, y *big.Int) (*big.Int, *big.Int) {
	xRTE := new(big.Int).Mul(x, scalingFactorInv)
	xRTE.Mod(xRTE, baseField)
	return xRTE, new(big.Int).Set(y)
}

// FromRTEtoTE converts a point in Reduced Twisted Edwards form to standard
// Twisted Edwards form.
func FromRTEtoTE(x, y *big.Int) (*big.Int, *big.Int) {
	xTE := new(big.Int).Mul(x, scalingFactor)
	xTE.Mod(xTE, baseField)
	return xTE, new(big.Int).Set(y)
}
