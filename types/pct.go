package types

import (
	"fmt"
	"math/big"
)

// PCT is a compliance ciphertext: a Poseidon-encrypted copy of an amount or
// balance under the auditor public key. The core never decrypts it; it only
// validates shape, binds it into proofs and stores it for off-chain
// disclosure.
type PCT struct {
	Ciphertext [4]*BigInt `json:"ciphertext"`
	AuthKeyX   *BigInt    `json:"authKeyX"`
	AuthKeyY   *BigInt    `json:"authKeyY"`
	Nonce      *BigInt    `json:"nonce"`
}

// Elements returns the PCT as an ordered slice of field elements: the four
// ciphertext words, the authentication key coordinates and the nonce.
func (p *PCT) Elements() []*big.Int {
	els := make([]*big.Int, 0, PCTElements)
	for _, c := range p.Ciphertext {
		els = append(els, c.MathBigInt())
	}
	els = append(els, p.AuthKeyX.MathBigInt(), p.AuthKeyY.MathBigInt(), p.Nonce.MathBigInt())
	return els
}

// PCTFromElements rebuilds a PCT from its ordered field element form.
func PCTFromElements(els []*big.Int) (*PCT, error) {
	if len(els) != PCTElements {
		return nil, fmt.Errorf("invalid PCT length: got %d elements, expected %d", len(els), PCTElements)
	}
	p := &PCT{}
	for i := range p.Ciphertext {
		p.Ciphertext[i] = BigIntFrom(els[i])
	}
	p.AuthKeyX = BigIntFrom(els[4])
	p.AuthKeyY = BigIntFrom(els[5])
	p.Nonce = BigIntFrom(els[6])
	return p, nil
}

// Valid reports whether all PCT elements are present.
func (p *PCT) Valid() bool {
	if p == nil {
		return false
	}
	for _, c := range p.Ciphertext {
		if c == nil {
			return false
		}
	}
	return p.AuthKeyX != nil && p.AuthKeyY != nil && p.Nonce != nil
}
