package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/storage"
	"go.vocdoni.io/dvote/log"
)

// SetAuditor designates the compliance auditor. Only the ledger authority
// may call it, and the auditor must have a registered public key: the
// record stored is the registered one, so proofs cannot diverge from it.
func (l *Ledger) SetAuditor(caller, auditor common.Address) error {
	if caller != l.authority {
		return ErrOnlyAuthority
	}
	rec, err := l.stg.Identity(auditor)
	if err != nil {
		return ErrUserNotRegistered
	}
	if err := l.stg.SetAuditor(auditor, rec.PublicKeyX.MathBigInt(), rec.PublicKeyY.MathBigInt()); err != nil {
		return err
	}
	log.Infow("auditor configured", "address", auditor.Hex())
	return nil
}

// RegisterAsset registers an external token with the converter. Authority
// only.
func (l *Ledger) RegisterAsset(caller, token common.Address, decimals uint8) (*storage.Asset, error) {
	if caller != l.authority {
		return nil, ErrOnlyAuthority
	}
	asset, err := l.stg.RegisterAsset(token, decimals)
	if err != nil {
		return nil, err
	}
	log.Infow("asset registered",
		"id", asset.ID, "token", token.Hex(), "decimals", decimals)
	return asset, nil
}
