package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var keyNextAssetID = []byte("nextAssetID")

// ErrAssetExists is returned when registering a token that already has an
// asset id.
var ErrAssetExists = fmt.Errorf("asset already registered")

// RegisterAsset assigns the next asset id to the given external token and
// stores the record. The id assignment and the record write share one
// transaction.
func (s *Storage) RegisterAsset(token common.Address, decimals uint8) (*Asset, error) {
	if _, err := s.AssetByToken(token); err == nil {
		return nil, ErrAssetExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	wTx := s.db.WriteTx()
	defer wTx.Discard()

	mTx := prefixeddb.NewPrefixedWriteTx(wTx, metaPrefix)
	next := uint64(1) // asset id zero is reserved
	if data, err := mTx.Get(keyNextAssetID); err == nil {
		next = binary.BigEndian.Uint64(data)
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return nil, err
	}
	asset := &Asset{ID: next, Token: token, Decimals: decimals}
	data, err := encodeArtifact(asset)
	if err != nil {
		return nil, err
	}
	aTx := prefixeddb.NewPrefixedWriteTx(wTx, assetPrefix)
	if err := aTx.Set(assetIDKey(next), data); err != nil {
		return nil, err
	}
	tTx := prefixeddb.NewPrefixedWriteTx(wTx, assetTokenPrefix)
	if err := tTx.Set(token.Bytes(), assetIDKey(next)); err != nil {
		return nil, err
	}
	if err := mTx.Set(keyNextAssetID, assetIDKey(next+1)); err != nil {
		return nil, err
	}
	return asset, wTx.Commit()
}

// AssetByID loads a registered asset by its id.
func (s *Storage) AssetByID(id uint64) (*Asset, error) {
	asset := &Asset{}
	if err := s.getArtifact(assetPrefix, assetIDKey(id), asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// AssetByToken loads a registered asset by its external token address.
func (s *Storage) AssetByToken(token common.Address) (*Asset, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, assetTokenPrefix)
	idKey, err := rTx.Get(token.Bytes())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.AssetByID(binary.BigEndian.Uint64(idKey))
}

// ListAssets returns all registered assets ordered by id.
func (s *Storage) ListAssets() ([]*Asset, error) {
	keys, err := s.listArtifacts(assetPrefix)
	if err != nil {
		return nil, err
	}
	assets := make([]*Asset, 0, len(keys))
	for _, k := range keys {
		asset, err := s.AssetByID(binary.BigEndian.Uint64(k))
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func assetIDKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}
