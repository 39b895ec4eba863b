package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/veil-protocol/veil/storage"
)

// encryptedBalance returns the encrypted balance of (address, asset)
// GET /ledger/balance/{address}/{assetId}
func (a *API) encryptedBalance(w http.ResponseWriter, r *http.Request) {
	addrParam := chi.URLParam(r, AddressURLParam)
	if !common.IsHexAddress(addrParam) {
		ErrMalformedAddress.With(addrParam).Write(w)
		return
	}
	assetID, err := strconv.ParseUint(chi.URLParam(r, AssetURLParam), 10, 64)
	if err != nil {
		ErrMalformedParam.Withf("could not parse asset id: %v", err).Write(w)
		return
	}
	balance, err := a.ledger.Balance(common.HexToAddress(addrParam), assetID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	resp := &BalanceResponse{
		TxIndex:    balance.TxIndex,
		History:    balance.History,
		BalancePCT: balance.BalancePCT,
	}
	if !balance.IsEmpty() {
		resp.EGCT = balance.Balance.Serialize()
	}
	httpWriteJSON(w, resp)
}

// assets lists the registered converter assets
// GET /ledger/assets
func (a *API) assets(w http.ResponseWriter, r *http.Request) {
	assets, err := a.storage.ListAssets()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &AssetsResponse{Assets: assets})
}

// auditorRecord returns the configured auditor record
// GET /ledger/auditor
func (a *API) auditorRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := a.storage.Auditor()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrAuditorNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &AuditorResponse{
		Address:    rec.Address.Hex(),
		PublicKeyX: rec.PublicKeyX,
		PublicKeyY: rec.PublicKeyY,
	})
}
