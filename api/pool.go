package api

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/veil-protocol/veil/state"
	"github.com/veil-protocol/veil/types"
)

// poolStatus reports the pool scope, liveness and tree size
// GET /pool
func (a *API) poolStatus(w http.ResponseWriter, r *http.Request) {
	size, err := a.pool.State().Size()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &PoolStatus{
		Scope: types.BigIntFrom(a.pool.Scope()),
		Dead:  a.pool.IsDead(),
		Size:  size,
	})
}

// poolRoot returns the current membership tree root
// GET /pool/root
func (a *API) poolRoot(w http.ResponseWriter, r *http.Request) {
	root, err := a.pool.State().Root()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &RootResponse{Root: types.BigIntFrom(root)})
}

// poolRootAt returns a historical root by its buffer slot
// GET /pool/root/{index}
func (a *API) poolRootAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(chi.URLParam(r, RootIndexURLParam), 10, 64)
	if err != nil {
		ErrMalformedParam.Withf("could not parse root index: %v", err).Write(w)
		return
	}
	root, err := a.pool.State().RootAt(index)
	if err != nil {
		ErrRootSlotNotFound.Withf("index %d", index).Write(w)
		return
	}
	httpWriteJSON(w, &RootResponse{Root: types.BigIntFrom(root)})
}

// nullifierStatus reports the spent status of a nullifier hash
// GET /pool/nullifier/{nullifier}
func (a *API) nullifierStatus(w http.ResponseWriter, r *http.Request) {
	nullifier, ok := new(big.Int).SetString(chi.URLParam(r, NullifierURLParam), 10)
	if !ok {
		ErrMalformedParam.With("could not parse nullifier").Write(w)
		return
	}
	httpWriteJSON(w, &NullifierStatus{
		Nullifier: types.BigIntFrom(nullifier),
		Spent:     a.pool.State().IsSpent(nullifier),
	})
}

// depositorOfLabel returns the original depositor of a label
// GET /pool/label/{label}
func (a *API) depositorOfLabel(w http.ResponseWriter, r *http.Request) {
	label, ok := new(big.Int).SetString(chi.URLParam(r, LabelURLParam), 10)
	if !ok {
		ErrMalformedParam.With("could not parse label").Write(w)
		return
	}
	depositor, err := a.pool.State().Depositor(label)
	if err != nil {
		if errors.Is(err, state.ErrUnknownLabel) {
			ErrLabelNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &DepositorResponse{
		Label:     types.BigIntFrom(label),
		Depositor: depositor.Hex(),
	})
}
