package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/zk"
	"go.vocdoni.io/dvote/log"
)

// Mint homomorphically adds the proven encrypted amount to the user's
// balance. An empty balance is set directly; any later mint combines. The
// auditor compliance ciphertext of the mint is appended to the history and
// the transaction index advances.
func (l *Ledger) Mint(to common.Address, assetID uint64, proof *zk.Proof, signals *zk.MintSignals) error {
	if err := l.auditorGuard(signals.AuditorPublicKey); err != nil {
		return err
	}
	if err := l.userGuard(to, signals.UserPublicKey); err != nil {
		return err
	}
	if err := l.mintVerifier.Verify(proof, signals.ToSlice()); err != nil {
		return err
	}

	owned := !l.InBatch()
	if owned {
		if err := l.StartBatch(); err != nil {
			return err
		}
		defer l.Discard()
	}

	balance, err := l.Balance(to, assetID)
	if err != nil {
		return err
	}
	amount := l.cipherFromSignals(signals.Amount)
	if balance.IsEmpty() {
		balance.Balance = amount
	} else {
		balance.Balance.Add(balance.Balance, amount)
	}
	balance.History = append(balance.History, signals.AuditorPCT)
	balance.TxIndex++
	if err := l.setBalance(to, assetID, balance); err != nil {
		return err
	}

	if owned {
		if err := l.EndBatch(); err != nil {
			return err
		}
	}
	log.Debugw("mint applied", "to", to.Hex(), "asset", assetID, "txIndex", balance.TxIndex)
	return nil
}

// Burn homomorphically subtracts the proven encrypted amount from the
// user's balance. The proof must have been built against the exact stored
// ciphertext; a stale view is rejected before verification.
func (l *Ledger) Burn(user common.Address, assetID uint64, proof *zk.Proof, signals *zk.BurnSignals) error {
	if err := l.auditorGuard(signals.AuditorPublicKey); err != nil {
		return err
	}
	if err := l.userGuard(user, signals.UserPublicKey); err != nil {
		return err
	}

	owned := !l.InBatch()
	if owned {
		if err := l.StartBatch(); err != nil {
			return err
		}
		defer l.Discard()
	}

	balance, err := l.Balance(user, assetID)
	if err != nil {
		return err
	}
	if balance.IsEmpty() || !balance.Balance.Equal(l.cipherFromSignals(signals.Balance)) {
		return ErrStaleBalance
	}
	if err := l.burnVerifier.Verify(proof, signals.ToSlice()); err != nil {
		return err
	}

	balance.Balance.Sub(balance.Balance, l.cipherFromSignals(signals.Amount))
	balance.BalancePCT = signals.NewBalancePCT
	balance.TxIndex++
	if err := l.setBalance(user, assetID, balance); err != nil {
		return err
	}

	if owned {
		if err := l.EndBatch(); err != nil {
			return err
		}
	}
	log.Debugw("burn applied", "user", user.Hex(), "asset", assetID, "txIndex", balance.TxIndex)
	return nil
}

// Transfer debits the sender and credits the receiver under one proof that
// binds both deltas to the same hidden amount. The sender's stored
// ciphertext must match the proven one exactly.
func (l *Ledger) Transfer(from, to common.Address, assetID uint64, proof *zk.Proof, signals *zk.TransferSignals) error {
	if err := l.auditorGuard(signals.AuditorPublicKey); err != nil {
		return err
	}
	if err := l.userGuard(from, signals.SenderPublicKey); err != nil {
		return err
	}
	if err := l.userGuard(to, signals.ReceiverPublicKey); err != nil {
		return err
	}

	owned := !l.InBatch()
	if owned {
		if err := l.StartBatch(); err != nil {
			return err
		}
		defer l.Discard()
	}

	sender, err := l.Balance(from, assetID)
	if err != nil {
		return err
	}
	if sender.IsEmpty() || !sender.Balance.Equal(l.cipherFromSignals(signals.SenderBalance)) {
		return ErrStaleBalance
	}
	if err := l.transferVerifier.Verify(proof, signals.ToSlice()); err != nil {
		return err
	}

	sender.Balance.Sub(sender.Balance, l.cipherFromSignals(signals.SenderDelta))
	sender.BalancePCT = signals.SenderBalancePCT
	sender.TxIndex++
	if err := l.setBalance(from, assetID, sender); err != nil {
		return err
	}

	receiver, err := l.Balance(to, assetID)
	if err != nil {
		return err
	}
	receiverDelta := l.cipherFromSignals(signals.ReceiverDelta)
	if receiver.IsEmpty() {
		receiver.Balance = receiverDelta
	} else {
		receiver.Balance.Add(receiver.Balance, receiverDelta)
	}
	receiver.History = append(receiver.History, signals.ReceiverAmountPCT)
	receiver.TxIndex++
	if err := l.setBalance(to, assetID, receiver); err != nil {
		return err
	}

	if owned {
		if err := l.EndBatch(); err != nil {
			return err
		}
	}
	log.Debugw("transfer applied",
		"from", from.Hex(), "to", to.Hex(), "asset", assetID)
	return nil
}

// TransferFrom is a Transfer submitted by an approved spender. Only the
// existence of an allowance is checked here; its magnitude is enforced
// inside the proof.
func (l *Ledger) TransferFrom(spender, from, to common.Address, assetID uint64, proof *zk.Proof, signals *zk.TransferSignals) error {
	if !l.HasAllowance(from, spender, assetID) {
		return ErrNoAllowance
	}
	return l.Transfer(from, to, assetID, proof, signals)
}
