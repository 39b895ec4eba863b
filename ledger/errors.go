package ledger

import "fmt"

var (
	// ErrAuditorNotSet is returned by proof-gated mutations before an
	// auditor key has been configured.
	ErrAuditorNotSet = fmt.Errorf("auditor not configured")
	// ErrAuditorKeyMismatch is returned when the auditor key embedded in
	// the proof signals differs from the configured one.
	ErrAuditorKeyMismatch = fmt.Errorf("auditor public key mismatch")
	// ErrUserNotRegistered is returned when a party of the operation has no
	// registered public key.
	ErrUserNotRegistered = fmt.Errorf("user not registered")
	// ErrPublicKeyMismatch is returned when the proof signals carry a
	// public key different from the registered one.
	ErrPublicKeyMismatch = fmt.Errorf("registered public key mismatch")
	// ErrStaleBalance is returned when the balance ciphertext the proof was
	// built against differs from the stored one.
	ErrStaleBalance = fmt.Errorf("balance ciphertext does not match stored balance")
	// ErrNoAllowance is returned by TransferFrom when no allowance exists
	// for the (owner, spender, asset) triple.
	ErrNoAllowance = fmt.Errorf("no allowance")
	// ErrUnknownAsset is returned when the asset or token has not been
	// registered.
	ErrUnknownAsset = fmt.Errorf("unknown asset")
	// ErrOnlyAuthority is returned when a restricted operation is attempted
	// by an address other than the ledger authority.
	ErrOnlyAuthority = fmt.Errorf("caller is not the ledger authority")
	// ErrInvalidAmount is returned by the converter for nil, negative or
	// out-of-range amounts.
	ErrInvalidAmount = fmt.Errorf("invalid amount")
	// ErrNoBatch is returned when a mutation is attempted outside a batch.
	ErrNoBatch = fmt.Errorf("need to StartBatch() first")
	// ErrBatchOpen is returned by StartBatch when one is already open.
	ErrBatchOpen = fmt.Errorf("batch already open")
)
