package pool

import "fmt"

var (
	// ErrPoolDead is returned by Deposit once the pool has been wound down.
	ErrPoolDead = fmt.Errorf("pool is dead")
	// ErrInvalidValue is returned when a deposit or withdrawal value is out
	// of the safe arithmetic range.
	ErrInvalidValue = fmt.Errorf("value out of range")
	// ErrOnlyProcessor is returned when a withdrawal is submitted by an
	// address other than the one the request authorizes.
	ErrOnlyProcessor = fmt.Errorf("caller is not the authorized processor")
	// ErrOnlyDepositor is returned when a ragequit is attempted by anyone
	// but the original depositor of the label.
	ErrOnlyDepositor = fmt.Errorf("caller is not the original depositor")
	// ErrOnlyAuthority is returned when a restricted operation is attempted
	// by an address other than the pool authority.
	ErrOnlyAuthority = fmt.Errorf("caller is not the pool authority")
	// ErrUnknownStateRoot is returned when the proof references a root
	// outside the history window.
	ErrUnknownStateRoot = fmt.Errorf("state root is not known")
	// ErrASPRootMismatch is returned when the proof's authorized-set root
	// does not equal the registry's latest root.
	ErrASPRootMismatch = fmt.Errorf("authorized set root mismatch")
	// ErrContextMismatch is returned when the proof's context signal does
	// not bind the submitted withdrawal request to this pool.
	ErrContextMismatch = fmt.Errorf("context mismatch")
	// ErrTreeDepthExceeded is returned when a proof claims a tree depth
	// above the supported maximum.
	ErrTreeDepthExceeded = fmt.Errorf("tree depth exceeded")
	// ErrUnknownCommitment is returned by Ragequit when the commitment is
	// not present in the tree.
	ErrUnknownCommitment = fmt.Errorf("commitment not found in state")
	// ErrZeroAddress is returned by New when a required address is unset.
	ErrZeroAddress = fmt.Errorf("zero address configuration")
)
