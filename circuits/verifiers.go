package circuits

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/veil-protocol/veil/config"
	"github.com/veil-protocol/veil/zk"
)

// Per-circuit verification key artifacts. The proving side only needs these
// to check proofs, so they are loadable independently of the definitions and
// proving keys below.
var (
	WithdrawVerificationKey = &Artifact{
		RemoteURL: config.WithdrawVerificationKeyURL,
		Hash:      mustHex(config.WithdrawVerificationKeyHash),
	}
	RagequitVerificationKey = &Artifact{
		RemoteURL: config.RagequitVerificationKeyURL,
		Hash:      mustHex(config.RagequitVerificationKeyHash),
	}
	MintVerificationKey = &Artifact{
		RemoteURL: config.MintVerificationKeyURL,
		Hash:      mustHex(config.MintVerificationKeyHash),
	}
	BurnVerificationKey = &Artifact{
		RemoteURL: config.BurnVerificationKeyURL,
		Hash:      mustHex(config.BurnVerificationKeyHash),
	}
	TransferVerificationKey = &Artifact{
		RemoteURL: config.TransferVerificationKeyURL,
		Hash:      mustHex(config.TransferVerificationKeyHash),
	}
)

// Full artifact sets, definition and proving key included, for nodes that
// also generate proofs.
var (
	WithdrawArtifacts = NewCircuitArtifacts(
		&Artifact{RemoteURL: config.WithdrawCircuitURL, Hash: mustHex(config.WithdrawCircuitHash)},
		&Artifact{RemoteURL: config.WithdrawProvingKeyURL, Hash: mustHex(config.WithdrawProvingKeyHash)},
		WithdrawVerificationKey,
	)
	RagequitArtifacts = NewCircuitArtifacts(
		&Artifact{RemoteURL: config.RagequitCircuitURL, Hash: mustHex(config.RagequitCircuitHash)},
		&Artifact{RemoteURL: config.RagequitProvingKeyURL, Hash: mustHex(config.RagequitProvingKeyHash)},
		RagequitVerificationKey,
	)
	MintArtifacts = NewCircuitArtifacts(
		&Artifact{RemoteURL: config.MintCircuitURL, Hash: mustHex(config.MintCircuitHash)},
		&Artifact{RemoteURL: config.MintProvingKeyURL, Hash: mustHex(config.MintProvingKeyHash)},
		MintVerificationKey,
	)
	BurnArtifacts = NewCircuitArtifacts(
		&Artifact{RemoteURL: config.BurnCircuitURL, Hash: mustHex(config.BurnCircuitHash)},
		&Artifact{RemoteURL: config.BurnProvingKeyURL, Hash: mustHex(config.BurnProvingKeyHash)},
		BurnVerificationKey,
	)
	TransferArtifacts = NewCircuitArtifacts(
		&Artifact{RemoteURL: config.TransferCircuitURL, Hash: mustHex(config.TransferCircuitHash)},
		&Artifact{RemoteURL: config.TransferProvingKeyURL, Hash: mustHex(config.TransferProvingKeyHash)},
		TransferVerificationKey,
	)
)

// VerifierSet holds one groth16 verifier per proof-gated operation.
type VerifierSet struct {
	Withdraw zk.Verifier
	Ragequit zk.Verifier
	Mint     zk.Verifier
	Burn     zk.Verifier
	Transfer zk.Verifier
}

// LoadVerifiers fetches the verification keys of every circuit and builds
// the verifiers the pool and the ledger are wired with.
func LoadVerifiers(ctx context.Context) (*VerifierSet, error) {
	set := &VerifierSet{}
	for _, c := range []struct {
		name     string
		artifact *Artifact
		dst      *zk.Verifier
	}{
		{"withdraw", WithdrawVerificationKey, &set.Withdraw},
		{"ragequit", RagequitVerificationKey, &set.Ragequit},
		{"mint", MintVerificationKey, &set.Mint},
		{"burn", BurnVerificationKey, &set.Burn},
		{"transfer", TransferVerificationKey, &set.Transfer},
	} {
		if err := c.artifact.Load(ctx); err != nil {
			return nil, fmt.Errorf("error loading %s verification key: %w", c.name, err)
		}
		v, err := zk.NewGroth16Verifier(c.artifact.Content)
		if err != nil {
			return nil, fmt.Errorf("error building %s verifier: %w", c.name, err)
		}
		*c.dst = v
	}
	return set, nil
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
