package service

import (
	"context"
	"time"

	"github.com/veil-protocol/veil/circuits"
	"golang.org/x/sync/errgroup"
)

// DownloadArtifacts downloads the verification keys of every circuit
// concurrently and builds the verifier set the protocol components need.
func DownloadArtifacts(timeout time.Duration) (*circuits.VerifierSet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	for _, artifact := range []*circuits.Artifact{
		circuits.WithdrawVerificationKey,
		circuits.RagequitVerificationKey,
		circuits.MintVerificationKey,
		circuits.BurnVerificationKey,
		circuits.TransferVerificationKey,
	} {
		g.Go(func() error {
			return artifact.Load(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return circuits.LoadVerifiers(ctx)
}
