package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/ethereum/go-ethereum/common"
	"github.com/veil-protocol/veil/ledger"
	"github.com/veil-protocol/veil/pool"
	"github.com/veil-protocol/veil/service"
	"github.com/veil-protocol/veil/web3"
	"go.vocdoni.io/dvote/log"
)

func main() {
	dataDir := flag.String("datadir", "", "data directory (defaults to ~/.veil)")
	host := flag.String("host", "0.0.0.0", "API host to bind")
	port := flag.Int("port", 8080, "API port to bind")
	logLevel := flag.String("loglevel", "info", "log level (debug, info, warn, error)")
	chainID := flag.Uint64("chainid", 1, "chain id of the asset layer")
	instance := flag.String("instance", "", "pool instance address")
	assetID := flag.Uint64("assetid", 1, "native asset id of the pool scope")
	authority := flag.String("authority", "", "authority address for privileged operations")
	hybridMode := flag.Bool("hybrid", false, "enable cross-ledger hybrid operations")
	artifactsTimeout := flag.Duration("artifacts-timeout", 10*time.Minute, "timeout for downloading circuit artifacts")
	web3Endpoints := flag.StringSlice("web3", nil, "web3 endpoints for the asset layer (repeatable)")
	web3PrivKey := flag.String("web3-privkey", "", "hex private key of the custody account")
	tokenAddr := flag.String("token", "", "ERC20 token address backing the pool asset")

	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	if *instance == "" || *authority == "" {
		log.Fatalf("both --instance and --authority are required")
	}
	if !common.IsHexAddress(*instance) {
		log.Fatalf("invalid instance address %q", *instance)
	}
	if !common.IsHexAddress(*authority) {
		log.Fatalf("invalid authority address %q", *authority)
	}
	if *dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("cannot resolve home directory: %v", err)
		}
		*dataDir = filepath.Join(home, ".veil")
	}

	// By default the node keeps assets on in-process books. With web3
	// endpoints configured, transfers settle on-chain through the custody
	// account instead.
	var assets pool.AssetTransfer = pool.NewAccountBook()
	var tokens ledger.TokenTransfer = ledger.NewTokenBook()
	if len(*web3Endpoints) > 0 {
		if *web3PrivKey == "" || *tokenAddr == "" {
			log.Fatalf("--web3 requires --web3-privkey and --token")
		}
		if !common.IsHexAddress(*tokenAddr) {
			log.Fatalf("invalid token address %q", *tokenAddr)
		}
		transport, err := web3.NewTokenTransport((*web3Endpoints)[0])
		if err != nil {
			log.Fatalf("failed to connect to web3 endpoint: %v", err)
		}
		for _, uri := range (*web3Endpoints)[1:] {
			if err := transport.AddWeb3Endpoint(uri); err != nil {
				log.Warnw("skipping web3 endpoint", "uri", uri, "error", err.Error())
			}
		}
		if err := transport.SetAccountPrivateKey(*web3PrivKey); err != nil {
			log.Fatalf("failed to load custody account key: %v", err)
		}
		log.Infow("using on-chain asset transport",
			"custody", transport.AccountAddress().Hex(), "token", *tokenAddr)
		assets = transport.Bind(common.HexToAddress(*tokenAddr))
		tokens = transport
	}

	log.Infow("downloading circuit artifacts", "timeout", artifactsTimeout.String())
	verifiers, err := service.DownloadArtifacts(*artifactsTimeout)
	if err != nil {
		log.Fatalf("failed to load circuit artifacts: %v", err)
	}

	protocol, err := service.NewProtocol(&service.ProtocolConfig{
		DataDir:   *dataDir,
		ChainID:   *chainID,
		Instance:  common.HexToAddress(*instance),
		AssetID:   *assetID,
		Authority: common.HexToAddress(*authority),
		Verifiers: verifiers,
		Assets:    assets,
		Tokens:    tokens,
	})
	if err != nil {
		log.Fatalf("failed to assemble protocol node: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authorityAddr := common.HexToAddress(*authority)
	if *hybridMode {
		if err := protocol.Coordinator().SetEnabled(authorityAddr, true); err != nil {
			log.Fatalf("failed to enable hybrid mode: %v", err)
		}
	}

	apiService := service.NewAPI(protocol, *host, *port)
	if err := apiService.Start(ctx); err != nil {
		log.Fatalf("failed to start API service: %v", err)
	}
	log.Infow("node running", "datadir", *dataDir,
		"hybrid", protocol.Coordinator().Enabled())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	apiService.Stop()
}
