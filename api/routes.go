package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// PoolStatusEndpoint reports the pool scope, liveness and tree size
	PoolStatusEndpoint = "/pool"
	// PoolRootEndpoint returns the current membership tree root
	PoolRootEndpoint = "/pool/root"
	// PoolRootAtEndpoint returns a historical root by its buffer slot
	RootIndexURLParam  = "index"
	PoolRootAtEndpoint = "/pool/root/{" + RootIndexURLParam + "}"
	// NullifierEndpoint reports the spent status of a nullifier hash
	NullifierURLParam = "nullifier"
	NullifierEndpoint = "/pool/nullifier/{" + NullifierURLParam + "}"
	// DepositorEndpoint returns the original depositor of a label
	LabelURLParam     = "label"
	DepositorEndpoint = "/pool/label/{" + LabelURLParam + "}"
	// BalanceEndpoint returns the encrypted balance of (address, asset)
	AddressURLParam = "address"
	AssetURLParam   = "assetId"
	BalanceEndpoint = "/ledger/balance/{" + AddressURLParam + "}/{" + AssetURLParam + "}"
	// AssetsEndpoint lists the registered converter assets
	AssetsEndpoint = "/ledger/assets"
	// AuditorEndpoint returns the configured auditor record
	AuditorEndpoint = "/ledger/auditor"
)
