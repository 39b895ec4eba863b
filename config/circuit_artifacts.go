package config

const (
	// CircuitArtifacts constants for the withdraw circuit
	WithdrawCircuitURL          = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/withdraw.ccs"
	WithdrawCircuitHash         = "8f3c1a0d52cf1f4f0f4c5f6f3a3f2b1e0d9c8b7a6958473625141302f1e0d9c8"
	WithdrawProvingKeyURL       = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/withdraw.pk"
	WithdrawProvingKeyHash      = "1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90a"
	WithdrawVerificationKeyURL  = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/withdraw.vk"
	WithdrawVerificationKeyHash = "a0b1c2d3e4f5061728394a5b6c7d8e9fa0b1c2d3e4f5061728394a5b6c7d8e9f"
	// CircuitArtifacts constants for the ragequit circuit
	RagequitCircuitURL          = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/ragequit.ccs"
	RagequitCircuitHash         = "2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f70"
	RagequitProvingKeyURL       = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/ragequit.pk"
	RagequitProvingKeyHash      = "3e4f5a6b7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f7081"
	RagequitVerificationKeyURL  = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/ragequit.vk"
	RagequitVerificationKeyHash = "4f5a6b7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192"
	// CircuitArtifacts constants for the mint circuit
	MintCircuitURL          = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/mint.ccs"
	MintCircuitHash         = "5a6b7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3"
	MintProvingKeyURL       = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/mint.pk"
	MintProvingKeyHash      = "6b7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4"
	MintVerificationKeyURL  = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/mint.vk"
	MintVerificationKeyHash = "7c8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5"
	// CircuitArtifacts constants for the burn circuit
	BurnCircuitURL          = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/burn.ccs"
	BurnCircuitHash         = "8d9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6"
	BurnProvingKeyURL       = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/burn.pk"
	BurnProvingKeyHash      = "9e0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7"
	BurnVerificationKeyURL  = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/burn.vk"
	BurnVerificationKeyHash = "0f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8"
	// CircuitArtifacts constants for the transfer circuit
	TransferCircuitURL          = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/transfer.ccs"
	TransferCircuitHash         = "1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f809"
	TransferProvingKeyURL       = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/transfer.pk"
	TransferProvingKeyHash      = "2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a"
	TransferVerificationKeyURL  = "https://circuits.ams3.cdn.digitaloceanspaces.com/veil/dev/transfer.vk"
	TransferVerificationKeyHash = "3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b"
)
