package config

import "time"

// Timeout constants used across cmd.
const (
	RPCSelectTimeout    = 10 * time.Second // node probing before picking an RPC
	TxConfirmTimeout    = 3 * time.Minute  // standard transaction confirmation wait
	ReceiptPollInterval = 2 * time.Second
)

// Provider kinds.
const (
	ProviderRPC     = "rpc"
	ProviderKeyring = "keyring"
)

// Environment overrides. They are never written back by Save.
const (
	EnvConfigDir = "W3TRANSFER_CONFIG_DIR"
	EnvRPCURL    = "W3TRANSFER_RPC_URL"
	EnvContract  = "W3TRANSFER_CONTRACT"
)
