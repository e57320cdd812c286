package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config holds all w3transfer configuration.
type Config struct {
	Network         string              `json:"network"`
	CustomRPCs      map[string][]string `json:"rpc_urls"`      // network -> node URLs
	RPCAlgorithm    string              `json:"rpc_algorithm"` // "fastest" | "failover"
	Provider        string              `json:"provider"`      // "rpc" | "keyring"
	ProviderURL     string              `json:"provider_url"`  // wallet endpoint for provider "rpc"
	ContractAddress string              `json:"contract_address"`
	CacheBackend    string              `json:"cache_backend"` // "file" | "leveldb"
	DeployBlock     uint64              `json:"deploy_block,omitempty"`
	ManifestURL     string              `json:"manifest_url,omitempty"`
	FiatCurrency    string              `json:"fiat_currency,omitempty"` // "" disables price lookups

	ReceiptPollInterval Duration `json:"receipt_poll_interval"`
	TxConfirmTimeout    Duration `json:"tx_confirm_timeout"`

	// internal: config dir path used for Save()
	configDir string
}

// Duration is a time.Duration stored as "2s", "3m".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Bare numbers are seconds.
		var secs float64
		if err2 := json.Unmarshal(b, &secs); err2 != nil {
			return fmt.Errorf("duration must be a string like \"2s\": %w", err)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
