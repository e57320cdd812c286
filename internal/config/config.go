package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	defaultNetwork   = "localhost"
	defaultAlgorithm = "fastest"
	defaultProvider  = ProviderRPC
	defaultCache     = "file"

	configFile = "config.json"
	grantsFile = "grants.json"
	keysDir    = "keys"
)

// Load reads config from dir (or creates defaults). dir defaults to
// $W3TRANSFER_CONFIG_DIR, then ~/.w3transfer.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvConfigDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3transfer")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network.
func (c *Config) RemoveRPC(network, url string) error {
	rpcs := c.CustomRPCs[network]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	c.CustomRPCs[network] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a network.
func (c *Config) GetRPCs(network string) []string {
	return c.CustomRPCs[network]
}

// RPCURL returns the wallet endpoint: $W3TRANSFER_RPC_URL, then
// provider_url. Empty means "use the selected node".
func (c *Config) RPCURL() string {
	if v := os.Getenv(EnvRPCURL); v != "" {
		return v
	}
	return c.ProviderURL
}

// Contract returns the Transactions contract address, honouring
// $W3TRANSFER_CONTRACT.
func (c *Config) Contract() (common.Address, error) {
	raw := c.ContractAddress
	if v := os.Getenv(EnvContract); v != "" {
		raw = v
	}
	if raw == "" {
		return common.Address{}, fmt.Errorf("no contract address configured (w3transfer config set contract_address 0x... or $%s)", EnvContract)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("contract address %q is not a hex address", raw)
	}
	return common.HexToAddress(raw), nil
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// GrantsPath is where the keyring provider remembers connection grants.
func (c *Config) GrantsPath() string {
	return filepath.Join(c.configDir, grantsFile)
}

// KeysDir holds the encrypted-file keyring fallback.
func (c *Config) KeysDir() string {
	return filepath.Join(c.configDir, keysDir)
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"network", "provider", "provider_url", "contract_address", "deploy_block",
		"manifest_url", "cache_backend", "rpc_algorithm", "receipt_poll_interval",
		"tx_confirm_timeout", "fiat_currency",
	}
}

// Get returns the stored value of key as text.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "network":
		return c.Network, nil
	case "provider":
		return c.Provider, nil
	case "provider_url":
		return c.ProviderURL, nil
	case "contract_address":
		return c.ContractAddress, nil
	case "deploy_block":
		return strconv.FormatUint(c.DeployBlock, 10), nil
	case "manifest_url":
		return c.ManifestURL, nil
	case "fiat_currency":
		return c.FiatCurrency, nil
	case "cache_backend":
		return c.CacheBackend, nil
	case "rpc_algorithm":
		return c.RPCAlgorithm, nil
	case "receipt_poll_interval":
		return c.ReceiptPollInterval.Std().String(), nil
	case "tx_confirm_timeout":
		return c.TxConfirmTimeout.Std().String(), nil
	}
	return "", fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
}

// Set validates and stores value under key. It does not save.
func (c *Config) Set(key, value string) error {
	switch key {
	case "network":
		c.Network = strings.ToLower(value)
	case "provider":
		if value != ProviderRPC && value != ProviderKeyring {
			return fmt.Errorf("provider must be %q or %q", ProviderRPC, ProviderKeyring)
		}
		c.Provider = value
	case "provider_url":
		c.ProviderURL = value
	case "contract_address":
		if value != "" && !common.IsHexAddress(value) {
			return fmt.Errorf("contract address %q is not a hex address", value)
		}
		c.ContractAddress = value
	case "deploy_block":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("deploy_block must be a block number")
		}
		c.DeployBlock = n
	case "manifest_url":
		c.ManifestURL = value
	case "fiat_currency":
		c.FiatCurrency = strings.ToLower(value)
	case "cache_backend":
		if value != "file" && value != "leveldb" {
			return fmt.Errorf("cache_backend must be \"file\" or \"leveldb\"")
		}
		c.CacheBackend = value
	case "rpc_algorithm":
		if value != "fastest" && value != "failover" {
			return fmt.Errorf("rpc_algorithm must be \"fastest\" or \"failover\"")
		}
		c.RPCAlgorithm = value
	case "receipt_poll_interval", "tx_confirm_timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration like \"2s\"", key)
		}
		if key == "receipt_poll_interval" {
			c.ReceiptPollInterval = Duration(d)
		} else {
			c.TxConfirmTimeout = Duration(d)
		}
	default:
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		Network:             defaultNetwork,
		RPCAlgorithm:        defaultAlgorithm,
		Provider:            defaultProvider,
		CacheBackend:        defaultCache,
		ReceiptPollInterval: Duration(ReceiptPollInterval),
		TxConfirmTimeout:    Duration(TxConfirmTimeout),
		CustomRPCs:          make(map[string][]string),
		configDir:           dir,
	}
}
