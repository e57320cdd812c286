// Package sync points the configuration at the Transactions contract listed
// in a deployments manifest, so the address need not be copied by hand after
// each deployment.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/config"
	"github.com/ethereum/go-ethereum/common"
)

// ContractName is the manifest key of the Transactions contract.
const ContractName = "Transactions"

// Manifest is the structure of a deployments.json manifest.
//
//	{"contracts": {"Transactions": {"sepolia": {"address": "0x...", "block": 5200000}}}}
type Manifest struct {
	Contracts map[string]map[string]ManifestEntry `json:"contracts"`
}

// ManifestEntry is a single contract deployment entry.
type ManifestEntry struct {
	Address string `json:"address"`
	Block   uint64 `json:"block,omitempty"` // deployment block, the first block with events
}

// Syncer updates the configuration from the manifest at cfg.ManifestURL.
type Syncer struct {
	cfg    *config.Config
	client *http.Client
}

// New creates a new Syncer.
func New(cfg *config.Config) *Syncer {
	return &Syncer{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetSource sets the manifest location, an http(s) URL or a local path.
func (s *Syncer) SetSource(source string) error {
	s.cfg.ManifestURL = source
	return s.cfg.Save()
}

// Run fetches the manifest and stores the Transactions deployment for
// network as contract_address and deploy_block.
func (s *Syncer) Run(ctx context.Context, network string) (ManifestEntry, error) {
	if s.cfg.ManifestURL == "" {
		return ManifestEntry{}, fmt.Errorf("no manifest configured, run: w3transfer config sync <url>")
	}

	manifest, err := s.fetchManifest(ctx, s.cfg.ManifestURL)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("fetching manifest: %w", err)
	}

	entry, ok := manifest.Contracts[ContractName][network]
	if !ok {
		return ManifestEntry{}, fmt.Errorf("manifest has no %s deployment on %s", ContractName, network)
	}
	if !common.IsHexAddress(entry.Address) {
		return ManifestEntry{}, fmt.Errorf("manifest address %q for %s is not a hex address", entry.Address, network)
	}
	entry.Address = common.HexToAddress(entry.Address).Hex()

	s.cfg.ContractAddress = entry.Address
	s.cfg.DeployBlock = entry.Block
	if err := s.cfg.Save(); err != nil {
		return ManifestEntry{}, fmt.Errorf("saving config: %w", err)
	}
	return entry, nil
}

func (s *Syncer) fetchManifest(ctx context.Context, source string) (*Manifest, error) {
	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, source)
		}
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, err
		}
	} else {
		var err error
		if body, err = os.ReadFile(source); err != nil {
			return nil, err
		}
	}

	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
