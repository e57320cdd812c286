package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/w3transfer/internal/cache"
	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/Mohsinsiddi/w3transfer/internal/config"
	"github.com/Mohsinsiddi/w3transfer/internal/contract"
	"github.com/Mohsinsiddi/w3transfer/internal/coordinator"
	"github.com/Mohsinsiddi/w3transfer/internal/metrics"
	"github.com/Mohsinsiddi/w3transfer/internal/rpc"
	"github.com/Mohsinsiddi/w3transfer/internal/ui"
	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// session is everything a command needs to talk to the chain.
type session struct {
	network  *chain.Network
	nodeURL  string
	wallet   *wallet.Gateway
	contract *contract.Gateway
	co       *coordinator.Coordinator
	metrics  *metrics.Registry

	client *gethrpc.Client
	cache  cache.Cache
	stop   context.CancelFunc
}

// openSession picks a node for the configured network, builds the wallet
// provider, contract gateway, cache and coordinator. approver answers the
// keyring provider's prompts. Call close when done.
func openSession(ctx context.Context, approver wallet.Approver) (*session, error) {
	network, err := chain.NewRegistry().GetByName(activeNetwork())
	if err != nil {
		return nil, fmt.Errorf("network %q: %w", activeNetwork(), err)
	}
	contractAddr, err := cfg.Contract()
	if err != nil {
		return nil, err
	}

	nodeURL := cfg.RPCURL()
	if nodeURL == "" {
		urls := append(append([]string{}, cfg.GetRPCs(network.Name)...), network.RPCs...)
		pickCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
		nodeURL, err = rpc.Select(pickCtx, urls, rpc.Algorithm(cfg.RPCAlgorithm))
		cancel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", network.DisplayName, err)
		}
	}
	logger.Debug("using node", "network", network.Name, "url", nodeURL)

	client, err := chain.Dial(ctx, nodeURL)
	if err != nil {
		return nil, err
	}

	var provider chain.Provider = client
	if cfg.Provider == config.ProviderKeyring {
		provider = wallet.NewKeyringProvider(client,
			wallet.DefaultKeystore(cfg.KeysDir()),
			approver,
			wallet.WithGrants(wallet.NewFileGrants(cfg.GrantsPath())),
			wallet.WithProviderLogger(logger.With("component", "keyring")),
		)
	}

	walletGW := wallet.NewGateway(provider,
		wallet.WithLogger(logger.With("component", "wallet")),
		wallet.WithPollInterval(cfg.ReceiptPollInterval.Std()),
	)
	contractGW, err := contract.NewGateway(provider, walletGW, contractAddr, logger.With("component", "contract"))
	if err != nil {
		client.Close()
		return nil, err
	}

	c, err := cache.Open(cfg.CacheBackend, cfg.Dir())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	reg := metrics.New()
	runCtx, stop := context.WithCancel(ctx)
	if metricsAddr != "" {
		go func() {
			if err := reg.Serve(runCtx, metricsAddr, logger); err != nil {
				logger.Warn("metrics server stopped", "err", err)
			}
		}()
	}

	co := coordinator.New(walletGW, coordinator.GatewayFactory(contractGW), c,
		coordinator.WithLogger(logger.With("component", "coordinator")),
		coordinator.WithObserver(reg),
	)

	return &session{
		network:  network,
		nodeURL:  nodeURL,
		wallet:   walletGW,
		contract: contractGW,
		co:       co,
		metrics:  reg,
		client:   client,
		cache:    c,
		stop:     stop,
	}, nil
}

// declineAll answers every wallet prompt with no. Used where the terminal
// is not free for prompting.
type declineAll struct{}

func (declineAll) ApproveConnection(context.Context, common.Address) bool { return false }
func (declineAll) ApproveTransaction(context.Context, wallet.TxArgs) bool  { return false }

func (s *session) close() {
	s.stop()
	if err := s.cache.Close(); err != nil {
		logger.Warn("closing cache", "err", err)
	}
	s.client.Close()
}

// errLine renders err for the terminal, with a hint for the errors a user
// can act on.
func errLine(err error) string {
	switch {
	case errors.Is(err, wallet.ErrWalletUnavailable):
		return ui.Err(err.Error()) + "\n" + ui.Hint("Import a key with: w3transfer wallet import, or set provider to \"rpc\" for a dev node")
	case errors.Is(err, wallet.ErrUserRejected), errors.Is(err, wallet.ErrTransferRejected):
		return ui.Warn(err.Error())
	case errors.Is(err, units.ErrInvalidAmount):
		return ui.Err(err.Error()) + "\n" + ui.Hint("Amounts are in ETH, e.g. 0.01")
	case errors.Is(err, coordinator.ErrNotReady):
		return ui.Err(err.Error()) + "\n" + ui.Hint("Run: w3transfer connect")
	case errors.Is(err, rpc.ErrNoHealthyRPC):
		return ui.Err(err.Error()) + "\n" + ui.Hint("Add one with: w3transfer rpc add <network> <url>")
	}
	return ui.Err(err.Error())
}
