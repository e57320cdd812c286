package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Mohsinsiddi/w3transfer/internal/config"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3transfer/cmd.Version=1.2.3" .
var Version = "0.3.0"

var (
	cfgDir      string
	cfg         *config.Config
	verbose     bool
	networkFlag string
	metricsAddr string
	logger      = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3transfer",
	Short: "Send ETH with a note and browse the on-chain transfer log",
	Long: `w3transfer sends ETH to an address and records the transfer, with a
message and a keyword, in the Transactions contract. It keeps the list of
recorded transfers and their count in sync with the chain.

The wallet is either the node itself (provider "rpc", e.g. a dev node with
unlocked accounts) or a local key kept in the OS keychain (provider
"keyring"). Switch with: w3transfer config set provider keyring`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		// Load config (skip for commands that don't need it).
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

// activeNetwork is --network, or the configured network. The flag is never
// saved.
func activeNetwork() string {
	if networkFlag != "" {
		return networkFlag
	}
	return cfg.Network
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errLine(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.EnvConfigDir+" or ~/.w3transfer)")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network to use for this invocation")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")

	rootCmd.AddCommand(
		statusCmd,
		connectCmd,
		sendCmd,
		txsCmd,
		eventsCmd,
		dashboardCmd,
		convertCmd,
		walletCmd,
		rpcCmd,
		configCmd,
	)
}
