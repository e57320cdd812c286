package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3transfer/internal/config"
	"github.com/Mohsinsiddi/w3transfer/internal/sync"
	"github.com/Mohsinsiddi/w3transfer/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs := make([][2]string, 0, len(config.Keys()))
		for _, key := range config.Keys() {
			v, err := cfg.Get(key)
			if err != nil {
				return err
			}
			if v == "" {
				v = ui.Meta("(unset)")
			}
			pairs = append(pairs, [2]string{key, v})
		}
		fmt.Println(ui.KeyValueBlock("Current Configuration", pairs))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Set a configuration value",
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.Keys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", args[0], args[1])))
		return nil
	},
}

var configSyncCmd = &cobra.Command{
	Use:   "sync [manifest-url]",
	Short: "Set contract_address from a deployments manifest",
	Long: `Fetch a deployments.json manifest and store the Transactions contract
address and deployment block for the active network. The manifest location
(an http(s) URL or a local path) is remembered, so later runs need no argument.

Examples:
  w3transfer config sync https://example.org/deployments.json
  w3transfer config sync ./deployments/deployments.json --network sepolia
  w3transfer config sync`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := sync.New(cfg)
		if len(args) == 1 {
			if err := s.SetSource(args[0]); err != nil {
				return err
			}
		}

		network := activeNetwork()
		entry, err := s.Run(cmd.Context(), network)
		if err != nil {
			return err
		}
		logger.Debug("manifest synced", "source", cfg.ManifestURL, "network", network, "address", entry.Address)

		fmt.Println(ui.Success(fmt.Sprintf("contract_address set to %s on %s", entry.Address, network)))
		if entry.Block > 0 {
			fmt.Println(ui.Meta(fmt.Sprintf("deploy_block set to %d", entry.Block)))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configSyncCmd)
}
