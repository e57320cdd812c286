package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/Mohsinsiddi/w3transfer/internal/config"
	"github.com/Mohsinsiddi/w3transfer/internal/rpc"
	"github.com/Mohsinsiddi/w3transfer/internal/ui"
	"github.com/spf13/cobra"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage node endpoints",
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <network> <url>",
	Short: "Add a custom RPC URL for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		if _, err := chain.NewRegistry().GetByName(name); err != nil {
			return fmt.Errorf("unknown network %q", name)
		}
		if err := cfg.AddRPC(name, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(name), url)))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <network> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		if err := cfg.RemoveRPC(name, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed RPC for %s: %s", name, url)))
		return nil
	},
}

var rpcListCmd = &cobra.Command{
	Use:   "list [network]",
	Short: "Probe the RPCs of a network and show which one would be used",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := activeNetwork()
		if len(args) == 1 {
			name = args[0]
		}
		n, err := chain.NewRegistry().GetByName(name)
		if err != nil {
			return fmt.Errorf("unknown network %q", name)
		}
		urls := append(append([]string{}, cfg.GetRPCs(n.Name)...), n.RPCs...)

		spin := ui.NewSpinner(fmt.Sprintf("Probing %d %s RPC(s)...", len(urls), n.DisplayName))
		spin.Start()
		ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCSelectTimeout)
		results := rpc.ProbeAll(ctx, urls)
		cancel()
		spin.Stop()

		picked, pickErr := rpc.Pick(rpc.Algorithm(cfg.RPCAlgorithm), results)

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL", Width: 44},
			{Title: "Latency", Width: 10},
			{Title: "Block #", Width: 12},
			{Title: "Status", Width: 12},
		})
		for _, r := range results {
			status := ui.Success("healthy")
			latency := fmt.Sprintf("%dms", r.Latency.Milliseconds())
			block := fmt.Sprintf("%d", r.BlockNumber)
			if !r.Healthy() {
				status = ui.Err("down")
				latency, block = "-", "-"
			} else if pickErr == nil && r.URL == picked.URL {
				status = ui.Success("selected")
			}
			t.AddRow(ui.Row{r.URL, latency, block, status})
		}

		fmt.Printf("%s  %s\n\n", ui.StyleTitle.Render("RPCs for "+n.DisplayName), ui.Meta("("+cfg.RPCAlgorithm+")"))
		fmt.Println(t.Render())
		if pickErr != nil {
			fmt.Println(ui.Warn(pickErr.Error()))
		}
		return nil
	},
}

func init() {
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd)
}
