package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/w3transfer/internal/coordinator"
	"github.com/Mohsinsiddi/w3transfer/internal/ens"
	"github.com/Mohsinsiddi/w3transfer/internal/ui"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connected account and the on-chain transfer count",
	Long: `Reconcile with the wallet without prompting and show the session:
network, node, contract, connected account and the number of recorded
transfers. The count from the previous run is shown if the contract cannot
be read.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, ui.NewTerminalApprover())
		if err != nil {
			return err
		}
		defer s.close()

		spin := ui.NewSpinner("Reading wallet and contract...")
		spin.Start()
		s.co.Start(ctx)
		spin.Stop()

		st := s.co.State()
		pairs := statusPairs(s, st)
		if st.Account != nil && s.network.Explorer != "" {
			if name, err := ens.NewResolver(s.client).ReverseLookup(ctx, *st.Account); err == nil {
				pairs = append(pairs, [2]string{"ENS", ui.Val(name)})
			} else {
				logger.Debug("no ENS name", "account", wallet.Lower(*st.Account), "err", err)
			}
		}
		fmt.Println(ui.KeyValueBlock("w3transfer status", pairs))
		printNotice(s.co.State())
		return nil
	},
}

func statusPairs(s *session, st coordinator.State) [][2]string {
	account := ui.Meta("not connected")
	if st.Account != nil {
		account = ui.Addr(wallet.Lower(*st.Account))
	}
	count := ui.Meta("unknown")
	if st.CountKnown {
		count = ui.Val(fmt.Sprintf("%d", st.Count))
	}
	return [][2]string{
		{"Network", ui.ChainName(s.network.DisplayName) + ui.Meta(fmt.Sprintf(" (chain %d)", s.network.ChainID))},
		{"Node", ui.Meta(s.nodeURL)},
		{"Provider", ui.Val(cfg.Provider)},
		{"Contract", ui.Addr(wallet.Lower(s.contract.Address()))},
		{"Connection", ui.Val(st.Connection.String())},
		{"Account", account},
		{"Transfers", count},
	}
}

func printNotice(st coordinator.State) {
	if st.Notice != "" {
		fmt.Println(ui.Warn(st.Notice))
	}
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Ask the wallet to expose an account",
	Long: `Request an account from the wallet. With the keyring provider you are
asked to confirm on the terminal; the grant is remembered so later commands
find the account without asking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, ui.NewTerminalApprover())
		if err != nil {
			return err
		}
		defer s.close()

		if err := connect(ctx, s); err != nil {
			return err
		}
		st := s.co.State()
		fmt.Println(ui.Success("Connected: " + ui.Addr(wallet.Lower(*st.Account))))
		fmt.Println(ui.Meta(fmt.Sprintf("%d transfer(s) recorded by the contract", len(st.Transactions))))
		return nil
	},
}

// connect starts the coordinator and, if no account was already authorised,
// requests one.
func connect(ctx context.Context, s *session) error {
	s.co.Start(ctx)
	if s.co.State().Account != nil {
		return nil
	}
	if err := s.co.Connect(ctx); err != nil {
		printNotice(s.co.State())
		return err
	}
	return nil
}
