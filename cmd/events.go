package cmd

import (
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/w3transfer/internal/ui"
	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/spf13/cobra"
)

var eventsFrom uint64

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show Transfer events emitted by the contract",
	Long: `Fetch and decode the Transfer events the contract emitted for each
recorded transfer. Unlike txs this reads logs, so it needs no account and
shows the block and transaction of every record. The scan starts at
deploy_block unless --from-block is given.

Examples:
  w3transfer events
  w3transfer events --from-block 5200000 --network sepolia`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, ui.NewTerminalApprover())
		if err != nil {
			return err
		}
		defer s.close()

		from := eventsFrom
		if !cmd.Flags().Changed("from-block") {
			from = cfg.DeployBlock
		}

		spin := ui.NewSpinner(fmt.Sprintf("Fetching Transfer events on %s...", ui.ChainName(s.network.DisplayName)))
		spin.Start()
		events, err := s.contract.Transfers(ctx, from)
		spin.Stop()
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println(ui.Meta("No Transfer events found."))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Block", Width: 10},
			{Title: "Tx", Width: 14},
			{Title: "From", Width: 14},
			{Title: "To", Width: 14},
			{Title: "Amount (ETH)", Width: 22},
			{Title: "Keyword", Width: 12},
			{Title: "Message", Width: 24},
		})
		for _, ev := range events {
			t.AddRow(ui.Row{
				strconv.FormatUint(ev.BlockNumber, 10),
				ui.TruncateAddr(ev.TxHash.Hex()),
				ui.TruncateAddr(wallet.Lower(ev.From)),
				ui.TruncateAddr(wallet.Lower(ev.Receiver)),
				units.FormatEther(ev.Amount),
				ev.Keyword,
				ev.Message,
			})
		}

		fmt.Printf("%s  %s\n\n", ui.StyleTitle.Render("Transfer events"), ui.Meta(fmt.Sprintf("(%s, from block %d)", s.network.Name, from)))
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d event(s)", len(events))))
		return nil
	},
}

func init() {
	eventsCmd.Flags().Uint64Var(&eventsFrom, "from-block", 0, "first block to scan (default: deploy_block)")
}
