package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/w3transfer/internal/ui"
	"github.com/spf13/cobra"
)

var (
	txsLast        int
	txsInteractive bool
)

var txsCmd = &cobra.Command{
	Use:   "txs",
	Short: "List the transfers recorded by the contract",
	Long: `List every transfer recorded by the Transactions contract, newest first.
Connects first if no account is authorised yet.

With --interactive the list opens in a browsable table: o opens the
recipient in the block explorer, c and f copy the recipient and sender.`,
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
		records := s.co.State().Transactions
		if len(records) == 0 {
			fmt.Println(ui.Meta("No transfers recorded yet."))
			return nil
		}

		title := fmt.Sprintf("Transfers on %s", s.network.DisplayName)
		if txsInteractive {
			return ui.RunTransferList(title, records, s.network.AddressURL)
		}

		first := 0
		if txsLast > 0 && txsLast < len(records) {
			first = len(records) - txsLast
		}
		t := ui.NewTable(ui.TransferColumns)
		for i := len(records) - 1; i >= first; i-- {
			t.AddRow(ui.TransferRow(i+1, records[i]))
		}
		fmt.Printf("%s  %s\n\n", ui.StyleTitle.Render(title), ui.Meta(fmt.Sprintf("(%d of %d)", len(records)-first, len(records))))
		fmt.Println(t.Render())
		return nil
	},
}

func init() {
	txsCmd.Flags().IntVar(&txsLast, "last", 0, "show only the most recent N transfers")
	txsCmd.Flags().BoolVarP(&txsInteractive, "interactive", "i", false, "browse the list interactively")
}
