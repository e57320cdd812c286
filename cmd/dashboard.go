package cmd

import (
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/coordinator"
	"github.com/Mohsinsiddi/w3transfer/internal/ui"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	dashInterval time.Duration
	dashDraft    coordinator.TransferRequest
	dashYes      bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live view of the session and the transfer log",
	Long: `Open a live dashboard that follows the session state: connection,
account, transfer count, the pending submission and the transfer list.

Keys: c connect, s send the draft given by the flags, r refresh, q quit.

The dashboard owns the terminal, so the keyring provider cannot ask before
signing. Its prompts are declined unless --yes is given.`,
	Example: `  w3transfer dashboard --to 0x7099...79C8 --amount 0.01 --keyword tip`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, dashboardApprover())
		if err != nil {
			return err
		}
		defer s.close()

		s.co.SetDraft(dashDraft)
		go s.co.Start(ctx)
		return ui.RunDashboard(ctx, s.co, s.network.Name, dashInterval)
	},
}

func dashboardApprover() wallet.Approver {
	if dashYes {
		return wallet.AutoApprove{}
	}
	return declineAll{}
}

func init() {
	dashboardCmd.Flags().DurationVar(&dashInterval, "interval", 30*time.Second, "refresh interval")
	dashboardCmd.Flags().StringVar(&dashDraft.Recipient, "to", "", "draft recipient address")
	dashboardCmd.Flags().StringVar(&dashDraft.Amount, "amount", "", "draft amount in ETH")
	dashboardCmd.Flags().StringVar(&dashDraft.Keyword, "keyword", "", "draft keyword")
	dashboardCmd.Flags().StringVar(&dashDraft.Message, "message", "", "draft message")
	dashboardCmd.Flags().BoolVarP(&dashYes, "yes", "y", false, "approve keyring connection and signing requests without asking")
}
