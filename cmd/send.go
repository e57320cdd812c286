package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/coordinator"
	"github.com/Mohsinsiddi/w3transfer/internal/ens"
	"github.com/Mohsinsiddi/w3transfer/internal/price"
	"github.com/Mohsinsiddi/w3transfer/internal/ui"
	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	sendTo      string
	sendAmount  string
	sendKeyword string
	sendMessage string
	sendYes     bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send ETH and record the transfer on-chain",
	Long: `Send --amount ETH to --to, then record the transfer with its message
and keyword in the Transactions contract and wait for the record to be mined.

Two transactions are submitted: the value transfer and the record write.
The command waits at most tx_confirm_timeout for the receipt. --to also
accepts an ENS name on networks where ENS is deployed.`,
	Example: `  w3transfer send --to 0x7099...79C8 --amount 0.01 --keyword coffee --message "thanks"`,
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

		recipient := sendTo
		if ens.IsName(sendTo) {
			addr, err := ens.NewResolver(s.client).Resolve(ctx, sendTo)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", sendTo, err)
			}
			recipient = addr.Hex()
			fmt.Println(ui.Info(fmt.Sprintf("%s → %s", sendTo, ui.Addr(wallet.Lower(addr)))))
		}

		s.co.SetDraft(coordinator.TransferRequest{
			Recipient: recipient,
			Amount:    sendAmount,
			Keyword:   sendKeyword,
			Message:   sendMessage,
		})

		from := *s.co.State().Account
		pairs := [][2]string{
			{"From", ui.Addr(wallet.Lower(from))},
			{"To", ui.Addr(recipient)},
			{"Amount", ui.Val(sendAmount + " " + s.network.NativeCurrency)},
		}
		if fiat, ok := fiatValue(ctx, s, sendAmount); ok {
			pairs = append(pairs, [2]string{"Value", ui.Meta(fiat)})
		}
		pairs = append(pairs,
			[2]string{"Keyword", ui.Val(sendKeyword)},
			[2]string{"Message", ui.Val(sendMessage)},
			[2]string{"Network", ui.ChainName(s.network.DisplayName)},
		)
		fmt.Println(ui.KeyValueBlock("Transfer", pairs))
		if !sendYes && !ui.Confirm("Send this transfer?") {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		hash, err := sendWithProgress(ctx, s.co, cfg.TxConfirmTimeout.Std())
		if err != nil {
			if hash != (common.Hash{}) {
				fmt.Println(ui.Meta("Record tx: " + hash.Hex()))
			}
			return err
		}

		fmt.Println(ui.Success("Transfer recorded: " + hash.Hex()))
		if url := s.network.TxURL(hash.Hex()); url != "" {
			fmt.Println(ui.Hint(url))
		}
		if st := s.co.State(); st.CountKnown {
			fmt.Println(ui.Meta(fmt.Sprintf("%d transfer(s) recorded by the contract", st.Count)))
		}
		return nil
	},
}

// sendWithProgress runs Send and shows a spinner once the record write is
// in flight. Wallet prompts happen before that, so they are not overdrawn.
func sendWithProgress(ctx context.Context, co *coordinator.Coordinator, timeout time.Duration) (common.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var spin *ui.Spinner
	unsubscribe := co.Subscribe(func(st coordinator.State) {
		if spin == nil && st.Submission == coordinator.Submitting && st.LastTxHash != (common.Hash{}) {
			spin = ui.NewSpinner("Mining " + st.LastTxHash.Hex()[:18] + "...")
			spin.Start()
		}
	})
	hash, err := co.Send(ctx)
	unsubscribe()
	if spin != nil {
		spin.Stop()
	}
	return hash, err
}

// fiatValue prices amount when fiat_currency is set and the network is a
// public one. Lookup failures only hide the line.
func fiatValue(ctx context.Context, s *session, amount string) (string, bool) {
	if cfg.FiatCurrency == "" || s.network.Explorer == "" {
		return "", false
	}
	wei, err := units.ParseEther(amount)
	if err != nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	f := price.NewFetcher(cfg.FiatCurrency)
	v, err := f.Value(ctx, s.network.NativeCurrency, wei)
	if err != nil {
		logger.Debug("price lookup failed", "err", err)
		return "", false
	}
	return fmt.Sprintf("≈ %.2f %s", v, strings.ToUpper(f.Currency())), true
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address or ENS name")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount in ETH, e.g. 0.01")
	sendCmd.Flags().StringVar(&sendKeyword, "keyword", "", "keyword stored with the transfer")
	sendCmd.Flags().StringVar(&sendMessage, "message", "", "message stored with the transfer")
	sendCmd.Flags().BoolVarP(&sendYes, "yes", "y", false, "skip the confirmation prompt")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
}
