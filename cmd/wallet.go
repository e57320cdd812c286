package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Mohsinsiddi/w3transfer/internal/config"
	"github.com/Mohsinsiddi/w3transfer/internal/ui"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var walletKeyFlag string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the local signing key used by the keyring provider",
}

var walletImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a private key into the OS keychain",
	Long: `Import a hex private key into the OS keychain. The key is read from the
terminal without echo, or from stdin when piped. --key is accepted for
scripts but leaves the key in your shell history.

$` + wallet.KeyEnvVar + ` overrides the keychain entirely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		hexKey := walletKeyFlag
		if hexKey == "" {
			var err error
			if hexKey, err = readSecret("Private key: "); err != nil {
				return err
			}
		}

		addr, err := wallet.DefaultKeystore(cfg.KeysDir()).Import(hexKey)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success("Signing key imported: " + ui.Addr(wallet.Lower(addr))))
		if cfg.Provider != config.ProviderKeyring {
			fmt.Println(ui.Hint("Use it with: w3transfer config set provider keyring"))
		}
		return nil
	},
}

var walletAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show the address of the stored key",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := wallet.DefaultKeystore(cfg.KeysDir()).Address()
		if err != nil {
			fmt.Println(ui.Info("No signing key imported."))
			fmt.Println(ui.Hint("Import one with: w3transfer wallet import"))
			return nil
		}
		fmt.Println(ui.Addr(wallet.Lower(addr)))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete the stored key and forget connection grants",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.Confirm("Remove the signing key from the keychain?") {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		if err := wallet.DefaultKeystore(cfg.KeysDir()).Remove(); err != nil {
			return err
		}
		if err := wallet.NewFileGrants(cfg.GrantsPath()).Revoke(); err != nil {
			return err
		}
		fmt.Println(ui.Success("Signing key removed."))
		return nil
	},
}

// readSecret reads one line from the terminal without echo, or from stdin
// when it is not a terminal.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading key from stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	walletImportCmd.Flags().StringVar(&walletKeyFlag, "key", "", "hex private key")
	walletCmd.AddCommand(walletImportCmd, walletAddressCmd, walletRemoveCmd)
}
