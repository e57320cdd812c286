package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/w3transfer/internal/ui"
	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <amount> [unit]",
	Short: "Convert between ETH, Gwei and Wei exactly",
	Long: `Convert an amount between Ethereum denominations. Conversions are exact:
an ETH amount with more than 18 decimal places is rejected, never rounded.

Units: eth, gwei, wei (default: eth)

Examples:
  w3transfer convert 1.5            # → gwei + wei
  w3transfer convert 50 gwei        # → eth + wei
  w3transfer convert 1000000000 wei # → eth + gwei`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit := "eth"
		if len(args) > 1 {
			unit = args[1]
		}
		pairs, err := conversion(args[0], unit)
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Unit Conversion", pairs))
		return nil
	},
}

// conversion parses amount in unit and renders it in every denomination.
func conversion(amount, unit string) ([][2]string, error) {
	var (
		wei *big.Int
		err error
	)
	switch strings.ToLower(unit) {
	case "eth", "ether":
		wei, err = units.ParseEther(amount)
	case "gwei":
		wei, err = units.ParseGwei(amount)
	case "wei":
		wei, err = units.ParseUnits(amount, 0)
	default:
		return nil, fmt.Errorf("unknown unit %q, use eth, gwei or wei", unit)
	}
	if err != nil {
		return nil, err
	}

	return [][2]string{
		{"ETH", units.FormatEther(wei)},
		{"Gwei", units.FormatUnits(wei, units.GweiDecimals)},
		{"Wei", wei.String()},
		{"Hex", "0x" + wei.Text(16)},
	}, nil
}
