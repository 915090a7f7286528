package cmd

import (
	"fmt"
	"math/big"

	"github.com/defistate/pool-factory-go/safecast"
	"github.com/spf13/cobra"
)

var castBits uint

var castCmd = &cobra.Command{
	Use:   "cast VALUE",
	Short: "Narrow a 256-bit value to a smaller width",
	Long: `Checks that VALUE (decimal or 0x-prefixed hex) fits in --bits bits and prints it.
Valid widths are the multiples of 8 from 8 to 248.`,
	Args: cobra.ExactArgs(1),
	RunE: runCast,
}

func init() {
	castCmd.Flags().UintVarP(&castBits, "bits", "b", 128, "target width in bits")
}

func runCast(cmd *cobra.Command, args []string) error {
	b, ok := new(big.Int).SetString(args[0], 0)
	if !ok {
		return fmt.Errorf("invalid integer %q", args[0])
	}
	x, err := safecast.FromBig(b)
	if err != nil {
		return err
	}
	narrowed, err := safecast.Narrow(x, safecast.Width(castBits))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), narrowed.Dec())
	return nil
}
