package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var compareCmd = &cobra.Command{
	Use:   "compare SYMBOL",
	Short: "Compare a pair's price across exchanges",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompare,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringSliceP("exchanges", "e", nil, "Exchanges to compare (default: all)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	exchanges, _ := cmd.Flags().GetStringSlice("exchanges")

	service, cleanup, err := oneShotService()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := service.ComparePrices(ctx, args[0], exchanges)
	if err != nil {
		return fmt.Errorf("compare prices: %w", err)
	}

	return printJSON(result)
}
