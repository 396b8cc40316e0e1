package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var candlesCmd = &cobra.Command{
	Use:   "candles SYMBOL",
	Short: "Fetch OHLCV candles for a trading pair",
	Args:  cobra.ExactArgs(1),
	RunE:  runCandles,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(candlesCmd)
	candlesCmd.Flags().StringP("exchange", "e", "binance", "Exchange to query")
	candlesCmd.Flags().StringP("timeframe", "t", "1h", "Candle timeframe (1m, 5m, 1h, 1d, ...)")
	candlesCmd.Flags().IntP("limit", "l", 100, "Number of candles")
}

func runCandles(cmd *cobra.Command, args []string) error {
	exchange, _ := cmd.Flags().GetString("exchange")
	timeframe, _ := cmd.Flags().GetString("timeframe")
	limit, _ := cmd.Flags().GetInt("limit")

	service, cleanup, err := oneShotService()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	candles, err := service.GetCandles(ctx, args[0], exchange, timeframe, limit)
	if err != nil {
		return fmt.Errorf("get candles: %w", err)
	}

	return printJSON(candles)
}
