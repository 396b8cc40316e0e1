package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/crypto-mcp/internal/app"
	"github.com/mselser95/crypto-mcp/internal/tools"
	"github.com/mselser95/crypto-mcp/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var priceCmd = &cobra.Command{
	Use:   "price SYMBOL",
	Short: "Fetch the current price for a trading pair",
	Long: `Fetches the current price for a trading pair, e.g.:

  crypto-mcp price BTC/USDT
  crypto-mcp price ETH/USDT --exchange kraken`,
	Args: cobra.ExactArgs(1),
	RunE: runPrice,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(priceCmd)
	priceCmd.Flags().StringP("exchange", "e", "binance", "Exchange to query")
}

func runPrice(cmd *cobra.Command, args []string) error {
	exchange, _ := cmd.Flags().GetString("exchange")

	service, cleanup, err := oneShotService()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := service.GetPrice(ctx, args[0], exchange)
	if err != nil {
		return fmt.Errorf("get price: %w", err)
	}

	return printJSON(result)
}

// oneShotService builds a tool service for single-command use. Logging stays
// off unless LOG_LEVEL=debug so command output remains clean JSON.
func oneShotService() (service *tools.Service, cleanup func(), err error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := zap.NewNop()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger, err = config.NewLogger()
		if err != nil {
			return nil, nil, fmt.Errorf("create logger: %w", err)
		}
	}

	return app.NewToolService(cfg, logger)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	fmt.Println(string(out))

	return nil
}
