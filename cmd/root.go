package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "crypto-mcp",
	Short: "Cryptocurrency market data tool server",
	Long: `crypto-mcp serves cryptocurrency market data (prices, order books,
OHLCV candles, cross-exchange comparisons) through a tool-style JSON
request/response API.

Every fetch passes through a shared pipeline: a TTL in-memory cache with
hit/miss accounting, a per-exchange token-bucket rate limiter, and an
exponential-backoff retry policy for transient upstream failures.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env; environment variables win.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
