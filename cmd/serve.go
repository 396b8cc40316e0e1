package cmd

import (
	"fmt"

	"github.com/mselser95/crypto-mcp/internal/app"
	"github.com/mselser95/crypto-mcp/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the market data server",
	Long: `Starts the crypto-mcp server, exposing:
  POST /tools/call  tool invocations (get_price, get_order_book, ...)
  GET  /tools       available tool names
  GET  /metrics     Prometheus metrics
  GET  /health      liveness probe
  GET  /ready       readiness probe`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
