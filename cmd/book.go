package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var bookCmd = &cobra.Command{
	Use:   "book SYMBOL",
	Short: "Fetch the order book for a trading pair",
	Args:  cobra.ExactArgs(1),
	RunE:  runBook,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(bookCmd)
	bookCmd.Flags().StringP("exchange", "e", "binance", "Exchange to query")
	bookCmd.Flags().IntP("limit", "l", 20, "Number of levels per side")
}

func runBook(cmd *cobra.Command, args []string) error {
	exchange, _ := cmd.Flags().GetString("exchange")
	limit, _ := cmd.Flags().GetInt("limit")

	service, cleanup, err := oneShotService()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	book, err := service.GetOrderBook(ctx, args[0], exchange, limit)
	if err != nil {
		return fmt.Errorf("get order book: %w", err)
	}

	return printJSON(book)
}
