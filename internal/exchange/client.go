// Package exchange provides REST clients for public cryptocurrency market
// data. Every client maps upstream failures onto the shared error taxonomy so
// the retry policy can classify them without knowing exchange specifics.
package exchange

import (
	"context"
	"sort"

	"github.com/mselser95/crypto-mcp/pkg/types"
)

// Client fetches market data from one exchange.
type Client interface {
	// Name returns the exchange identifier, e.g. "binance".
	Name() string

	// FetchTicker fetches the current ticker for a trading pair.
	FetchTicker(ctx context.Context, symbol string) (*types.Ticker, error)

	// FetchTickers fetches tickers for every trading pair in one call.
	FetchTickers(ctx context.Context) ([]types.Ticker, error)

	// FetchOrderBook fetches bid/ask depth for a trading pair.
	FetchOrderBook(ctx context.Context, symbol string, limit int) (*types.OrderBook, error)

	// FetchCandles fetches OHLCV bars for a trading pair.
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error)

	// ListSymbols lists trading pairs available on the exchange.
	ListSymbols(ctx context.Context) ([]string, error)
}

// Registry maps exchange identifiers to their clients.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates a registry from the given clients.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.Name()] = c
	}

	return r
}

// Get returns the client for an exchange id. Unknown exchanges are a caller
// mistake, reported as an InvalidRequestError.
func (r *Registry) Get(exchange string) (Client, error) {
	c, ok := r.clients[exchange]
	if !ok {
		return nil, &types.InvalidRequestError{
			Field:  "exchange",
			Value:  exchange,
			Reason: "unsupported exchange",
		}
	}

	return c, nil
}

// Names returns the supported exchange ids, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
