package types

import (
	"sort"
	"strings"
)

// Kind identifies a logical market-data operation. Each kind gets its own
// cache TTL, configured at startup.
type Kind string

const (
	KindPrice        Kind = "price"
	KindTicker       Kind = "ticker"
	KindOrderBook    Kind = "book"
	KindOHLCV        Kind = "ohlcv"
	KindTickers      Kind = "tickers"
	KindMarkets      Kind = "markets"
	KindExchangeInfo Kind = "exchange_info"
)

// Descriptor identifies one logical data request: what to fetch, for which
// trading pair, from which exchange. Two descriptors with the same fields are
// the same request and share a cache entry.
type Descriptor struct {
	Kind     Kind
	Exchange string
	Symbol   string            // trading pair, e.g. BTC/USDT; empty for exchange-wide kinds
	Params   map[string]string // extra parameters, e.g. timeframe/limit for ohlcv
}

// CacheKey derives a deterministic cache key from the descriptor. Symbols are
// upper-cased and params are sorted so equal requests always collide and
// different requests practically never do.
func (d Descriptor) CacheKey() string {
	var b strings.Builder
	b.WriteString(string(d.Kind))
	b.WriteByte(':')
	b.WriteString(strings.ToLower(d.Exchange))

	if d.Symbol != "" {
		b.WriteByte(':')
		b.WriteString(strings.ToUpper(d.Symbol))
	}

	if len(d.Params) > 0 {
		keys := make([]string, 0, len(d.Params))
		for k := range d.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			b.WriteByte(':')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(d.Params[k])
		}
	}

	return b.String()
}

// Param returns the named parameter or fallback when absent.
func (d Descriptor) Param(name, fallback string) string {
	if v, ok := d.Params[name]; ok && v != "" {
		return v
	}

	return fallback
}
