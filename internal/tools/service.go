// Package tools implements the market-data tool surface: each tool resolves
// caller parameters into pipeline fetches and shapes the result for the
// response envelope.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mselser95/crypto-mcp/internal/exchange"
	"github.com/mselser95/crypto-mcp/internal/pipeline"
	"github.com/mselser95/crypto-mcp/pkg/cache"
	"github.com/mselser95/crypto-mcp/pkg/ratelimit"
	"github.com/mselser95/crypto-mcp/pkg/types"
	"go.uber.org/zap"
)

// Service exposes the market-data tools. Every fetch goes through the
// pipeline; the service never calls an exchange client directly outside it.
type Service struct {
	pipeline *pipeline.Pipeline
	registry *exchange.Registry
	logger   *zap.Logger
}

// NewService creates the tool service.
func NewService(p *pipeline.Pipeline, registry *exchange.Registry, logger *zap.Logger) *Service {
	return &Service{
		pipeline: p,
		registry: registry,
		logger:   logger,
	}
}

// PriceResult is the get_price payload.
type PriceResult struct {
	Symbol    string  `json:"symbol"`
	Exchange  string  `json:"exchange"`
	Price     float64 `json:"price"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Spread    float64 `json:"spread"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

// GetPrice returns the current price for a trading pair.
func (s *Service) GetPrice(ctx context.Context, symbol, exch string) (*PriceResult, error) {
	ticker, err := s.fetchTicker(ctx, symbol, exch)
	if err != nil {
		return nil, err
	}

	return &PriceResult{
		Symbol:    ticker.Symbol,
		Exchange:  ticker.Exchange,
		Price:     ticker.Price,
		Bid:       ticker.Bid,
		Ask:       ticker.Ask,
		Spread:    ticker.Spread(),
		High:      ticker.High,
		Low:       ticker.Low,
		Volume:    ticker.Volume,
		Timestamp: ticker.Timestamp,
	}, nil
}

// SummaryResult is the get_market_summary payload.
type SummaryResult struct {
	Ticker    *types.Ticker    `json:"ticker"`
	BestBid   types.PriceLevel `json:"best_bid"`
	BestAsk   types.PriceLevel `json:"best_ask"`
	BidVolume float64          `json:"bid_volume"`
	AskVolume float64          `json:"ask_volume"`
}

// GetMarketSummary returns a combined ticker and top-of-book view.
func (s *Service) GetMarketSummary(ctx context.Context, symbol, exch string) (*SummaryResult, error) {
	ticker, err := s.fetchTicker(ctx, symbol, exch)
	if err != nil {
		return nil, err
	}

	book, err := s.GetOrderBook(ctx, symbol, exch, 5)
	if err != nil {
		return nil, err
	}

	return &SummaryResult{
		Ticker:    ticker,
		BestBid:   book.BestBid(),
		BestAsk:   book.BestAsk(),
		BidVolume: book.BestBid().Size,
		AskVolume: book.BestAsk().Size,
	}, nil
}

// GetOrderBook returns bid/ask depth for a trading pair.
func (s *Service) GetOrderBook(ctx context.Context, symbol, exch string, limit int) (*types.OrderBook, error) {
	client, err := s.registry.Get(exch)
	if err != nil {
		return nil, err
	}

	desc := types.Descriptor{
		Kind:     types.KindOrderBook,
		Exchange: exch,
		Symbol:   symbol,
		Params:   map[string]string{"limit": fmt.Sprintf("%d", limit)},
	}

	value, err := s.pipeline.Fetch(ctx, desc, func(ctx context.Context) (interface{}, error) {
		return client.FetchOrderBook(ctx, symbol, limit)
	})
	if err != nil {
		return nil, err
	}

	return value.(*types.OrderBook), nil
}

// GetCandles returns OHLCV bars for a trading pair.
func (s *Service) GetCandles(ctx context.Context, symbol, exch, timeframe string, limit int) ([]types.Candle, error) {
	client, err := s.registry.Get(exch)
	if err != nil {
		return nil, err
	}

	desc := types.Descriptor{
		Kind:     types.KindOHLCV,
		Exchange: exch,
		Symbol:   symbol,
		Params: map[string]string{
			"timeframe": timeframe,
			"limit":     fmt.Sprintf("%d", limit),
		},
	}

	value, err := s.pipeline.Fetch(ctx, desc, func(ctx context.Context) (interface{}, error) {
		return client.FetchCandles(ctx, symbol, timeframe, limit)
	})
	if err != nil {
		return nil, err
	}

	return value.([]types.Candle), nil
}

// ComparisonResult is the compare_prices payload. Exchanges that failed are
// reported alongside the ones that answered instead of failing the whole
// comparison.
type ComparisonResult struct {
	Symbol  string             `json:"symbol"`
	Prices  map[string]float64 `json:"prices"`
	Errors  map[string]string  `json:"errors,omitempty"`
	Lowest  string             `json:"lowest,omitempty"`
	Highest string             `json:"highest,omitempty"`
	Spread  float64            `json:"spread"`
}

// ComparePrices fans out a price fetch across exchanges. A nil or empty
// exchange list means all supported exchanges.
func (s *Service) ComparePrices(ctx context.Context, symbol string, exchanges []string) (*ComparisonResult, error) {
	if len(exchanges) == 0 {
		exchanges = s.registry.Names()
	}

	result := &ComparisonResult{
		Symbol: strings.ToUpper(symbol),
		Prices: make(map[string]float64, len(exchanges)),
		Errors: make(map[string]string),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, exch := range exchanges {
		wg.Add(1)
		go func(exch string) {
			defer wg.Done()

			ticker, err := s.fetchTicker(ctx, symbol, exch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[exch] = err.Error()

				return
			}
			result.Prices[exch] = ticker.Price
		}(exch)
	}
	wg.Wait()

	if len(result.Prices) == 0 {
		return nil, fmt.Errorf("no exchange returned a price for %s", symbol)
	}

	for exch, price := range result.Prices {
		if result.Lowest == "" || price < result.Prices[result.Lowest] {
			result.Lowest = exch
		}
		if result.Highest == "" || price > result.Prices[result.Highest] {
			result.Highest = exch
		}
	}
	result.Spread = result.Prices[result.Highest] - result.Prices[result.Lowest]

	if len(result.Errors) == 0 {
		result.Errors = nil
	}

	return result, nil
}

// TopVolumeEntry is one pair in the get_top_volumes ranking.
type TopVolumeEntry struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Volume        float64 `json:"volume"`
	ChangePercent float64 `json:"change_24h"`
}

// TopVolumesResult is the get_top_volumes payload.
type TopVolumesResult struct {
	Exchange     string           `json:"exchange"`
	Limit        int              `json:"limit"`
	Pairs        []TopVolumeEntry `json:"top_pairs"`
	TotalSymbols int              `json:"total_symbols"`
}

// GetTopVolumes ranks trading pairs by 24h quote volume. The whole market
// comes back in one upstream call and is cached as a unit, so repeated
// rankings with different limits share the same entry.
func (s *Service) GetTopVolumes(ctx context.Context, exch string, limit int) (*TopVolumesResult, error) {
	if limit <= 0 {
		limit = 10
	}

	tickers, err := s.fetchTickers(ctx, exch)
	if err != nil {
		return nil, err
	}

	ranked := make([]types.Ticker, len(tickers))
	copy(ranked, tickers)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Volume > ranked[j].Volume
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	pairs := make([]TopVolumeEntry, 0, len(ranked))
	for _, t := range ranked {
		pairs = append(pairs, TopVolumeEntry{
			Symbol:        t.Symbol,
			Price:         t.Price,
			Volume:        t.Volume,
			ChangePercent: t.ChangePercent,
		})
	}

	return &TopVolumesResult{
		Exchange:     exch,
		Limit:        limit,
		Pairs:        pairs,
		TotalSymbols: len(tickers),
	}, nil
}

// periodWindows maps a change period to the candle timeframe and bar count
// that cover it.
var periodWindows = map[string]struct {
	timeframe string
	bars      int
}{
	"1h":  {"1m", 60},
	"4h":  {"5m", 48},
	"24h": {"1h", 24},
	"7d":  {"1d", 7},
	"30d": {"1d", 30},
}

// PriceChangeResult is the get_price_change payload.
type PriceChangeResult struct {
	Symbol        string  `json:"symbol"`
	Exchange      string  `json:"exchange"`
	Period        string  `json:"period"`
	Open          float64 `json:"open"`
	Close         float64 `json:"close"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Candles       int     `json:"candles"`
}

// GetPriceChange computes the price move over a period from its candles.
func (s *Service) GetPriceChange(ctx context.Context, symbol, exch, period string) (*PriceChangeResult, error) {
	window, ok := periodWindows[period]
	if !ok {
		return nil, &types.InvalidRequestError{
			Exchange: exch,
			Field:    "period",
			Value:    period,
			Reason:   "supported periods: 1h, 4h, 24h, 7d, 30d",
		}
	}

	candles, err := s.GetCandles(ctx, symbol, exch, window.timeframe, window.bars)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles returned for %s on %s", symbol, exch)
	}

	result := &PriceChangeResult{
		Symbol:   strings.ToUpper(symbol),
		Exchange: exch,
		Period:   period,
		Open:     candles[0].Open,
		Close:    candles[len(candles)-1].Close,
		High:     candles[0].High,
		Low:      candles[0].Low,
		Candles:  len(candles),
	}
	for _, c := range candles {
		if c.High > result.High {
			result.High = c.High
		}
		if c.Low < result.Low {
			result.Low = c.Low
		}
	}

	result.Change = result.Close - result.Open
	if result.Open > 0 {
		result.ChangePercent = result.Change / result.Open * 100
	}

	return result, nil
}

// VolumePoint is one bar in a volume history.
type VolumePoint struct {
	Timestamp int64   `json:"timestamp"`
	Volume    float64 `json:"volume"`
}

// VolumeHistoryResult is the get_volume_history payload.
type VolumeHistoryResult struct {
	Symbol    string        `json:"symbol"`
	Exchange  string        `json:"exchange"`
	Timeframe string        `json:"timeframe"`
	Points    []VolumePoint `json:"points"`
	Total     float64       `json:"total_volume"`
	Average   float64       `json:"average_volume"`
}

// GetVolumeHistory returns per-bar traded volume for a trading pair.
func (s *Service) GetVolumeHistory(ctx context.Context, symbol, exch, timeframe string, limit int) (*VolumeHistoryResult, error) {
	candles, err := s.GetCandles(ctx, symbol, exch, timeframe, limit)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles returned for %s on %s", symbol, exch)
	}

	result := &VolumeHistoryResult{
		Symbol:    strings.ToUpper(symbol),
		Exchange:  exch,
		Timeframe: timeframe,
		Points:    make([]VolumePoint, 0, len(candles)),
	}
	for _, c := range candles {
		result.Points = append(result.Points, VolumePoint{Timestamp: c.Timestamp, Volume: c.Volume})
		result.Total += c.Volume
	}
	result.Average = result.Total / float64(len(candles))

	return result, nil
}

// MovingAverageResult is the get_moving_average payload.
type MovingAverageResult struct {
	Symbol    string  `json:"symbol"`
	Exchange  string  `json:"exchange"`
	Timeframe string  `json:"timeframe"`
	Period    int     `json:"period"`
	Average   float64 `json:"average"`
	Price     float64 `json:"price"`
	Position  string  `json:"position"`
}

// GetMovingAverage computes a simple moving average of closes over the last
// period bars and tells whether the latest close sits above or below it.
func (s *Service) GetMovingAverage(ctx context.Context, symbol, exch, timeframe string, period int) (*MovingAverageResult, error) {
	if period <= 0 {
		period = 20
	}

	candles, err := s.GetCandles(ctx, symbol, exch, timeframe, period)
	if err != nil {
		return nil, err
	}
	if len(candles) < period {
		return nil, &types.InvalidRequestError{
			Exchange: exch,
			Field:    "period",
			Value:    strconv.Itoa(period),
			Reason:   fmt.Sprintf("only %d candles of history available", len(candles)),
		}
	}

	window := candles[len(candles)-period:]

	var sum float64
	for _, c := range window {
		sum += c.Close
	}

	result := &MovingAverageResult{
		Symbol:    strings.ToUpper(symbol),
		Exchange:  exch,
		Timeframe: timeframe,
		Period:    period,
		Average:   sum / float64(period),
		Price:     window[len(window)-1].Close,
	}

	switch {
	case result.Price > result.Average:
		result.Position = "above"
	case result.Price < result.Average:
		result.Position = "below"
	default:
		result.Position = "at"
	}

	return result, nil
}

// ListExchanges returns the supported exchange ids.
func (s *Service) ListExchanges() []string {
	return s.registry.Names()
}

// StatsResult is the cache_stats payload: cache counters plus per-exchange
// rate limiter snapshots.
type StatsResult struct {
	Cache    cache.Stats                      `json:"cache"`
	HitRate  string                           `json:"hit_rate"`
	Limiters map[string]ratelimit.BucketStats `json:"rate_limiters"`
}

// Stats reports cache and rate limiter counters for introspection.
func (s *Service) Stats() *StatsResult {
	stats := s.pipeline.CacheStats()

	return &StatsResult{
		Cache:    stats,
		HitRate:  fmt.Sprintf("%.2f%%", stats.HitRate()),
		Limiters: s.pipeline.LimiterStats(),
	}
}

func (s *Service) fetchTicker(ctx context.Context, symbol, exch string) (*types.Ticker, error) {
	client, err := s.registry.Get(exch)
	if err != nil {
		return nil, err
	}

	desc := types.Descriptor{
		Kind:     types.KindTicker,
		Exchange: exch,
		Symbol:   symbol,
	}

	value, err := s.pipeline.Fetch(ctx, desc, func(ctx context.Context) (interface{}, error) {
		return client.FetchTicker(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}

	return value.(*types.Ticker), nil
}

func (s *Service) fetchTickers(ctx context.Context, exch string) ([]types.Ticker, error) {
	client, err := s.registry.Get(exch)
	if err != nil {
		return nil, err
	}

	desc := types.Descriptor{
		Kind:     types.KindTickers,
		Exchange: exch,
	}

	value, err := s.pipeline.Fetch(ctx, desc, func(ctx context.Context) (interface{}, error) {
		return client.FetchTickers(ctx)
	})
	if err != nil {
		return nil, err
	}

	return value.([]types.Ticker), nil
}
