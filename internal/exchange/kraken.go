package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mselser95/crypto-mcp/pkg/types"
	"go.uber.org/zap"
)

const krakenBaseURL = "https://api.kraken.com"

// krakenAssets maps common asset codes to Kraken's legacy names.
var krakenAssets = map[string]string{
	"BTC":  "XBT",
	"DOGE": "XDG",
}

// krakenIntervals maps timeframe strings to Kraken's interval minutes.
var krakenIntervals = map[string]int{
	"1m":  1,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1h":  60,
	"4h":  240,
	"1d":  1440,
	"1w":  10080,
}

// KrakenClient fetches public market data from the Kraken REST API.
type KrakenClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewKrakenClient creates a Kraken market-data client.
func NewKrakenClient(logger *zap.Logger) *KrakenClient {
	return &KrakenClient{
		baseURL:    krakenBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Name returns the exchange identifier.
func (c *KrakenClient) Name() string { return "kraken" }

// krakenPair converts "BTC/USDT" to Kraken's "XBTUSDT" form.
func krakenPair(symbol string) (string, error) {
	parts := strings.Split(strings.ToUpper(symbol), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", &types.InvalidRequestError{
			Exchange: "kraken",
			Field:    "symbol",
			Value:    symbol,
			Reason:   "expected BASE/QUOTE format",
		}
	}

	for i, p := range parts {
		if mapped, ok := krakenAssets[p]; ok {
			parts[i] = mapped
		}
	}

	return parts[0] + parts[1], nil
}

// krakenEnvelope is Kraken's uniform response wrapper. Errors arrive in the
// error array even on HTTP 200.
type krakenEnvelope struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// classifyKrakenError maps Kraken's E-prefixed error strings onto the taxonomy.
func classifyKrakenError(op, symbol string, msgs []string) error {
	msg := strings.Join(msgs, "; ")
	err := fmt.Errorf("%s: %s", op, msg)

	switch {
	case strings.Contains(msg, "Rate limit"), strings.Contains(msg, "Too many requests"):
		return &types.UpstreamRateLimitError{Exchange: "kraken", Err: err}
	case strings.Contains(msg, "Unknown asset pair"), strings.Contains(msg, "Invalid arguments"):
		return &types.InvalidRequestError{
			Exchange: "kraken",
			Field:    "symbol",
			Value:    symbol,
			Reason:   msg,
		}
	case strings.Contains(msg, "Invalid key"), strings.Contains(msg, "Permission denied"):
		return &types.AuthError{Exchange: "kraken", Err: err}
	default:
		return &types.TransientError{Exchange: "kraken", Op: op, Err: err}
	}
}

func (c *KrakenClient) get(ctx context.Context, op, symbol, path string, query url.Values) (map[string]json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	RequestDuration.WithLabelValues("kraken", op).Observe(time.Since(start).Seconds())

	if err != nil {
		RequestErrorsTotal.WithLabelValues("kraken", op).Inc()

		return nil, classifyTransport("kraken", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		RequestErrorsTotal.WithLabelValues("kraken", op).Inc()

		return nil, classifyStatus("kraken", op, symbol, resp)
	}

	var envelope krakenEnvelope
	err = json.NewDecoder(resp.Body).Decode(&envelope)
	if err != nil {
		RequestErrorsTotal.WithLabelValues("kraken", op).Inc()

		return nil, &types.TransientError{
			Exchange: "kraken",
			Op:       op,
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}

	if len(envelope.Error) > 0 {
		RequestErrorsTotal.WithLabelValues("kraken", op).Inc()

		return nil, classifyKrakenError(op, symbol, envelope.Error)
	}

	return envelope.Result, nil
}

// pairResult extracts the single pair entry from a Kraken result map,
// skipping bookkeeping keys like "last".
func pairResult(result map[string]json.RawMessage) (json.RawMessage, error) {
	for key, raw := range result {
		if key == "last" {
			continue
		}

		return raw, nil
	}

	return nil, fmt.Errorf("empty result")
}

// FetchTicker fetches the current ticker for a trading pair.
func (c *KrakenClient) FetchTicker(ctx context.Context, symbol string) (*types.Ticker, error) {
	pair, err := krakenPair(symbol)
	if err != nil {
		return nil, err
	}

	result, err := c.get(ctx, "fetch_ticker", symbol, "/0/public/Ticker", url.Values{"pair": {pair}})
	if err != nil {
		return nil, err
	}

	raw, err := pairResult(result)
	if err != nil {
		return nil, &types.TransientError{Exchange: "kraken", Op: "fetch_ticker", Err: err}
	}

	return decodeKrakenTicker(symbol, raw)
}

// FetchTickers fetches tickers for every pair in one call. The Ticker endpoint
// returns the whole market when no pair is given; entries are keyed by
// Kraken's pair name.
func (c *KrakenClient) FetchTickers(ctx context.Context) ([]types.Ticker, error) {
	result, err := c.get(ctx, "fetch_tickers", "", "/0/public/Ticker", nil)
	if err != nil {
		return nil, err
	}

	tickers := make([]types.Ticker, 0, len(result))
	for name, raw := range result {
		if name == "last" {
			continue
		}
		t, err := decodeKrakenTicker(name, raw)
		if err != nil {
			continue
		}
		tickers = append(tickers, *t)
	}

	return tickers, nil
}

// decodeKrakenTicker maps Kraken's array-slot ticker fields onto a Ticker.
func decodeKrakenTicker(symbol string, raw json.RawMessage) (*types.Ticker, error) {
	var data struct {
		Ask    []string `json:"a"` // [price, whole lot volume, lot volume]
		Bid    []string `json:"b"`
		Last   []string `json:"c"` // [price, lot volume]
		Volume []string `json:"v"` // [today, last 24h]
		High   []string `json:"h"`
		Low    []string `json:"l"`
		Open   string   `json:"o"`
	}
	err := json.Unmarshal(raw, &data)
	if err != nil {
		return nil, &types.TransientError{
			Exchange: "kraken",
			Op:       "fetch_ticker",
			Err:      fmt.Errorf("decode ticker: %w", err),
		}
	}

	t := &types.Ticker{
		Symbol:    strings.ToUpper(symbol),
		Exchange:  "kraken",
		Open:      parseFloat(data.Open),
		Timestamp: time.Now().UnixMilli(),
	}
	if len(data.Last) > 0 {
		t.Price = parseFloat(data.Last[0])
	}
	if len(data.Bid) > 0 {
		t.Bid = parseFloat(data.Bid[0])
	}
	if len(data.Ask) > 0 {
		t.Ask = parseFloat(data.Ask[0])
	}
	if len(data.High) > 1 {
		t.High = parseFloat(data.High[1])
	}
	if len(data.Low) > 1 {
		t.Low = parseFloat(data.Low[1])
	}
	if len(data.Volume) > 1 {
		t.BaseVolume = parseFloat(data.Volume[1])
		t.Volume = t.BaseVolume * t.Price
	}
	if t.Open > 0 {
		t.Change = t.Price - t.Open
		t.ChangePercent = t.Change / t.Open * 100
	}

	return t, nil
}

// FetchOrderBook fetches bid/ask depth for a trading pair.
func (c *KrakenClient) FetchOrderBook(ctx context.Context, symbol string, limit int) (*types.OrderBook, error) {
	pair, err := krakenPair(symbol)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 20
	}

	query := url.Values{
		"pair":  {pair},
		"count": {strconv.Itoa(limit)},
	}
	result, err := c.get(ctx, "fetch_order_book", symbol, "/0/public/Depth", query)
	if err != nil {
		return nil, err
	}

	raw, err := pairResult(result)
	if err != nil {
		return nil, &types.TransientError{Exchange: "kraken", Op: "fetch_order_book", Err: err}
	}

	// Depth levels are [price, volume, timestamp] with mixed types.
	var data struct {
		Bids [][]interface{} `json:"bids"`
		Asks [][]interface{} `json:"asks"`
	}
	err = json.Unmarshal(raw, &data)
	if err != nil {
		return nil, &types.TransientError{
			Exchange: "kraken",
			Op:       "fetch_order_book",
			Err:      fmt.Errorf("decode depth: %w", err),
		}
	}

	return &types.OrderBook{
		Symbol:    strings.ToUpper(symbol),
		Exchange:  "kraken",
		Bids:      parseMixedLevels(data.Bids),
		Asks:      parseMixedLevels(data.Asks),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// FetchCandles fetches OHLCV bars. Kraken rows are
// [time, open, high, low, close, vwap, volume, count].
func (c *KrakenClient) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	pair, err := krakenPair(symbol)
	if err != nil {
		return nil, err
	}

	if timeframe == "" {
		timeframe = "1h"
	}

	interval, ok := krakenIntervals[timeframe]
	if !ok {
		return nil, &types.InvalidRequestError{
			Exchange: "kraken",
			Field:    "timeframe",
			Value:    timeframe,
			Reason:   "unsupported timeframe",
		}
	}

	query := url.Values{
		"pair":     {pair},
		"interval": {strconv.Itoa(interval)},
	}
	result, err := c.get(ctx, "fetch_candles", symbol, "/0/public/OHLC", query)
	if err != nil {
		return nil, err
	}

	raw, err := pairResult(result)
	if err != nil {
		return nil, &types.TransientError{Exchange: "kraken", Op: "fetch_candles", Err: err}
	}

	var rows [][]interface{}
	err = json.Unmarshal(raw, &rows)
	if err != nil {
		return nil, &types.TransientError{
			Exchange: "kraken",
			Op:       "fetch_candles",
			Err:      fmt.Errorf("decode ohlc: %w", err),
		}
	}

	candles := make([]types.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		candles = append(candles, types.Candle{
			Timestamp: int64(toFloat(row[0])) * 1000, // Kraken uses seconds
			Open:      toFloat(row[1]),
			High:      toFloat(row[2]),
			Low:       toFloat(row[3]),
			Close:     toFloat(row[4]),
			Volume:    toFloat(row[6]),
		})
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, nil
}

// ListSymbols lists trading pairs available on Kraken, in wsname BASE/QUOTE
// form where the exchange provides one.
func (c *KrakenClient) ListSymbols(ctx context.Context) ([]string, error) {
	result, err := c.get(ctx, "list_symbols", "", "/0/public/AssetPairs", nil)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(result))
	for name, raw := range result {
		var pair struct {
			WSName string `json:"wsname"`
		}
		if json.Unmarshal(raw, &pair) == nil && pair.WSName != "" {
			symbols = append(symbols, pair.WSName)
			continue
		}
		symbols = append(symbols, name)
	}

	return symbols, nil
}

func parseMixedLevels(raw [][]interface{}) []types.PriceLevel {
	levels := make([]types.PriceLevel, 0, len(raw))
	for _, l := range raw {
		if len(l) < 2 {
			continue
		}
		levels = append(levels, types.PriceLevel{
			Price: toFloat(l[0]),
			Size:  toFloat(l[1]),
		})
	}

	return levels
}
