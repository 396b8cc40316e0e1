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

const binanceBaseURL = "https://api.binance.com"

// BinanceClient fetches public market data from the Binance REST API.
type BinanceClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBinanceClient creates a Binance market-data client.
func NewBinanceClient(logger *zap.Logger) *BinanceClient {
	return &BinanceClient{
		baseURL:    binanceBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Name returns the exchange identifier.
func (c *BinanceClient) Name() string { return "binance" }

// binanceSymbol converts "BTC/USDT" to Binance's "BTCUSDT" form.
func binanceSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
	if s == "" {
		return "", &types.InvalidRequestError{
			Exchange: "binance",
			Field:    "symbol",
			Value:    symbol,
			Reason:   "symbol cannot be empty",
		}
	}

	return s, nil
}

func (c *BinanceClient) get(ctx context.Context, op, symbol, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	RequestDuration.WithLabelValues("binance", op).Observe(time.Since(start).Seconds())

	if err != nil {
		RequestErrorsTotal.WithLabelValues("binance", op).Inc()

		return classifyTransport("binance", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		RequestErrorsTotal.WithLabelValues("binance", op).Inc()

		return classifyStatus("binance", op, symbol, resp)
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		RequestErrorsTotal.WithLabelValues("binance", op).Inc()

		return &types.TransientError{
			Exchange: "binance",
			Op:       op,
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}

	return nil
}

// FetchTicker fetches the 24h ticker for a trading pair.
func (c *BinanceClient) FetchTicker(ctx context.Context, symbol string) (*types.Ticker, error) {
	pair, err := binanceSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var data struct {
		LastPrice          string `json:"lastPrice"`
		BidPrice           string `json:"bidPrice"`
		AskPrice           string `json:"askPrice"`
		OpenPrice          string `json:"openPrice"`
		HighPrice          string `json:"highPrice"`
		LowPrice           string `json:"lowPrice"`
		Volume             string `json:"volume"`
		QuoteVolume        string `json:"quoteVolume"`
		PriceChange        string `json:"priceChange"`
		PriceChangePercent string `json:"priceChangePercent"`
		CloseTime          int64  `json:"closeTime"`
	}

	query := url.Values{"symbol": {pair}}
	err = c.get(ctx, "fetch_ticker", symbol, "/api/v3/ticker/24hr", query, &data)
	if err != nil {
		return nil, err
	}

	return &types.Ticker{
		Symbol:        strings.ToUpper(symbol),
		Exchange:      "binance",
		Price:         parseFloat(data.LastPrice),
		Bid:           parseFloat(data.BidPrice),
		Ask:           parseFloat(data.AskPrice),
		Open:          parseFloat(data.OpenPrice),
		High:          parseFloat(data.HighPrice),
		Low:           parseFloat(data.LowPrice),
		Volume:        parseFloat(data.QuoteVolume),
		BaseVolume:    parseFloat(data.Volume),
		Change:        parseFloat(data.PriceChange),
		ChangePercent: parseFloat(data.PriceChangePercent),
		Timestamp:     data.CloseTime,
	}, nil
}

// FetchTickers fetches 24h tickers for every pair in one call. Without a
// symbol parameter the 24hr endpoint returns the whole market.
func (c *BinanceClient) FetchTickers(ctx context.Context) ([]types.Ticker, error) {
	var data []struct {
		Symbol             string `json:"symbol"`
		LastPrice          string `json:"lastPrice"`
		BidPrice           string `json:"bidPrice"`
		AskPrice           string `json:"askPrice"`
		HighPrice          string `json:"highPrice"`
		LowPrice           string `json:"lowPrice"`
		Volume             string `json:"volume"`
		QuoteVolume        string `json:"quoteVolume"`
		PriceChangePercent string `json:"priceChangePercent"`
		CloseTime          int64  `json:"closeTime"`
	}

	err := c.get(ctx, "fetch_tickers", "", "/api/v3/ticker/24hr", nil, &data)
	if err != nil {
		return nil, err
	}

	tickers := make([]types.Ticker, 0, len(data))
	for _, d := range data {
		tickers = append(tickers, types.Ticker{
			Symbol:        d.Symbol,
			Exchange:      "binance",
			Price:         parseFloat(d.LastPrice),
			Bid:           parseFloat(d.BidPrice),
			Ask:           parseFloat(d.AskPrice),
			High:          parseFloat(d.HighPrice),
			Low:           parseFloat(d.LowPrice),
			Volume:        parseFloat(d.QuoteVolume),
			BaseVolume:    parseFloat(d.Volume),
			ChangePercent: parseFloat(d.PriceChangePercent),
			Timestamp:     d.CloseTime,
		})
	}

	return tickers, nil
}

// FetchOrderBook fetches bid/ask depth for a trading pair.
func (c *BinanceClient) FetchOrderBook(ctx context.Context, symbol string, limit int) (*types.OrderBook, error) {
	pair, err := binanceSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 20
	}

	var data struct {
		LastUpdateID int64       `json:"lastUpdateId"`
		Bids         [][2]string `json:"bids"`
		Asks         [][2]string `json:"asks"`
	}

	query := url.Values{
		"symbol": {pair},
		"limit":  {strconv.Itoa(limit)},
	}
	err = c.get(ctx, "fetch_order_book", symbol, "/api/v3/depth", query, &data)
	if err != nil {
		return nil, err
	}

	return &types.OrderBook{
		Symbol:    strings.ToUpper(symbol),
		Exchange:  "binance",
		Bids:      parseLevels(data.Bids),
		Asks:      parseLevels(data.Asks),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// FetchCandles fetches OHLCV bars. Binance klines come back as mixed-type
// arrays: [openTime, "open", "high", "low", "close", "volume", ...].
func (c *BinanceClient) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	pair, err := binanceSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if timeframe == "" {
		timeframe = "1h"
	}
	if limit <= 0 {
		limit = 100
	}

	var raw [][]interface{}

	query := url.Values{
		"symbol":   {pair},
		"interval": {timeframe},
		"limit":    {strconv.Itoa(limit)},
	}
	err = c.get(ctx, "fetch_candles", symbol, "/api/v3/klines", query, &raw)
	if err != nil {
		return nil, err
	}

	candles := make([]types.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		candles = append(candles, types.Candle{
			Timestamp: int64(toFloat(row[0])),
			Open:      toFloat(row[1]),
			High:      toFloat(row[2]),
			Low:       toFloat(row[3]),
			Close:     toFloat(row[4]),
			Volume:    toFloat(row[5]),
		})
	}

	return candles, nil
}

// ListSymbols lists trading pairs currently trading on Binance.
func (c *BinanceClient) ListSymbols(ctx context.Context) ([]string, error) {
	var data struct {
		Symbols []struct {
			Status     string `json:"status"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
		} `json:"symbols"`
	}

	err := c.get(ctx, "list_symbols", "", "/api/v3/exchangeInfo", nil, &data)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(data.Symbols))
	for _, s := range data.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		symbols = append(symbols, s.BaseAsset+"/"+s.QuoteAsset)
	}

	return symbols, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)

	return v
}

func parseLevels(raw [][2]string) []types.PriceLevel {
	levels := make([]types.PriceLevel, 0, len(raw))
	for _, l := range raw {
		levels = append(levels, types.PriceLevel{
			Price: parseFloat(l[0]),
			Size:  parseFloat(l[1]),
		})
	}

	return levels
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		return parseFloat(x)
	case json.Number:
		f, _ := x.Float64()

		return f
	default:
		return 0
	}
}
