package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/mselser95/crypto-mcp/pkg/types"
	"go.uber.org/zap"
)

func newTestKraken(t *testing.T, handler http.HandlerFunc) *KrakenClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewKrakenClient(zap.NewNop())
	client.baseURL = server.URL

	return client
}

func TestKrakenPair(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "BTC/USDT", want: "XBTUSDT"},
		{in: "eth/usd", want: "ETHUSD"},
		{in: "DOGE/BTC", want: "XDGXBT"},
		{in: "BTCUSDT", wantErr: true},
		{in: "/USDT", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := krakenPair(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("krakenPair(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("krakenPair(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("krakenPair(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKrakenClient_FetchTickers(t *testing.T) {
	client := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/public/Ticker" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("expected no query, got %q", r.URL.RawQuery)
		}

		w.Write([]byte(`{"error": [], "result": {
			"XXBTZUSD": {"c": ["67000.5", "0.01"], "v": ["100.0", "250.0"], "o": "65000.0"},
			"XETHZUSD": {"c": ["3200.0", "0.5"], "v": ["900.0", "1800.0"], "o": "3250.0"}
		}}`))
	})

	tickers, err := client.FetchTickers(context.Background())
	if err != nil {
		t.Fatalf("FetchTickers: %v", err)
	}

	if len(tickers) != 2 {
		t.Fatalf("tickers = %d, want 2", len(tickers))
	}

	byPair := make(map[string]types.Ticker, len(tickers))
	for _, tk := range tickers {
		byPair[tk.Symbol] = tk
	}

	btc, ok := byPair["XXBTZUSD"]
	if !ok {
		t.Fatalf("missing XXBTZUSD in %v", tickers)
	}
	if btc.Price != 67000.5 || btc.BaseVolume != 250.0 {
		t.Errorf("btc ticker = %+v", btc)
	}
	if eth := byPair["XETHZUSD"]; eth.Price != 3200.0 {
		t.Errorf("eth ticker = %+v", eth)
	}
}

func TestKrakenClient_FetchTicker(t *testing.T) {
	client := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/public/Ticker" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("pair"); got != "XBTUSDT" {
			t.Errorf("pair = %q, want XBTUSDT", got)
		}

		w.Write([]byte(`{"error": [], "result": {"XBTUSDT": {
			"a": ["67001.0", "1", "1.000"],
			"b": ["67000.0", "2", "2.000"],
			"c": ["67000.5", "0.01"],
			"v": ["100.0", "250.0"],
			"h": ["67500.0", "68000.0"],
			"l": ["64000.0", "63500.0"],
			"o": "65000.0"
		}}}`))
	})

	ticker, err := client.FetchTicker(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("FetchTicker: %v", err)
	}

	if ticker.Exchange != "kraken" {
		t.Errorf("exchange = %q, want kraken", ticker.Exchange)
	}
	if ticker.Price != 67000.5 {
		t.Errorf("price = %v, want 67000.5", ticker.Price)
	}
	if ticker.Bid != 67000.0 || ticker.Ask != 67001.0 {
		t.Errorf("bid/ask = %v/%v", ticker.Bid, ticker.Ask)
	}
	// 24h figures come from the second array slot.
	if ticker.High != 68000.0 || ticker.Low != 63500.0 {
		t.Errorf("high/low = %v/%v", ticker.High, ticker.Low)
	}
	if ticker.BaseVolume != 250.0 {
		t.Errorf("base volume = %v, want 250.0", ticker.BaseVolume)
	}
	if ticker.Change != 2000.5 {
		t.Errorf("change = %v, want 2000.5", ticker.Change)
	}
}

func TestKrakenClient_FetchOrderBook(t *testing.T) {
	client := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/public/Depth" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		w.Write([]byte(`{"error": [], "result": {"XBTUSDT": {
			"bids": [["67000.0", "0.5", 1700000000], ["66999.0", "1.2", 1700000001]],
			"asks": [["67001.0", "0.3", 1700000002]]
		}}}`))
	})

	book, err := client.FetchOrderBook(context.Background(), "BTC/USDT", 10)
	if err != nil {
		t.Fatalf("FetchOrderBook: %v", err)
	}

	if len(book.Bids) != 2 || len(book.Asks) != 1 {
		t.Fatalf("levels = %d bids / %d asks, want 2/1", len(book.Bids), len(book.Asks))
	}
	if book.Bids[0].Price != 67000.0 || book.Bids[0].Size != 0.5 {
		t.Errorf("top bid = %+v", book.Bids[0])
	}
}

func TestKrakenClient_FetchCandles(t *testing.T) {
	client := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("interval"); got != "60" {
			t.Errorf("interval = %q, want 60", got)
		}

		w.Write([]byte(`{"error": [], "result": {
			"XBTUSDT": [
				[1700000000, "65000", "65500", "64800", "65200", "65100", "120.5", 42],
				[1700003600, "65200", "65900", "65100", "65800", "65500", "98.2", 37],
				[1700007200, "65800", "66100", "65700", "66000", "65900", "55.0", 21]
			],
			"last": 1700007200
		}}`))
	})

	candles, err := client.FetchCandles(context.Background(), "BTC/USDT", "1h", 2)
	if err != nil {
		t.Fatalf("FetchCandles: %v", err)
	}

	// limit keeps the most recent rows.
	if len(candles) != 2 {
		t.Fatalf("candles = %d, want 2", len(candles))
	}
	if candles[0].Timestamp != 1700003600000 {
		t.Errorf("timestamp = %v, want milliseconds", candles[0].Timestamp)
	}
	if candles[1].Close != 66000 || candles[1].Volume != 55.0 {
		t.Errorf("candle = %+v", candles[1])
	}
}

func TestKrakenClient_FetchCandlesUnsupportedTimeframe(t *testing.T) {
	client := NewKrakenClient(zap.NewNop())

	_, err := client.FetchCandles(context.Background(), "BTC/USDT", "3m", 10)

	var invalidErr *types.InvalidRequestError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidRequestError, got %v", err)
	}
	if invalidErr.Field != "timeframe" {
		t.Errorf("field = %q, want timeframe", invalidErr.Field)
	}
}

func TestKrakenClient_ListSymbols(t *testing.T) {
	client := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": [], "result": {
			"XXBTZUSD": {"wsname": "XBT/USD"},
			"XETHZUSD": {"wsname": "ETH/USD"},
			"NOWSNAME": {}
		}}`))
	})

	symbols, err := client.ListSymbols(context.Background())
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}

	sort.Strings(symbols)
	want := []string{"ETH/USD", "NOWSNAME", "XBT/USD"}
	if len(symbols) != len(want) {
		t.Fatalf("symbols = %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbols[%d] = %q, want %q", i, symbols[i], want[i])
		}
	}
}

func TestClassifyKrakenError(t *testing.T) {
	tests := []struct {
		name string
		msgs []string
		want func(error) bool
	}{
		{
			name: "rate limit",
			msgs: []string{"EAPI:Rate limit exceeded"},
			want: func(err error) bool {
				var e *types.UpstreamRateLimitError
				return errors.As(err, &e)
			},
		},
		{
			name: "unknown pair",
			msgs: []string{"EQuery:Unknown asset pair"},
			want: func(err error) bool {
				var e *types.InvalidRequestError
				return errors.As(err, &e)
			},
		},
		{
			name: "bad key",
			msgs: []string{"EAPI:Invalid key"},
			want: func(err error) bool {
				var e *types.AuthError
				return errors.As(err, &e)
			},
		},
		{
			name: "anything else",
			msgs: []string{"EService:Unavailable"},
			want: func(err error) bool {
				var e *types.TransientError
				return errors.As(err, &e)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyKrakenError("fetch_ticker", "BTC/USDT", tt.msgs)
			if !tt.want(err) {
				t.Errorf("wrong classification for %v: %v", tt.msgs, err)
			}
		})
	}
}

func TestKrakenClient_EnvelopeErrorOnHTTP200(t *testing.T) {
	client := newTestKraken(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": ["EAPI:Rate limit exceeded"], "result": {}}`))
	})

	_, err := client.FetchTicker(context.Background(), "BTC/USDT")

	var rateErr *types.UpstreamRateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected UpstreamRateLimitError from envelope, got %v", err)
	}
}
