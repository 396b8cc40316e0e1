package exchange

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/mselser95/crypto-mcp/pkg/types"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyTransport(t *testing.T) {
	t.Run("context cancellation passes through", func(t *testing.T) {
		err := classifyTransport("binance", "fetch_ticker", context.Canceled)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}

		var transientErr *types.TransientError
		if errors.As(err, &transientErr) {
			t.Error("cancellation must not be reclassified as transient")
		}
	})

	t.Run("timeout is transient", func(t *testing.T) {
		err := classifyTransport("binance", "fetch_ticker", timeoutErr{})

		var transientErr *types.TransientError
		if !errors.As(err, &transientErr) {
			t.Fatalf("got %v, want TransientError", err)
		}
		if !types.IsRetryable(err) {
			t.Error("timeout must be retryable")
		}
	})

	t.Run("connection failure is transient", func(t *testing.T) {
		err := classifyTransport("kraken", "fetch_ticker", errors.New("connection refused"))

		var transientErr *types.TransientError
		if !errors.As(err, &transientErr) {
			t.Fatalf("got %v, want TransientError", err)
		}
		if transientErr.Exchange != "kraken" {
			t.Errorf("exchange = %q, want kraken", transientErr.Exchange)
		}
	})
}

func TestClassifyStatus(t *testing.T) {
	resp := func(code int, headers map[string]string) *http.Response {
		r := &http.Response{StatusCode: code, Header: make(http.Header)}
		for k, v := range headers {
			r.Header.Set(k, v)
		}

		return r
	}

	t.Run("429 with retry-after", func(t *testing.T) {
		err := classifyStatus("binance", "fetch_ticker", "BTC/USDT",
			resp(http.StatusTooManyRequests, map[string]string{"Retry-After": "12"}))

		var rateErr *types.UpstreamRateLimitError
		if !errors.As(err, &rateErr) {
			t.Fatalf("got %v, want UpstreamRateLimitError", err)
		}
		if rateErr.RetryAfter != 12*time.Second {
			t.Errorf("RetryAfter = %v, want 12s", rateErr.RetryAfter)
		}
	})

	t.Run("401 and 403 are auth errors", func(t *testing.T) {
		for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
			err := classifyStatus("binance", "fetch_ticker", "BTC/USDT", resp(code, nil))

			var authErr *types.AuthError
			if !errors.As(err, &authErr) {
				t.Errorf("status %d: got %v, want AuthError", code, err)
			}
			if types.IsRetryable(err) {
				t.Errorf("status %d must not be retryable", code)
			}
		}
	})

	t.Run("400 and 404 are invalid requests", func(t *testing.T) {
		for _, code := range []int{http.StatusBadRequest, http.StatusNotFound} {
			err := classifyStatus("binance", "fetch_ticker", "NOPE/USDT", resp(code, nil))

			var invalidErr *types.InvalidRequestError
			if !errors.As(err, &invalidErr) {
				t.Errorf("status %d: got %v, want InvalidRequestError", code, err)
			}
			if invalidErr.Value != "NOPE/USDT" {
				t.Errorf("status %d: value = %q", code, invalidErr.Value)
			}
		}
	})

	t.Run("5xx is transient", func(t *testing.T) {
		for _, code := range []int{500, 502, 503} {
			err := classifyStatus("kraken", "fetch_ticker", "BTC/USDT", resp(code, nil))

			var transientErr *types.TransientError
			if !errors.As(err, &transientErr) {
				t.Errorf("status %d: got %v, want TransientError", code, err)
			}
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{in: "", want: 0},
		{in: "5", want: 5 * time.Second},
		{in: "120", want: 2 * time.Minute},
		{in: "0", want: 0},
		{in: "-3", want: 0},
		{in: "Wed, 21 Oct 2026 07:28:00 GMT", want: 0},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
