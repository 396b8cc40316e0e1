package tools

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mselser95/crypto-mcp/pkg/types"
	"go.uber.org/zap"
)

// CallRequest is the wire format of a tool invocation.
type CallRequest struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallResponse is the wire format of a tool result. Classified failures come
// back as success=false with an error string, not as transport errors.
type CallResponse struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Handler serves tool calls over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates the tool call handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type priceArgs struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

type bookArgs struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Limit    int    `json:"limit"`
}

type candlesArgs struct {
	Symbol    string `json:"symbol"`
	Exchange  string `json:"exchange"`
	Timeframe string `json:"timeframe"`
	Limit     int    `json:"limit"`
}

type compareArgs struct {
	Symbol    string   `json:"symbol"`
	Exchanges []string `json:"exchanges"`
}

type topVolumesArgs struct {
	Exchange string `json:"exchange"`
	Limit    int    `json:"limit"`
}

type priceChangeArgs struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Period   string `json:"period"`
}

type movingAverageArgs struct {
	Symbol    string `json:"symbol"`
	Exchange  string `json:"exchange"`
	Timeframe string `json:"timeframe"`
	Period    int    `json:"period"`
}

// HandleCall dispatches POST /tools/call requests.
func (h *Handler) HandleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)

		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	start := time.Now()
	data, err := h.dispatch(r, &req)

	ToolCallsTotal.WithLabelValues(req.Name, outcome(err)).Inc()
	ToolCallDuration.WithLabelValues(req.Name).Observe(time.Since(start).Seconds())

	resp := CallResponse{ID: req.ID, Success: err == nil, Data: data}
	if err != nil {
		resp.Error = err.Error()
		h.logger.Warn("tool-call-failed",
			zap.String("tool", req.Name),
			zap.String("id", req.ID),
			zap.Error(err))
	} else {
		h.logger.Debug("tool-call-ok",
			zap.String("tool", req.Name),
			zap.String("id", req.ID),
			zap.Duration("duration", time.Since(start)))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleList serves GET /tools with the available tool names.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"tools": []string{
			"get_price",
			"get_market_summary",
			"get_order_book",
			"get_ohlcv",
			"get_top_volumes",
			"get_price_change",
			"get_volume_history",
			"get_moving_average",
			"compare_prices",
			"list_exchanges",
			"cache_stats",
		},
	})
}

func (h *Handler) dispatch(r *http.Request, req *CallRequest) (interface{}, error) {
	ctx := r.Context()

	switch req.Name {
	case "get_price":
		var args priceArgs
		err := decodeArgs(req.Arguments, &args)
		if err != nil {
			return nil, err
		}

		return h.service.GetPrice(ctx, args.Symbol, defaultExchange(args.Exchange))

	case "get_market_summary":
		var args priceArgs
		err := decodeArgs(req.Arguments, &args)
		if err != nil {
			return nil, err
		}

		return h.service.GetMarketSummary(ctx, args.Symbol, defaultExchange(args.Exchange))

	case "get_order_book":
		var args bookArgs
		err := decodeArgs(req.Arguments, &args)
		if err != nil {
			return nil, err
		}
		if args.Limit <= 0 {
			args.Limit = 20
		}

		return h.service.GetOrderBook(ctx, args.Symbol, defaultExchange(args.Exchange), args.Limit)

	case "get_ohlcv":
		var args candlesArgs
		err := decodeArgs(req.Arguments, &args)
		if err != nil {
			return nil, err
		}
		if args.Timeframe == "" {
			args.Timeframe = "1h"
		}
		if args.Limit <= 0 {
			args.Limit = 100
		}

		return h.service.GetCandles(ctx, args.Symbol, defaultExchange(args.Exchange), args.Timeframe, args.Limit)

	case "get_top_volumes":
		var args topVolumesArgs
		err := decodeArgs(req.Arguments, &args)
		if err != nil {
			return nil, err
		}

		return h.service.GetTopVolumes(ctx, defaultExchange(args.Exchange), args.Limit)

	case "get_price_change":
		var args priceChangeArgs
		err := decodeArgs(req.Arguments, &args)
		if err != nil {
			return nil, err
		}
		if args.Period == "" {
			args.Period = "24h"
		}

		return h.service.GetPriceChange(ctx, args.Symbol, defaultExchange(args.Exchange), args.Period)

	case "get_volume_history":
		var args candlesArgs
		err := decodeArgs(req.Arguments, &args)
		if err != nil {
			return nil, err
		}
		if args.Timeframe == "" {
			args.Timeframe = "1h"
		}
		if args.Limit <= 0 {
			args.Limit = 24
		}

		return h.service.GetVolumeHistory(ctx, args.Symbol, defaultExchange(args.Exchange), args.Timeframe, args.Limit)

	case "get_moving_average":
		var args movingAverageArgs
		err := decodeArgs(req.Arguments, &args)
		if err != nil {
			return nil, err
		}
		if args.Timeframe == "" {
			args.Timeframe = "1h"
		}

		return h.service.GetMovingAverage(ctx, args.Symbol, defaultExchange(args.Exchange), args.Timeframe, args.Period)

	case "compare_prices":
		var args compareArgs
		err := decodeArgs(req.Arguments, &args)
		if err != nil {
			return nil, err
		}

		return h.service.ComparePrices(ctx, args.Symbol, args.Exchanges)

	case "list_exchanges":
		return map[string][]string{"exchanges": h.service.ListExchanges()}, nil

	case "cache_stats":
		return h.service.Stats(), nil

	default:
		return nil, &types.InvalidRequestError{
			Field:  "name",
			Value:  req.Name,
			Reason: "unknown tool",
		}
	}
}

func decodeArgs(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}

	err := json.Unmarshal(raw, out)
	if err != nil {
		return &types.InvalidRequestError{
			Field:  "arguments",
			Value:  string(raw),
			Reason: err.Error(),
		}
	}

	return nil
}

func defaultExchange(exch string) string {
	if exch == "" {
		return "binance"
	}

	return exch
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
