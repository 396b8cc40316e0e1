package types

// Ticker holds a point-in-time market snapshot for one trading pair.
type Ticker struct {
	Symbol        string  `json:"symbol"`
	Exchange      string  `json:"exchange"`
	Price         float64 `json:"price"`
	Bid           float64 `json:"bid"`
	Ask           float64 `json:"ask"`
	Open          float64 `json:"open,omitempty"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        float64 `json:"volume"`      // quote volume
	BaseVolume    float64 `json:"base_volume"` // base volume
	Change        float64 `json:"change,omitempty"`
	ChangePercent float64 `json:"change_percent,omitempty"`
	Timestamp     int64   `json:"timestamp"` // exchange timestamp, ms
}

// Spread returns the ask-bid spread, or zero when either side is missing.
func (t Ticker) Spread() float64 {
	if t.Ask <= 0 || t.Bid <= 0 {
		return 0
	}

	return t.Ask - t.Bid
}

// PriceLevel is one side entry of an order book: price and resting size.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook holds bid/ask depth for one trading pair. Bids are sorted best
// (highest) first, asks best (lowest) first.
type OrderBook struct {
	Symbol    string       `json:"symbol"`
	Exchange  string       `json:"exchange"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp int64        `json:"timestamp"`
}

// BestBid returns the highest bid, or zero level when the book side is empty.
func (b OrderBook) BestBid() PriceLevel {
	if len(b.Bids) == 0 {
		return PriceLevel{}
	}

	return b.Bids[0]
}

// BestAsk returns the lowest ask, or zero level when the book side is empty.
func (b OrderBook) BestAsk() PriceLevel {
	if len(b.Asks) == 0 {
		return PriceLevel{}
	}

	return b.Asks[0]
}

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp int64   `json:"timestamp"` // bar open time, ms
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}
