package market

// Candle is one OHLCV bucket of the series. OpenTime, epoch milliseconds, is
// the unique bucket key: two candles with the same OpenTime describe the same
// bucket at different points in its life, and merging compares nothing else.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}
