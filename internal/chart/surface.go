// Package chart defines the rendering surface the sync engine draws into,
// plus the concrete surfaces shipped with the service (websocket fanout,
// echarts snapshot).
package chart

import "chartsync/internal/market"

// Surface is the minimal primitive set a candle chart needs. The engine calls
// SetFullSeries for wholesale replacement, UpdateLastBucket to amend the
// in-progress candle in place and AppendBuckets for newly closed candles.
// FitContent is a one-time zoom-to-range hint, only issued on initial load.
type Surface interface {
	SetFullSeries(buckets []market.Candle)
	UpdateLastBucket(bucket market.Candle)
	AppendBuckets(buckets []market.Candle)
	FitContent()
}

// Resizable is implemented by surfaces that care about viewport width.
type Resizable interface {
	Resize(width int)
}

// MultiSurface fans every primitive out to several surfaces in order.
type MultiSurface []Surface

func (m MultiSurface) SetFullSeries(buckets []market.Candle) {
	for _, s := range m {
		if s != nil {
			s.SetFullSeries(buckets)
		}
	}
}

func (m MultiSurface) UpdateLastBucket(bucket market.Candle) {
	for _, s := range m {
		if s != nil {
			s.UpdateLastBucket(bucket)
		}
	}
}

func (m MultiSurface) AppendBuckets(buckets []market.Candle) {
	for _, s := range m {
		if s != nil {
			s.AppendBuckets(buckets)
		}
	}
}

func (m MultiSurface) FitContent() {
	for _, s := range m {
		if s != nil {
			s.FitContent()
		}
	}
}
