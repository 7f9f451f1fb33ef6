package series

import (
	"chartsync/internal/chart"
	"chartsync/internal/market"
)

// MergeKind classifies what one merge did, for logging and the sync event log.
type MergeKind string

const (
	MergeFullReplace MergeKind = "full_replace"
	MergeUpdateLast  MergeKind = "update_last"
	MergeAppend      MergeKind = "append"
	MergeNoop        MergeKind = "noop"
)

// MergeStats summarizes one merge for observers.
type MergeStats struct {
	Kind     MergeKind
	Appended int
	Anomaly  bool
}

// Merge reconciles the cached series with a freshly fetched ascending window
// and emits the cheapest sufficient primitives to surface. It returns the new
// authoritative cache; the cache and what the surface displays never diverge.
//
// Steady-state polling costs a single UpdateLastBucket. A period boundary
// costs one UpdateLastBucket (the now-closed candle) plus one AppendBuckets.
// Everything else (initial load, gap after a stall, clock rollback) falls back
// to a full replace, because incremental assumptions no longer hold.
func Merge(prev []market.Candle, fetched []market.Candle, initial bool, surface chart.Surface) ([]market.Candle, MergeStats) {
	if len(fetched) == 0 {
		// A truncated empty response carries no information; keep what we have.
		return prev, MergeStats{Kind: MergeNoop}
	}
	if initial || len(prev) == 0 {
		return fullReplace(fetched, initial, surface, false)
	}

	lastCached := prev[len(prev)-1].OpenTime
	lastFetched := fetched[len(fetched)-1].OpenTime

	switch {
	case lastFetched == lastCached:
		// Same trailing window: only the in-progress candle moved.
		last := fetched[len(fetched)-1]
		surface.UpdateLastBucket(last)
		next := make([]market.Candle, len(prev))
		copy(next, prev)
		next[len(next)-1] = last
		return next, MergeStats{Kind: MergeUpdateLast}

	case lastFetched > lastCached:
		boundary := -1
		for i := len(fetched) - 1; i >= 0; i-- {
			if fetched[i].OpenTime == lastCached {
				boundary = i
				break
			}
			if fetched[i].OpenTime < lastCached {
				break
			}
		}
		if boundary < 0 {
			// Gap: the cached tail is not in the response (long stall).
			return fullReplace(fetched, false, surface, true)
		}
		surface.UpdateLastBucket(fetched[boundary])
		fresh := fetched[boundary+1:]
		surface.AppendBuckets(fresh)
		next := make([]market.Candle, 0, len(prev)+len(fresh))
		next = append(next, prev[:len(prev)-1]...)
		next = append(next, fetched[boundary:]...)
		return next, MergeStats{Kind: MergeAppend, Appended: len(fresh)}

	default:
		// Fetched window ends before the cache does: rollback or truncation.
		return fullReplace(fetched, false, surface, true)
	}
}

func fullReplace(fetched []market.Candle, fit bool, surface chart.Surface, anomaly bool) ([]market.Candle, MergeStats) {
	next := make([]market.Candle, len(fetched))
	copy(next, fetched)
	surface.SetFullSeries(next)
	if fit {
		surface.FitContent()
	}
	return next, MergeStats{Kind: MergeFullReplace, Appended: len(next), Anomaly: anomaly}
}
