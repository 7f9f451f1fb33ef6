package series

import (
	"sort"
	"strings"
	"time"
)

// Granularity is the fixed candle period of one series view.
type Granularity string

const (
	Gran1m  Granularity = "1m"
	Gran5m  Granularity = "5m"
	Gran15m Granularity = "15m"
	Gran30m Granularity = "30m"
	Gran1h  Granularity = "1h"
	Gran4h  Granularity = "4h"
	Gran1d  Granularity = "1d"
)

// Cadence pairs the poll interval with the fetch window size for one granularity.
type Cadence struct {
	PollInterval time.Duration
	FetchLimit   int
}

var refreshPolicy = map[Granularity]Cadence{
	Gran1m:  {PollInterval: 30 * time.Second, FetchLimit: 500},
	Gran5m:  {PollInterval: time.Minute, FetchLimit: 500},
	Gran15m: {PollInterval: 2 * time.Minute, FetchLimit: 400},
	Gran30m: {PollInterval: 3 * time.Minute, FetchLimit: 300},
	Gran1h:  {PollInterval: 5 * time.Minute, FetchLimit: 300},
	Gran4h:  {PollInterval: 15 * time.Minute, FetchLimit: 150},
	Gran1d:  {PollInterval: time.Hour, FetchLimit: 100},
}

// CadenceFor looks up the poll cadence for g. An unknown granularity falls
// back to the shortest-interval entry: better to poll too often than go stale.
func CadenceFor(g Granularity) Cadence {
	if c, ok := refreshPolicy[g]; ok {
		return c
	}
	return refreshPolicy[Gran1m]
}

// ParseGranularity normalizes user input ("1H", " 5m ") into a known
// granularity. Returns ("", false) for anything outside the fixed set.
func ParseGranularity(input string) (Granularity, bool) {
	g := Granularity(strings.ToLower(strings.TrimSpace(input)))
	_, ok := refreshPolicy[g]
	if !ok {
		return "", false
	}
	return g, true
}

// Granularities returns the supported set sorted by poll interval.
func Granularities() []Granularity {
	out := make([]Granularity, 0, len(refreshPolicy))
	for g := range refreshPolicy {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return refreshPolicy[out[i]].PollInterval < refreshPolicy[out[j]].PollInterval
	})
	return out
}

// Interval returns the transport interval string for g (same literal set).
func (g Granularity) Interval() string { return string(g) }
