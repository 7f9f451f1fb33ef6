package binance

import (
	"strings"
	"time"
)

// TransportMode selects how klines are fetched: through the go-binance SDK or
// through the raw REST endpoint.
type TransportMode string

const (
	TransportSDK  TransportMode = "sdk"
	TransportREST TransportMode = "rest"
)

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration
	Transport   TransportMode

	// Symbol pins the tracked symbol; empty means auto-pick by quote volume.
	Symbol string

	ProxyEnabled bool
	RESTProxyURL string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://fapi.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	switch out.Transport {
	case TransportSDK, TransportREST:
	default:
		out.Transport = TransportSDK
	}
	out.Symbol = strings.ToUpper(strings.TrimSpace(out.Symbol))
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	return out
}
