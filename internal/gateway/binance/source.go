package binance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"chartsync/internal/logger"
	"chartsync/internal/market"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/tidwall/gjson"
)

const maxHistoryLimit = 1500

// Source implements market.Source against Binance USD-M futures.
type Source struct {
	cfg    Config
	client *futures.Client
	http   *http.Client
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Source{
		cfg:    final,
		client: client,
		http:   httpClient,
	}, nil
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	if s.cfg.Transport == TransportREST {
		return s.fetchKlinesREST(ctx, symbol, interval, limit)
	}
	return s.fetchKlinesSDK(ctx, symbol, interval, limit)
}

func (s *Source) fetchKlinesSDK(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	svc := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return out, nil
}

// fetchKlinesREST hits /fapi/v1/klines directly. The payload is an array of
// arrays: [openTime, open, high, low, close, volume, closeTime, ...].
func (s *Source) fetchKlinesREST(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	reqURL := fmt.Sprintf("%s/fapi/v1/klines?symbol=%s&interval=%s&limit=%d",
		s.cfg.RESTBaseURL, symbol, interval, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines request failed: status=%d body=%s", resp.StatusCode, truncate(body, 200))
	}
	rows := gjson.ParseBytes(body).Array()
	out := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		cols := row.Array()
		if len(cols) < 7 {
			continue
		}
		c := market.Candle{
			OpenTime:  cols[0].Int(),
			Open:      cols[1].Float(),
			High:      cols[2].Float(),
			Low:       cols[3].Float(),
			Close:     cols[4].Float(),
			Volume:    cols[5].Float(),
			CloseTime: cols[6].Int(),
		}
		if len(cols) > 8 {
			c.Trades = cols[8].Int()
		}
		out = append(out, c)
	}
	return out, nil
}

// CurrentSymbol returns the configured symbol, or falls back to the USDT
// perpetual with the highest 24h quote volume.
func (s *Source) CurrentSymbol(ctx context.Context) (string, error) {
	if s.cfg.Symbol != "" {
		return s.cfg.Symbol, nil
	}
	stats, err := s.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving symbol by volume failed: %w", err)
	}
	best := ""
	bestVol := -1.0
	for _, st := range stats {
		if st == nil || !strings.HasSuffix(st.Symbol, "USDT") {
			continue
		}
		if vol := parseFloat(st.QuoteVolume); vol > bestVol {
			best = st.Symbol
			bestVol = vol
		}
	}
	if best == "" {
		return "", fmt.Errorf("no USDT symbol found in ticker stats")
	}
	logger.Infof("[binance] auto-picked symbol=%s quote_volume=%.0f", best, bestVol)
	return best, nil
}

func (s *Source) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
