package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quantDashboard/internal/logging"
)

var yahooLog = logging.New("yahoo")

const yahooUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// YahooClient fetches close series from the public chart endpoints, rotating
// hosts with backoff and falling back to the spark endpoint.
type YahooClient struct {
	HTTP     *http.Client
	Hosts    []string // base URLs, e.g. https://query1.finance.yahoo.com
	Backoffs []time.Duration
}

func NewYahooClient() *YahooClient {
	return &YahooClient{
		HTTP:     &http.Client{Timeout: 15 * time.Second},
		Hosts:    []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"},
		Backoffs: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
	}
}

// FetchSeries returns timestamps and closes for symbol at the given bar
// interval (1m, 5m, 15m, 1h, 1d) over rangeParam (1d, 5d, 1mo, ... max).
// Missing or non-positive closes are dropped; intraday series are also
// cleared of IQR outliers. Daily bars use adjusted closes when present.
func (c *YahooClient) FetchSeries(ctx context.Context, symbol, interval, rangeParam string) (AssetData, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	q := url.Values{}
	q.Set("range", rangeParam)
	q.Set("interval", interval)
	q.Set("includePrePost", "true")
	q.Set("events", "div,splits")

	var yc yahooChartResp
	body, err := c.get(ctx, symbol, "/v8/finance/chart/"+url.PathEscape(symbol)+"?"+q.Encode())
	if err == nil {
		if jerr := json.Unmarshal(body, &yc); jerr != nil {
			err = fmt.Errorf("failed to parse yahoo json: %v; body: %s", jerr, preview(body))
		}
	}
	if err != nil {
		yahooLog.Warn().Err(err).Str("symbol", symbol).Msg("yahoo: chart failed, trying spark")
		return c.fetchSpark(ctx, symbol, interval, rangeParam)
	}

	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return AssetData{}, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	res := yc.Chart.Result[0]
	closes := res.Indicators.Quote[0].Close
	if interval == "1d" && len(res.Indicators.AdjClose) > 0 && len(res.Indicators.AdjClose[0].AdjClose) == len(res.Timestamp) {
		closes = res.Indicators.AdjClose[0].AdjClose
	}
	return c.clean(symbol, interval, res.Timestamp, closes)
}

func (c *YahooClient) fetchSpark(ctx context.Context, symbol, interval, rangeParam string) (AssetData, error) {
	q := url.Values{}
	q.Set("symbols", symbol)
	q.Set("range", rangeParam)
	q.Set("interval", interval)

	body, err := c.get(ctx, symbol, "/v7/finance/spark?"+q.Encode())
	if err != nil {
		return AssetData{}, err
	}
	var sp yahooSparkResp
	if err := json.Unmarshal(body, &sp); err != nil {
		return AssetData{}, fmt.Errorf("failed to parse yahoo spark json: %w", err)
	}
	if len(sp.Spark.Result) == 0 || len(sp.Spark.Result[0].Response) == 0 {
		return AssetData{}, fmt.Errorf("yahoo spark %s: %w", symbol, ErrNoData)
	}
	r := sp.Spark.Result[0].Response[0]
	return c.clean(symbol, interval, r.Timestamp, r.Close)
}

func (c *YahooClient) clean(symbol, interval string, ts []int64, cl []float64) (AssetData, error) {
	ts, cl = dropNonPositive(ts, cl)
	if isIntraday(interval) {
		ts, cl = filterIQR(ts, cl, 1.5, 20)
	}
	if len(ts) == 0 {
		return AssetData{}, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	yahooLog.Debug().Str("symbol", symbol).Str("interval", interval).Int("bars", len(ts)).Msg("yahoo: series fetched")
	return AssetData{Symbol: symbol, Timestamps: ts, Closes: cl}, nil
}

// get tries every host, then sleeps the next backoff and tries again.
// It returns the first 200 JSON body.
func (c *YahooClient) get(ctx context.Context, symbol, path string) ([]byte, error) {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	lastErr := errors.New("no yahoo hosts configured")
	for attempt := 0; attempt <= len(c.Backoffs); attempt++ {
		for _, host := range c.Hosts {
			body, err := c.try(ctx, client, host+path, symbol)
			if err == nil {
				return body, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
		if attempt < len(c.Backoffs) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.Backoffs[attempt]):
			}
		}
	}
	return nil, lastErr
}

func (c *YahooClient) try(ctx context.Context, client *http.Client, u, symbol string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", symbol))

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read yahoo response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests"):
		return nil, fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", req.URL.Host)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("yahoo %s returned %d: %s", req.URL.Host, resp.StatusCode, preview(body))
	case strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:"):
		return nil, fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	return body, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

func isIntraday(interval string) bool {
	return strings.HasSuffix(interval, "m") || strings.HasSuffix(interval, "h")
}
