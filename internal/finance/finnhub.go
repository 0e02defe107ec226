package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quantDashboard/internal/logging"
)

var finnhubLog = logging.New("finnhub")

// FinnhubClient reads live quotes from the Finnhub REST API.
type FinnhubClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	Now     func() time.Time
}

func NewFinnhubClient(apiKey string) *FinnhubClient {
	return &FinnhubClient{
		APIKey:  apiKey,
		BaseURL: "https://finnhub.io/api/v1",
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Now:     time.Now,
	}
}

// Quote returns the current price of symbol, stamped with the local clock in
// UTC truncated to the second.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("token", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+"/quote?"+q.Encode(), nil)
	if err != nil {
		return Quote{}, err
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("finnhub returned %d: %s", resp.StatusCode, preview(body))
	}

	var fr finnhubQuoteResp
	if err := json.Unmarshal(body, &fr); err != nil {
		return Quote{}, fmt.Errorf("failed to parse finnhub json: %w", err)
	}
	// unknown symbols come back as all zeros
	if fr.Current == nil || !fr.Current.IsPositive() {
		return Quote{}, fmt.Errorf("unexpected finnhub response for %s: %s: %w", symbol, preview(body), ErrNoData)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	out := Quote{Symbol: symbol, Time: now().UTC().Truncate(time.Second), Price: *fr.Current}
	finnhubLog.Debug().Str("symbol", symbol).Str("price", out.Price.String()).Msg("finnhub: quote")
	return out, nil
}
