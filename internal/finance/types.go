package finance

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoData is returned when a source answers but has nothing usable.
var ErrNoData = errors.New("no data")

// Quote is a single observed price.
type Quote struct {
	Symbol string
	Time   time.Time // UTC
	Price  decimal.Decimal
}

// AssetData is the close series of one symbol as fetched.
type AssetData struct {
	Symbol     string
	Timestamps []int64 // unix seconds
	Closes     []float64
}

func (a AssetData) Len() int { return len(a.Timestamps) }

// yahooChartResp mirrors Yahoo v8 chart response (trimmed to needed fields)
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol           string `json:"symbol"`
				ExchangeTimezone string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// yahooSparkResp mirrors Yahoo v7 spark fallback (trimmed)
type yahooSparkResp struct {
	Spark struct {
		Result []struct {
			Symbol   string `json:"symbol"`
			Response []struct {
				Timestamp []int64   `json:"timestamp"`
				Close     []float64 `json:"close"`
			} `json:"response"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"spark"`
}

// finnhubQuoteResp is the Finnhub /quote payload; c is the current price.
type finnhubQuoteResp struct {
	Current *decimal.Decimal `json:"c"`
	Time    int64            `json:"t"`
	PrevDay *decimal.Decimal `json:"pc"`
	Error   string           `json:"error"`
}
