package telegram

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantDashboard/internal/config"
	"quantDashboard/internal/finance"
	"quantDashboard/internal/portfolio"
	"quantDashboard/internal/storage"
	"quantDashboard/internal/strategy"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	ch   chan tgbotapi.Chattable
}

func newFakeSender() *fakeSender {
	return &fakeSender{ch: make(chan tgbotapi.Chattable, 32)}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	f.sent = append(f.sent, c)
	f.mu.Unlock()
	f.ch <- c
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeSender) photos() []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

type stubPrices struct {
	frame portfolio.Frame
	calls [][]string
}

func (s *stubPrices) Prices(_ context.Context, symbols []string, _ string) portfolio.Frame {
	s.calls = append(s.calls, symbols)
	return s.frame
}

type stubQuotes struct {
	q   finance.Quote
	err error
}

func (s stubQuotes) Quote(_ context.Context, symbol string) (finance.Quote, error) {
	q := s.q
	q.Symbol = symbol
	return q, s.err
}

func priceFrame(t *testing.T) portfolio.Frame {
	t.Helper()
	var dates []time.Time
	var rows [][]float64
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		x := float64(i)
		dates = append(dates, start.AddDate(0, 0, i))
		rows = append(rows, []float64{100 + x + 3*math.Sin(x/4), 80 + 0.5*x + 2*math.Cos(x/3), 40 - 0.05*x + math.Sin(x/5)})
	}
	f, err := portfolio.NewFrame(dates, []string{"AAPL", "MSFT", "GOOGL"}, rows)
	require.NoError(t, err)
	return f
}

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: 42}}
}

func newTestHandlers(t *testing.T, d Deps) (*Handlers, *fakeSender) {
	t.Helper()
	if d.Dashboard.Period == "" {
		d.Dashboard = config.DefaultDashboard()
	}
	s := newFakeSender()
	return NewHandlers(s, d), s
}

func TestBacktest_SendsChartsAndKPIs(t *testing.T) {
	src := &stubPrices{frame: priceFrame(t)}
	h, s := newTestHandlers(t, Deps{Prices: src})

	h.HandleMessage(message("/backtest aapl 0.5 msft 0.3 googl 0.2 monthly 6mo"))

	require.Len(t, src.calls, 1)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, src.calls[0])

	photos := s.photos()
	require.Len(t, photos, 5)
	for _, p := range photos {
		assert.Equal(t, int64(42), p.ChatID)
		assert.Equal(t, "AAPL, MSFT, GOOGL • Monthly • 6MO", p.Caption)
	}

	texts := s.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Final value:")
	assert.Contains(t, texts[0], "Sharpe:")
}

func TestBacktest_DefaultsFromDashboard(t *testing.T) {
	h, s := newTestHandlers(t, Deps{Prices: &stubPrices{frame: priceFrame(t)}})

	h.HandleMessage(message("/backtest AAPL MSFT GOOGL"))

	photos := s.photos()
	require.NotEmpty(t, photos)
	assert.Equal(t, "AAPL, MSFT, GOOGL • Monthly • 2Y", photos[0].Caption)
}

func TestBacktest_Rejections(t *testing.T) {
	cases := map[string]string{
		"/backtest AAPL MSFT":               "Select at least 3 assets",
		"/backtest AAPL 0.5 MSFT GOOGL":     "give a weight for every symbol or for none",
		"/backtest AAPL AAPL MSFT GOOGL":    "duplicate symbol",
		"/backtest@quant_bot 2 AAPL MSFT Q": "has no symbol before it",
		"/backtest AAPL nan MSFT 1 GOOGL 1": "not a finite number",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			src := &stubPrices{frame: priceFrame(t)}
			h, s := newTestHandlers(t, Deps{Prices: src})

			h.HandleMessage(message(in))

			assert.Empty(t, src.calls)
			require.Len(t, s.texts(), 1)
			assert.Contains(t, s.texts()[0], want)
		})
	}
}

func TestBacktest_NoData(t *testing.T) {
	h, s := newTestHandlers(t, Deps{Prices: &stubPrices{}})

	h.HandleMessage(message("/backtest SPY QQQ GLD"))

	assert.Empty(t, s.photos())
	require.Len(t, s.texts(), 1)
	assert.Contains(t, s.texts()[0], "No price data for SPY, QQQ, GLD")
}

func TestPrice_LogsTrackedSymbol(t *testing.T) {
	log := storage.NewCSVLog(filepath.Join(t.TempDir(), "aapl.csv"), "AAPL")
	at := time.Date(2024, 5, 6, 14, 30, 0, 0, time.UTC)
	h, s := newTestHandlers(t, Deps{
		Quotes:      stubQuotes{q: finance.Quote{Time: at, Price: decimal.RequireFromString("189.5")}},
		Log:         log,
		QuoteSymbol: "AAPL",
	})

	h.HandleMessage(message("/price"))
	h.HandleMessage(message("/price msft"))

	assert.Equal(t, []string{
		"AAPL 189.50 at 2024-05-06 14:30:00 UTC",
		"MSFT 189.50 at 2024-05-06 14:30:00 UTC",
	}, s.texts())

	quotes, err := log.Load("AAPL")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.True(t, quotes[0].Price.Equal(decimal.RequireFromString("189.5")))
}

func TestPrice_Errors(t *testing.T) {
	h, s := newTestHandlers(t, Deps{})
	h.HandleMessage(message("/price"))
	assert.Contains(t, s.texts()[0], "not configured")

	h, s = newTestHandlers(t, Deps{Quotes: stubQuotes{err: errors.New("rate limited")}})
	h.HandleMessage(message("/price TSLA"))
	assert.Equal(t, "Couldn’t fetch TSLA: rate limited", s.texts()[0])
}

func TestParseStrategyArgs(t *testing.T) {
	got, err := parseStrategyArgs([]string{"momentum", "1h", "20"}, 10)
	require.NoError(t, err)
	assert.Equal(t, strategy.Hourly, got.per)
	assert.Equal(t, strategy.Params{Kind: strategy.Momentum, Window: 20}, got.params)

	got, err = parseStrategyArgs(nil, 10)
	require.NoError(t, err)
	assert.Equal(t, strategy.Raw, got.per)
	assert.Equal(t, strategy.Params{Kind: strategy.BuyAndHold, Window: 10}, got.params)

	_, err = parseStrategyArgs([]string{"0"}, 10)
	assert.Error(t, err)
	_, err = parseStrategyArgs([]string{"weekly"}, 10)
	assert.Error(t, err)
}

func TestStrategy_FromPriceLog(t *testing.T) {
	log := storage.NewCSVLog(filepath.Join(t.TempDir(), "aapl.csv"), "AAPL")
	h, s := newTestHandlers(t, Deps{Log: log, QuoteSymbol: "AAPL"})

	h.HandleMessage(message("/strategy"))
	require.Len(t, s.texts(), 1)
	assert.Contains(t, s.texts()[0], "No prices logged for AAPL")

	start := time.Date(2024, 5, 6, 13, 30, 0, 0, time.UTC)
	for i, p := range []string{"100", "101", "103", "102", "104", "107", "106"} {
		require.NoError(t, log.Append(finance.Quote{Symbol: "AAPL", Time: start.Add(time.Duration(i) * 5 * time.Minute), Price: decimal.RequireFromString(p)}))
	}

	h.HandleMessage(message("/strategy raw momentum 2"))
	photos := s.photos()
	require.Len(t, photos, 1)
	assert.True(t, strings.HasPrefix(photos[0].Caption, "AAPL • Momentum(2) • Raw\n"))

	h.HandleMessage(message("/strategy 1d"))
	texts := s.texts()
	assert.Contains(t, texts[len(texts)-1], "Only 1 1D points")
}

func TestReport_WritesAndArchives(t *testing.T) {
	db, err := storage.OpenSQLite("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.InitSchema(db))
	store := storage.NewStore(db)
	dir := t.TempDir()

	h, s := newTestHandlers(t, Deps{Prices: &stubPrices{frame: priceFrame(t)}, Reports: store, ReportsDir: dir})
	h.HandleMessage(message("/report"))

	texts := s.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "Building report…", texts[0])
	assert.Contains(t, texts[1], "Assets: AAPL, MSFT, GOOGL")
	assert.Contains(t, texts[1], "Saved "+dir)

	recs, err := store.RecentReports(5)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestReport_NoData(t *testing.T) {
	h, s := newTestHandlers(t, Deps{Prices: &stubPrices{}})
	h.HandleMessage(message("/report"))
	assert.Equal(t, "No data to report for AAPL, MSFT, GOOGL.", s.texts()[1])
}

func TestHelpAndIgnoredText(t *testing.T) {
	h, s := newTestHandlers(t, Deps{QuoteSymbol: "AAPL"})

	h.HandleMessage(message("good morning"))
	h.HandleMessage(message("/unknown"))
	assert.Empty(t, s.texts())

	h.HandleMessage(message("/help"))
	require.Len(t, s.texts(), 1)
	assert.Contains(t, s.texts()[0], "/backtest")
	assert.Contains(t, s.texts()[0], "BTC-USD")
}

func TestWebhookHandler(t *testing.T) {
	h, s := newTestHandlers(t, Deps{})
	b := &Bot{h: h}

	rec := httptest.NewRecorder()
	b.WebhookHandler(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	b.WebhookHandler(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(`{"update_id":1}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := []byte(`{"update_id":2,"message":{"message_id":1,"date":1700000000,"chat":{"id":42,"type":"private"},"from":{"id":7,"is_bot":false,"first_name":"x"},"text":"/help"}}`)
	rec = httptest.NewRecorder()
	b.WebhookHandler(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case c := <-s.ch:
		m, ok := c.(tgbotapi.MessageConfig)
		require.True(t, ok)
		assert.Equal(t, int64(42), m.ChatID)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
}
