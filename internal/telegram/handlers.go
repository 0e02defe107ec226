package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quantDashboard/internal/config"
	"quantDashboard/internal/finance"
	"quantDashboard/internal/logging"
	"quantDashboard/internal/portfolio"
	"quantDashboard/internal/report"
	"quantDashboard/internal/storage"
	"quantDashboard/internal/strategy"
)

var tgLog = logging.New("telegram")

var (
	// /backtest S1 [w1] S2 [w2] ... [rebalance] [period]
	reBacktest = regexp.MustCompile(`^/backtest(?:@[\w_]+)?(?:\s+.*)?$`)
	// /price [SYMBOL]
	rePrice = regexp.MustCompile(`^/price(?:@[\w_]+)?(?:\s+([A-Za-z0-9\.^_=+-]+))?$`)
	// /strategy [raw|15min|1h|1d] [bh|momentum] [N]
	reStrategy = regexp.MustCompile(`^/strategy(?:@[\w_]+)?((?:\s+\S+){0,3})$`)
	reReport   = regexp.MustCompile(`^/report(?:@[\w_]+)?$`)
	reHelp     = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// sender is the part of *tgbotapi.BotAPI the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// QuoteSource is satisfied by finance.FinnhubClient.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (finance.Quote, error)
}

// Deps are the services behind the chat commands. Quotes, Log, Reports and
// Commentator are optional; commands needing a missing one say so.
type Deps struct {
	Prices      report.PriceSource
	Quotes      QuoteSource
	Log         storage.PriceLog
	Reports     *storage.Store
	Commentator report.Commentator
	Dashboard   config.Dashboard
	QuoteSymbol string
	ReportsDir  string
}

type Handlers struct {
	api     sender
	d       Deps
	timeout time.Duration
}

func NewHandlers(api sender, d Deps) *Handlers {
	if d.QuoteSymbol == "" {
		d.QuoteSymbol = "AAPL"
	}
	return &Handlers{api: api, d: d, timeout: 90 * time.Second}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	if m == nil || m.Chat == nil {
		return
	}
	txt := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(txt, "/") {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	chatID := m.Chat.ID
	switch {
	case reBacktest.MatchString(txt):
		h.handleBacktest(ctx, chatID, txt)

	case rePrice.MatchString(txt):
		sym := h.d.QuoteSymbol
		if g := rePrice.FindStringSubmatch(txt); g[1] != "" {
			sym = strings.ToUpper(g[1])
		}
		h.handlePrice(ctx, chatID, sym)

	case reStrategy.MatchString(txt):
		g := reStrategy.FindStringSubmatch(txt)
		h.handleStrategy(chatID, strings.Fields(g[1]))

	case reReport.MatchString(txt):
		h.reply(chatID, "Building report…")
		h.handleReport(ctx, chatID)

	case reHelp.MatchString(txt):
		h.handleHelp(chatID)

	default:
		tgLog.Debug().Int64("chat_id", chatID).Str("text", txt).Msg("telegram: unknown command")
	}
}

func (h *Handlers) handleBacktest(ctx context.Context, chatID int64, txt string) {
	req, err := finance.ParseBacktestCommand(txt)
	if err != nil {
		h.reply(chatID, "Backtest: "+err.Error()+"\nUsage: /backtest AAPL 0.5 MSFT 0.3 GOOGL 0.2 monthly 2y")
		return
	}
	if need := h.d.Dashboard.MinAssets; len(req.Symbols) < need {
		h.reply(chatID, fmt.Sprintf("Select at least %d assets, e.g. /backtest %s", need, strings.Join(h.d.Dashboard.Tickers, " ")))
		return
	}
	period := req.Period
	if period == "" {
		period = h.d.Dashboard.Period
	}
	if req.Rebalance == "" {
		req.Rebalance = portfolio.ParseFrequency(h.d.Dashboard.Rebalance)
	}

	prices := h.d.Prices.Prices(ctx, req.Symbols, period)
	if prices.Empty() {
		h.reply(chatID, "No price data for "+strings.Join(req.Symbols, ", ")+". Check the tickers and try again.")
		return
	}
	res, err := portfolio.Backtest(prices, req.Weights, h.d.Dashboard.InitialValue, req.Rebalance)
	if err != nil {
		h.reply(chatID, "Backtest failed: "+err.Error())
		return
	}
	if res.Empty() {
		h.reply(chatID, "Not enough overlapping data to backtest "+strings.Join(prices.Assets, ", ")+".")
		return
	}
	sum := portfolio.Summarize(res, h.d.Dashboard.RiskFreeRate, h.d.Dashboard.PeriodsPerYear)

	caption := strings.Join(res.Prices.Assets, ", ") + " • " + string(req.Rebalance) + " • " + strings.ToUpper(period)
	charts := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{"value", func() ([]byte, error) { return finance.PricesAndValueChart(res) }},
		{"cumulative", func() ([]byte, error) { return finance.CumulativeChart(res) }},
		{"drawdown", func() ([]byte, error) { return finance.DrawdownChart(res.Value) }},
		{"weights", func() ([]byte, error) { return finance.WeightsChart(res.WeightsHistory) }},
		{"correlation", func() ([]byte, error) { return finance.CorrelationTable(sum.Correlation) }},
	}
	for _, c := range charts {
		img, err := c.render()
		if err != nil {
			tgLog.Warn().Err(err).Str("chart", c.name).Msg("telegram: chart failed")
			continue
		}
		h.sendPhoto(chatID, "backtest_"+c.name+".png", img, caption)
	}
	h.reply(chatID, kpiText(caption, sum))
}

func kpiText(title string, s portfolio.Summary) string {
	var b strings.Builder
	b.WriteString(title + "\n\n")
	fmt.Fprintf(&b, "Final value: %s\n", report.Num(s.FinalValue, 2))
	fmt.Fprintf(&b, "Ann. return: %s\n", report.Pct(s.AnnReturn))
	fmt.Fprintf(&b, "Ann. vol: %s\n", report.Pct(s.AnnVol))
	fmt.Fprintf(&b, "Sharpe: %s\n", report.Num(s.Sharpe, 2))
	fmt.Fprintf(&b, "Max drawdown: %s\n", report.Pct(s.MaxDrawdown))
	fmt.Fprintf(&b, "Diversification: %s", report.Num(s.Diversification, 4))
	return b.String()
}

func (h *Handlers) handlePrice(ctx context.Context, chatID int64, sym string) {
	if h.d.Quotes == nil {
		h.reply(chatID, "Live quotes are not configured (FINNHUB_API_KEY).")
		return
	}
	q, err := h.d.Quotes.Quote(ctx, sym)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Couldn’t fetch %s: %v", sym, err))
		return
	}
	if h.d.Log != nil && q.Symbol == h.d.QuoteSymbol {
		if err := h.d.Log.Append(q); err != nil {
			tgLog.Warn().Err(err).Str("symbol", q.Symbol).Msg("telegram: append quote failed")
		}
	}
	h.reply(chatID, fmt.Sprintf("%s %s at %s UTC", q.Symbol, q.Price.StringFixed(2), q.Time.UTC().Format(time.DateTime)))
}

type strategyArgs struct {
	per    strategy.Periodicity
	params strategy.Params
}

// parseStrategyArgs reads up to three tokens in any order: a periodicity,
// a strategy name and a momentum window.
func parseStrategyArgs(args []string, defWindow int) (strategyArgs, error) {
	out := strategyArgs{per: strategy.Raw, params: strategy.Params{Kind: strategy.BuyAndHold, Window: defWindow}}
	for _, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			if n < 1 {
				return strategyArgs{}, fmt.Errorf("window must be positive, got %d", n)
			}
			out.params.Window = n
			continue
		}
		if p, err := strategy.ParsePeriodicity(a); err == nil {
			out.per = p
			continue
		}
		k, err := strategy.ParseKind(a)
		if err != nil {
			return strategyArgs{}, fmt.Errorf("unknown argument %q", a)
		}
		out.params.Kind = k
	}
	return out, nil
}

func (h *Handlers) handleStrategy(chatID int64, args []string) {
	sa, err := parseStrategyArgs(args, h.d.Dashboard.MomentumWindow)
	if err != nil {
		h.reply(chatID, "Strategy: "+err.Error()+"\nUsage: /strategy [raw|15min|1h|1d] [bh|momentum] [N]")
		return
	}
	if h.d.Log == nil {
		h.reply(chatID, "No price log configured.")
		return
	}
	sym := h.d.QuoteSymbol
	quotes, err := h.d.Log.Load(sym)
	if errors.Is(err, storage.ErrEmptyLog) {
		h.reply(chatID, "No prices logged for "+sym+" yet. Run `quantdash once` or /price first.")
		return
	}
	if err != nil {
		h.reply(chatID, "Strategy failed: "+err.Error())
		return
	}

	series := strategy.Resample(storage.QuoteSeries(quotes), sa.per)
	out, err := strategy.Run(series, sa.params)
	if errors.Is(err, strategy.ErrTooFewPoints) {
		h.reply(chatID, fmt.Sprintf("Only %d %s points for %s; need at least 3.", series.Len(), sa.per, sym))
		return
	}
	if err != nil {
		h.reply(chatID, "Strategy failed: "+err.Error())
		return
	}

	name := string(sa.params.Kind)
	if sa.params.Kind == strategy.Momentum {
		name = fmt.Sprintf("%s(%d)", name, sa.params.Window)
	}
	caption := fmt.Sprintf("%s • %s • %s\nTotal return: %s • Max DD: %s • Sharpe: %s",
		sym, name, sa.per, report.Pct(out.TotalReturn), report.Pct(out.MaxDrawdown), report.Num(out.Sharpe, 2))
	img, err := finance.StrategyChart(sym+" "+name, out.Price, out.Equity)
	if err != nil {
		tgLog.Warn().Err(err).Msg("telegram: strategy chart failed")
		h.reply(chatID, caption)
		return
	}
	h.sendPhoto(chatID, strings.ToLower(sym)+"_strategy.png", img, caption)
}

func (h *Handlers) handleReport(ctx context.Context, chatID int64) {
	opts := report.DashboardOptions(h.d.Dashboard)
	opts.Commentator = h.d.Commentator
	r, err := report.Run(ctx, h.d.Prices, opts)
	if errors.Is(err, finance.ErrNoData) {
		h.reply(chatID, "No data to report for "+strings.Join(opts.Tickers, ", ")+".")
		return
	}
	if err != nil {
		h.reply(chatID, "Report failed: "+err.Error())
		return
	}

	text := r.Facts()
	if r.Commentary != "" {
		text += "\n" + r.Commentary
	}
	if h.d.ReportsDir != "" {
		if path, err := r.WriteCSV(h.d.ReportsDir); err != nil {
			tgLog.Error().Err(err).Msg("telegram: write report failed")
		} else {
			text += "\nSaved " + path
		}
	}
	if h.d.Reports != nil {
		if err := h.d.Reports.SaveReport(r.Record()); err != nil {
			tgLog.Error().Err(err).Msg("telegram: archive report failed")
		}
	}
	h.reply(chatID, text)
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /backtest S1 [w1] S2 [w2] ... [never|weekly|monthly|quarterly] [period] - Backtest a portfolio; weights for all or none (equal weight)\n" +
		"- /price [SYMBOL] - Live quote; the tracked symbol (" + h.d.QuoteSymbol + ") is also logged\n" +
		"- /strategy [raw|15min|1h|1d] [bh|momentum] [N] - Strategy on the logged " + h.d.QuoteSymbol + " prices\n" +
		"- /report - Daily report for " + strings.Join(h.d.Dashboard.Tickers, ", ") + "\n" +
		fmt.Sprintf("\nAt least %d assets per backtest. Periods like 6mo, 1y, 2y, 5y (default %s).\n", h.d.Dashboard.MinAssets, h.d.Dashboard.Period) +
		"Universe: " + strings.Join(h.d.Dashboard.Universe, ", ")
	h.reply(chatID, help)
}

func (h *Handlers) sendPhoto(chatID int64, name string, img []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: img})
	photo.Caption = caption
	if _, err := h.api.Send(photo); err != nil {
		tgLog.Warn().Err(err).Str("file", name).Msg("telegram: send photo failed")
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		tgLog.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram: send failed")
	}
}
