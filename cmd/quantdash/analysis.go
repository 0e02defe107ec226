package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"quantDashboard/internal/finance"
	"quantDashboard/internal/portfolio"
	"quantDashboard/internal/report"
	"quantDashboard/internal/storage"
	"quantDashboard/internal/strategy"
)

type backtestCmd struct {
	*app
	initial  float64
	rf       float64
	chartDir string
}

func (*backtestCmd) Name() string     { return "backtest" }
func (*backtestCmd) Synopsis() string { return "backtest a weighted portfolio on Yahoo daily closes" }
func (*backtestCmd) Usage() string {
	return `quantdash backtest [-initial 100] [-rf 0] [-charts DIR] [S1 [w1] S2 [w2] ... [rebalance] [period]]

  Without symbols the dashboard default tickers are used. Weights are given
  for every symbol or none (equal weight). Rebalance is never, weekly,
  monthly or quarterly; period is e.g. 6mo, 1y, 2y. Both default to the
  dashboard settings.
`
}

func (c *backtestCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.initial, "initial", c.dash.InitialValue, "initial portfolio value")
	f.Float64Var(&c.rf, "rf", c.dash.RiskFreeRate, "annual risk-free rate for the Sharpe ratio")
	f.StringVar(&c.chartDir, "charts", "", "write PNG charts to this directory")
}

func (c *backtestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req, err := c.request(f.Args())
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	prices := c.priceService().Prices(ctx, req.Symbols, req.Period)
	if prices.Empty() {
		fail("no price data for %s", strings.Join(req.Symbols, ", "))
		return subcommands.ExitFailure
	}
	res, err := portfolio.Backtest(prices, req.Weights, c.initial, req.Rebalance)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	if res.Empty() {
		fail("not enough overlapping data for %s", strings.Join(prices.Assets, ", "))
		return subcommands.ExitFailure
	}
	sum := portfolio.Summarize(res, c.rf, c.dash.PeriodsPerYear)

	var b strings.Builder
	fmt.Fprintf(&b, "# Backtest %s\n\n", strings.Join(res.Prices.Assets, ", "))
	fmt.Fprintf(&b, "%s rebalancing over %s, %d dates\n\n", req.Rebalance, req.Period, res.Value.Len())
	b.WriteString(report.KPITable(sum))
	b.WriteString("\n## Correlation\n\n")
	b.WriteString(report.CorrelationTable(sum.Correlation))
	printMarkdown(b.String())

	if c.chartDir != "" {
		paths, err := writeBacktestCharts(c.chartDir, res, sum)
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		for _, p := range paths {
			fmt.Println("Wrote", p)
		}
	}
	return subcommands.ExitSuccess
}

// request parses the positional arguments, falling back to the dashboard
// tickers, weights and rebalance policy when no symbol is given.
func (c *backtestCmd) request(args []string) (finance.BacktestRequest, error) {
	if len(args) == 0 {
		req := finance.BacktestRequest{
			Symbols:   c.dash.Tickers,
			Rebalance: portfolio.ParseFrequency(c.dash.Rebalance),
			Period:    c.dash.Period,
		}
		if len(c.dash.Weights) > 0 {
			req.Weights = portfolio.Weights(c.dash.Weights)
		}
		return req, nil
	}
	req, err := finance.ParseBacktestCommand(strings.Join(args, " "))
	if err != nil {
		return req, err
	}
	if len(req.Symbols) < c.dash.MinAssets {
		return req, fmt.Errorf("select at least %d assets", c.dash.MinAssets)
	}
	if req.Period == "" {
		req.Period = c.dash.Period
	}
	if req.Rebalance == "" {
		req.Rebalance = portfolio.ParseFrequency(c.dash.Rebalance)
	}
	return req, nil
}

func writeBacktestCharts(dir string, res portfolio.Result, sum portfolio.Summary) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}
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
	var paths []string
	for _, ch := range charts {
		img, err := ch.render()
		if err != nil {
			return paths, fmt.Errorf("%s chart: %w", ch.name, err)
		}
		p := filepath.Join(dir, "backtest_"+ch.name+".png")
		if err := os.WriteFile(p, img, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

type strategyCmd struct {
	*app
	symbol      string
	periodicity string
	kind        string
	window      int
	chart       string
}

func (*strategyCmd) Name() string     { return "strategy" }
func (*strategyCmd) Synopsis() string { return "run buy & hold or momentum on the logged quotes" }
func (*strategyCmd) Usage() string {
	return `quantdash strategy [-p raw|15min|1h|1d] [-s bh|momentum] [-n N] [-chart FILE]

  Reads the price log, resamples it and evaluates the strategy.
`
}

func (c *strategyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", c.cfg.QuoteSymbol, "logged symbol")
	f.StringVar(&c.periodicity, "p", "raw", "resample periodicity")
	f.StringVar(&c.kind, "s", "bh", "strategy (bh, momentum)")
	f.IntVar(&c.window, "n", c.dash.MomentumWindow, "momentum lookback in periods")
	f.StringVar(&c.chart, "chart", "", "write a PNG of price vs strategy to this file")
}

func (c *strategyCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	per, err := strategy.ParsePeriodicity(c.periodicity)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	kind, err := strategy.ParseKind(c.kind)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	sym := strings.ToUpper(c.symbol)
	quotes, err := storage.NewCSVLog(c.cfg.PriceLog, sym).Load(sym)
	if errors.Is(err, storage.ErrEmptyLog) {
		fail("no prices logged for %s in %s, run `quantdash once` first", sym, c.cfg.PriceLog)
		return subcommands.ExitFailure
	}
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	series := strategy.Resample(storage.QuoteSeries(quotes), per)
	out, err := strategy.Run(series, strategy.Params{Kind: kind, Window: c.window})
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(strategyMarkdown(sym, per, kind, c.window, out))

	if c.chart != "" {
		img, err := finance.StrategyChart(sym+" "+string(kind), out.Price, out.Equity)
		if err == nil {
			err = os.WriteFile(c.chart, img, 0o644)
		}
		if err != nil {
			fail("chart: %v", err)
			return subcommands.ExitFailure
		}
		fmt.Println("Wrote", c.chart)
	}
	return subcommands.ExitSuccess
}

func strategyMarkdown(sym string, per strategy.Periodicity, kind strategy.Kind, window int, out strategy.Outcome) string {
	name := string(kind)
	if kind == strategy.Momentum {
		name = fmt.Sprintf("%s (%d)", name, window)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", sym, name)
	fmt.Fprintf(&b, "%d %s points, %s to %s\n\n", out.Price.Len(), per,
		out.Price.Dates[0].Format("2006-01-02 15:04"), out.Price.Dates[out.Price.Len()-1].Format("2006-01-02 15:04"))
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total return | %s |\n", report.Pct(out.TotalReturn))
	fmt.Fprintf(&b, "| Max drawdown | %s |\n", report.Pct(out.MaxDrawdown))
	fmt.Fprintf(&b, "| Sharpe | %s |\n", report.Num(out.Sharpe, 2))
	fmt.Fprintf(&b, "| Volatility | %s |\n", report.Pct(out.Vol))
	fmt.Fprintf(&b, "| Final value | %s |\n", report.Num(out.Equity.Last(), 2))
	return b.String()
}

type reportCmd struct {
	*app
	tickers string
	period  string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "write the daily portfolio report" }
func (*reportCmd) Usage() string {
	return `quantdash report [-tickers AAPL,MSFT,GOOGL] [-period 2y]

  Backtests the dashboard tickers with their default settings, writes
  portfolio_report_YYYYMMDD.csv to REPORTS_DIR and archives it in sqlite.
  Adds an LLM commentary when OPENAI_API_KEY is set.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.tickers, "tickers", strings.Join(c.dash.Tickers, ","), "comma separated tickers")
	f.StringVar(&c.period, "period", c.dash.Period, "history period")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	opts := report.DashboardOptions(c.dash)
	opts.Tickers = splitTickers(c.tickers)
	opts.Period = c.period
	opts.Commentator = c.commentator()

	r, err := report.Run(ctx, c.priceService(), opts)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	path, err := r.WriteCSV(c.cfg.ReportsDir)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	db, err := c.openDB()
	if err != nil {
		mainLog.Warn().Err(err).Msg("report: archive unavailable")
	} else {
		defer db.Close()
		if err := storage.NewStore(db).SaveReport(r.Record()); err != nil {
			mainLog.Warn().Err(err).Msg("report: archive failed")
		}
	}

	printMarkdown(r.Markdown())
	fmt.Println("Report saved:", path)
	return subcommands.ExitSuccess
}
