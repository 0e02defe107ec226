package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"quantDashboard/internal/finance"
	"quantDashboard/internal/storage"
)

type onceCmd struct {
	*app
	symbol string
}

func (*onceCmd) Name() string     { return "once" }
func (*onceCmd) Synopsis() string { return "fetch one live quote and append it to the price log" }
func (*onceCmd) Usage() string {
	return `quantdash once [-symbol SYM]

  Fetches the current price from Finnhub and appends it to the CSV log and
  the sqlite prices table. Needs FINNHUB_API_KEY.
`
}

func (c *onceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", c.cfg.QuoteSymbol, "symbol to quote")
}

func (c *onceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.cfg.Require("FINNHUB_API_KEY"); err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	c.symbol = strings.ToUpper(c.symbol)
	db, err := c.openDB()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	q, err := appendQuote(ctx, finance.NewFinnhubClient(c.cfg.FinnhubKey), c.priceLog(db, c.symbol), c.symbol)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Appended: %s %s at %s\n", q.Symbol, q.Price.String(), q.Time.Format(time.RFC3339))
	return subcommands.ExitSuccess
}

type loopCmd struct {
	*app
	symbol   string
	interval time.Duration
}

func (*loopCmd) Name() string     { return "loop" }
func (*loopCmd) Synopsis() string { return "append a live quote every interval until interrupted" }
func (*loopCmd) Usage() string {
	return `quantdash loop [-symbol SYM] [-every 5m]

  Runs "once" repeatedly. Fetch errors are logged and the loop goes on.
`
}

func (c *loopCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", c.cfg.QuoteSymbol, "symbol to quote")
	f.DurationVar(&c.interval, "every", c.cfg.LoopInterval, "time between quotes")
}

func (c *loopCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.cfg.Require("FINNHUB_API_KEY"); err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	c.symbol = strings.ToUpper(c.symbol)
	if c.interval <= 0 {
		fail("-every must be positive")
		return subcommands.ExitUsageError
	}
	db, err := c.openDB()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	quoteLoop(ctx, finance.NewFinnhubClient(c.cfg.FinnhubKey), c.priceLog(db, c.symbol), c.symbol, c.interval)
	return subcommands.ExitSuccess
}

// quoteLoop appends a quote right away and then on every tick until ctx ends.
func quoteLoop(ctx context.Context, src quoter, log storage.PriceLog, symbol string, every time.Duration) {
	mainLog.Info().Str("symbol", symbol).Dur("every", every).Msg("loop: started")
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		q, err := appendQuote(ctx, src, log, symbol)
		if err != nil {
			mainLog.Error().Err(err).Str("symbol", symbol).Msg("loop: quote failed")
		} else {
			mainLog.Info().Str("symbol", q.Symbol).Str("price", q.Price.String()).Msg("loop: appended")
		}
		select {
		case <-ctx.Done():
			mainLog.Info().Msg("loop: stopped")
			return
		case <-t.C:
		}
	}
}

type historyCmd struct {
	*app
	symbol   string
	interval string
	window   string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "backfill the price log from Yahoo intraday bars" }
func (*historyCmd) Usage() string {
	return `quantdash history [-symbol SYM] [-interval 5m] [-range 5d]

  Appends Yahoo closes to the price log. Bars whose timestamp is already
  logged are skipped; logged quotes are kept.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", c.cfg.QuoteSymbol, "symbol to backfill")
	f.StringVar(&c.interval, "interval", "5m", "bar size (1m, 5m, 15m, 1h, 1d)")
	f.StringVar(&c.window, "range", "5d", "Yahoo range (1d, 5d, 1mo, ...)")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	c.symbol = strings.ToUpper(c.symbol)
	data, err := finance.NewYahooClient().FetchSeries(ctx, c.symbol, c.interval, c.window)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	db, err := c.openDB()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	n, err := backfill(c.priceLog(db, c.symbol), data)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Appended %d %s bars for %s\n", n, c.interval, data.Symbol)
	return subcommands.ExitSuccess
}

// backfill appends the closes in data whose timestamps are not logged yet,
// filling gaps before and after existing quotes, and returns how many were
// written.
func backfill(log storage.PriceLog, data finance.AssetData) (int, error) {
	logged := map[int64]bool{}
	quotes, err := log.Load(data.Symbol)
	if err != nil && !errors.Is(err, storage.ErrEmptyLog) {
		return 0, fmt.Errorf("load price log: %w", err)
	}
	for _, q := range quotes {
		logged[q.Time.Unix()] = true
	}
	n := 0
	for i, ts := range data.Timestamps {
		if logged[ts] {
			continue
		}
		logged[ts] = true
		at := time.Unix(ts, 0).UTC()
		q := finance.Quote{Symbol: data.Symbol, Time: at, Price: decimal.NewFromFloat(data.Closes[i])}
		if err := log.Append(q); err != nil {
			return n, fmt.Errorf("append %s: %w", at.Format(time.RFC3339), err)
		}
		n++
	}
	return n, nil
}
