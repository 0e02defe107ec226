package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"quantDashboard/internal/finance"
	"quantDashboard/internal/server"
	"quantDashboard/internal/storage"
	"quantDashboard/internal/telegram"
)

type serveCmd struct {
	*app
	logQuotes bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the Telegram dashboard and the report API" }
func (*serveCmd) Usage() string {
	return `quantdash serve [-log-quotes]

  Registers the Telegram webhook and listens on PORT for /telegram/webhook,
  /healthz and /reports. Needs TELEGRAM_BOT_TOKEN and WEBHOOK_PUBLIC_URL.
  With -log-quotes (and FINNHUB_API_KEY) the quote loop runs alongside.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.logQuotes, "log-quotes", false, "append a live quote every LOOP_INTERVAL")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.cfg.Require("TELEGRAM_BOT_TOKEN", "WEBHOOK_PUBLIC_URL"); err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	db, err := c.openDB()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	store := storage.NewStore(db)
	plog := c.priceLog(db, c.cfg.QuoteSymbol)
	deps := telegram.Deps{
		Prices:      c.priceService(),
		Log:         plog,
		Reports:     store,
		Commentator: c.commentator(),
		Dashboard:   c.dash,
		QuoteSymbol: c.cfg.QuoteSymbol,
		ReportsDir:  c.cfg.ReportsDir,
	}
	if c.cfg.FinnhubKey != "" {
		fh := finance.NewFinnhubClient(c.cfg.FinnhubKey)
		deps.Quotes = fh
		if c.logQuotes {
			go quoteLoop(ctx, fh, plog, c.cfg.QuoteSymbol, c.cfg.LoopInterval)
		}
	} else if c.logQuotes {
		mainLog.Warn().Msg("serve: -log-quotes needs FINNHUB_API_KEY, not logging")
	}

	tg, err := telegram.NewBot(c.cfg.TelegramToken, c.cfg.WebhookPublicURL, deps)
	if err != nil {
		fail("telegram: %v", err)
		return subcommands.ExitFailure
	}

	mux := server.NewHTTPMux(tg.WebhookHandler, store)
	if err := server.ListenAndServe(ctx, ":"+c.cfg.Port, mux); err != nil {
		fail("server: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
