package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quantDashboard/internal/config"
	"quantDashboard/internal/finance"
	"quantDashboard/internal/logging"
	"quantDashboard/internal/openai"
	"quantDashboard/internal/report"
	"quantDashboard/internal/storage"
)

var mainLog = logging.New("main")

// app carries what every subcommand shares.
type app struct {
	cfg  config.Config
	dash config.Dashboard
}

func (a *app) openDB() (storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.OpenSQLite("file:" + a.cfg.DBPath + "?_fk=1")
	if err != nil {
		return nil, err
	}
	if err := storage.InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	mainLog.Debug().Str("path", a.cfg.DBPath).Msg("db: opened sqlite")
	return db, nil
}

// priceLog writes quotes to the CSV log and the sqlite table; reads come
// from the CSV.
func (a *app) priceLog(db storage.DB, symbol string) storage.PriceLog {
	return storage.MultiLog{
		storage.NewCSVLog(a.cfg.PriceLog, symbol),
		storage.NewSQLiteLog(db),
	}
}

func (a *app) priceService() *finance.PriceService {
	return finance.NewPriceService(finance.NewYahooClient(), finance.DefaultCacheTTL)
}

// commentator is nil without an OpenAI key.
func (a *app) commentator() report.Commentator {
	if a.cfg.OpenAIKey == "" {
		return nil
	}
	return openai.NewCommentator(a.cfg.OpenAIKey)
}

type quoter interface {
	Quote(ctx context.Context, symbol string) (finance.Quote, error)
}

// appendQuote fetches the latest quote for symbol and appends it to log.
func appendQuote(ctx context.Context, src quoter, log storage.PriceLog, symbol string) (finance.Quote, error) {
	q, err := src.Quote(ctx, symbol)
	if err != nil {
		return finance.Quote{}, err
	}
	if err := log.Append(q); err != nil {
		return finance.Quote{}, fmt.Errorf("append quote: %w", err)
	}
	return q, nil
}

// splitTickers accepts "AAPL,MSFT" or "AAPL MSFT".
func splitTickers(s string) []string {
	return strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool { return r == ',' || r == ' ' })
}

func printMarkdown(md string) {
	out, err := report.Render(md, 100)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
