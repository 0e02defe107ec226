package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"quantDashboard/internal/logging"
)

var cfgLog = logging.New("config")

// Config is read from the environment. Secrets are optional at load time;
// each command checks the ones it needs with Require.
type Config struct {
	Port         string
	DBPath       string
	PriceLog     string
	ReportsDir   string
	DefaultsPath string
	QuoteSymbol  string
	LoopInterval time.Duration
	LogLevel     string

	FinnhubKey       string
	TelegramToken    string
	WebhookPublicURL string
	OpenAIKey        string
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func Load() Config {
	interval := 5 * time.Minute
	if raw := os.Getenv("LOOP_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			cfgLog.Warn().Str("value", raw).Msg("config: invalid LOOP_INTERVAL, using 5m")
		} else {
			interval = d
		}
	}
	return Config{
		Port:         envOr("PORT", "9095"),
		DBPath:       envOr("DB_PATH", "data/prices.db"),
		PriceLog:     envOr("PRICE_LOG", "data/aapl_prices.csv"),
		ReportsDir:   envOr("REPORTS_DIR", "reports"),
		DefaultsPath: envOr("DEFAULTS_PATH", "configuration/dashboard.yaml"),
		QuoteSymbol:  strings.ToUpper(envOr("QUOTE_SYMBOL", "AAPL")),
		LoopInterval: interval,
		LogLevel:     envOr("LOG_LEVEL", "info"),

		FinnhubKey:       os.Getenv("FINNHUB_API_KEY"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookPublicURL: os.Getenv("WEBHOOK_PUBLIC_URL"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
	}
}

// Require reports the secrets among keys (environment variable names) that are unset.
func (c Config) Require(keys ...string) error {
	values := map[string]string{
		"FINNHUB_API_KEY":    c.FinnhubKey,
		"TELEGRAM_BOT_TOKEN": c.TelegramToken,
		"WEBHOOK_PUBLIC_URL": c.WebhookPublicURL,
		"OPENAI_API_KEY":     c.OpenAIKey,
	}
	var missing []string
	for _, k := range keys {
		v, known := values[k]
		if !known {
			v = os.Getenv(k)
		}
		if v == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env %s", strings.Join(missing, ", "))
	}
	return nil
}
