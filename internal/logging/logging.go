package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// debugTopics holds components forced to debug level via DEBUG_TOPICS=backtest,yahoo (or "all").
var debugTopics = parseTopics(os.Getenv("DEBUG_TOPICS"))

func parseTopics(raw string) map[string]bool {
	topics := map[string]bool{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return topics
	}
	if raw == "all" {
		topics["*"] = true
		return topics
	}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			topics[t] = true
		}
	}
	return topics
}

// Setup configures the global logger. Unknown levels fall back to info.
func Setup(level string, pretty bool) {
	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Logger is a component logger. It resolves the global logger on every call,
// so package-level loggers declared before Setup still pick up its output.
// Usage: var btLog = logging.New("backtest")
type Logger struct {
	component string
}

func New(component string) *Logger {
	return &Logger{component: component}
}

// Zerolog returns the underlying logger tagged with component=<name>.
func (l *Logger) Zerolog() zerolog.Logger {
	z := log.Logger.With().Str("component", l.component).Logger()
	if TopicEnabled(l.component) {
		z = z.Level(zerolog.DebugLevel)
	}
	return z
}

func (l *Logger) Debug() *zerolog.Event {
	z := l.Zerolog()
	return z.Debug()
}

func (l *Logger) Info() *zerolog.Event {
	z := l.Zerolog()
	return z.Info()
}

func (l *Logger) Warn() *zerolog.Event {
	z := l.Zerolog()
	return z.Warn()
}

func (l *Logger) Error() *zerolog.Event {
	z := l.Zerolog()
	return z.Error()
}

// Enabled is true when the component logs at debug level.
// Useful for expensive computations: if log.Enabled() { ... }
func (l *Logger) Enabled() bool {
	z := l.Zerolog()
	return z.GetLevel() <= zerolog.DebugLevel
}

// TopicEnabled reports whether DEBUG_TOPICS selects the component.
func TopicEnabled(component string) bool {
	return debugTopics["*"] || debugTopics[component]
}
