package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"

	"quantDashboard/internal/config"
	"quantDashboard/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, isTerminal(os.Stderr))

	dash, err := config.LoadDashboard(cfg.DefaultsPath)
	if err != nil {
		mainLog.Error().Err(err).Str("path", cfg.DefaultsPath).Msg("config: dashboard defaults unreadable, using built-ins")
		dash = config.DefaultDashboard()
	}
	a := &app{cfg: cfg, dash: dash}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&onceCmd{app: a}, "quotes")
	commander.Register(&loopCmd{app: a}, "quotes")
	commander.Register(&historyCmd{app: a}, "quotes")
	commander.Register(&backtestCmd{app: a}, "analysis")
	commander.Register(&strategyCmd{app: a}, "analysis")
	commander.Register(&reportCmd{app: a}, "analysis")
	commander.Register(&serveCmd{app: a}, "dashboard")

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
