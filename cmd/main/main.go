package main

import (
	"github.com/alecthomas/kingpin/v2"
	"github.com/maxbolgarin/autover/internal/app"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/logze/v2"
)

var (
	Version, Branch, Commit, BuildDate string
)

var (
	configPath = kingpin.Flag("config", "path to config file").Short('c').String()
	once       = kingpin.Flag("once", "scan recent commits once and exit").Bool()
	analyze    = kingpin.Flag("analyze", "analyze a single commit hash and exit").String()
)

func main() {
	kingpin.Parse()
	var err error
	ctx := contem.New(contem.WithLogger(logze.DefaultPtr()), contem.Exit(&err))
	defer ctx.Shutdown()
	err = run(ctx)
	if err != nil {
		logze.DefaultPtr().Error("cannot run", "error", err)
	}
}

func run(ctx contem.Context) error {
	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		return erro.Wrap(err, "load config")
	}
	logze.Init(logze.C().WithConsole().WithLevel(logLevel(cfg.LogLevel)))

	autover, err := app.New(ctx, cfg)
	if err != nil {
		return erro.Wrap(err, "new service")
	}

	if *analyze != "" {
		entry, err := autover.AnalyzeCommit(ctx, *analyze)
		if err != nil {
			return erro.Wrap(err, "analyze commit")
		}
		logze.Info("commit analyzed",
			"commit", entry.Decision.CommitHash,
			"tier", entry.Decision.Tier,
			"new_version", entry.Decision.NewVersion,
			"confidence", entry.Decision.Confidence,
			"status", entry.Status,
		)
		return nil
	}

	if *once {
		if err := autover.RunScan(ctx); err != nil {
			return erro.Wrap(err, "run scan")
		}
		return nil
	}

	if err := autover.Start(ctx); err != nil {
		return erro.Wrap(err, "start service")
	}

	<-ctx.Done()
	return nil
}

func logLevel(level string) string {
	switch level {
	case "debug":
		return logze.LevelDebug
	case "warn":
		return logze.LevelWarn
	case "error":
		return logze.LevelError
	default:
		return logze.LevelInfo
	}
}
