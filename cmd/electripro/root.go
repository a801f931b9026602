package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/electripro/electripro/internal/cache"
	"github.com/electripro/electripro/internal/config"
	"github.com/electripro/electripro/internal/logging"
	"github.com/electripro/electripro/internal/metrics"
	"github.com/electripro/electripro/internal/remote"
	"github.com/electripro/electripro/internal/store"
	cloudsync "github.com/electripro/electripro/internal/sync"
	"github.com/electripro/electripro/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "electripro",
	Short: "Offline-first toolkit for electrical contractors",
	Long: `electripro keeps the price catalog, budgets, obras, conteos and labor
plans of an electrical contractor in a local cache and mirrors every change
to an optional remote store (Postgres, Turso, SQLite or DynamoDB).

Configuration is read from electripro.yaml (working directory or
~/.electripro), ELECTRIPRO_* environment variables and a .env file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Init()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Records:"},
		&cobra.Group{ID: "reports", Title: "Reports:"},
		&cobra.Group{ID: "sync", Title: "Sync & Backup:"},
		&cobra.Group{ID: "advanced", Title: "Advanced:"},
	)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./electripro.yaml or ~/.electripro/electripro.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
}

// app is everything a command needs, opened once per invocation.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	closeLog func() error
	cache    *cache.Cache
	remote   remote.Store
	rec      *cloudsync.Reconciler
	stores   *store.Stores
	registry *prometheus.Registry
}

// openApp loads configuration, opens the cache and the remote store and
// initializes the stores. It exits the process on failure.
func openApp(ctx context.Context) *app {
	return openAppWith(ctx, true)
}

// openAppWith is openApp; with load false the stores are left empty so the
// cache is not refreshed from the remote.
func openAppWith(ctx context.Context, load bool) *app {
	cfg, err := config.Load(configFile)
	if err != nil {
		fatalf("%v", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.File = cfg.Log.File
	logger, closeLog, err := logging.New(logCfg)
	if err != nil {
		fatalf("%v", err)
	}

	a := &app{cfg: cfg, log: logger, closeLog: closeLog, registry: prometheus.NewRegistry()}

	a.cache, err = cache.Open(cfg.CachePath(), logger)
	if err != nil {
		a.fail("opening cache: %v", err)
	}

	a.remote, err = remote.Open(ctx, cfg.RemoteStoreConfig(store.Tables()), logger)
	if err != nil {
		a.fail("opening remote store: %v", err)
	}

	a.rec = cloudsync.New(a.cache, a.remote, cloudsync.Options{
		Logger:         logger,
		Metrics:        metrics.NewSync(a.registry),
		OutboxInterval: cfg.Outbox.Interval,
		RemoteTimeout:  cfg.Remote.Timeout,
	})

	a.stores = store.New(a.rec, store.Options{Logger: logger})
	if !load {
		return a
	}
	if err := a.stores.Initialize(ctx); err != nil {
		a.fail("loading records: %v", err)
	}
	return a
}

// Close pushes pending remote writes and releases every resource.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.stores != nil {
		a.stores.Teardown(ctx)
	}
	if a.rec != nil {
		a.rec.Close(ctx)
	}
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close remote store")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close cache")
		}
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// fail closes the app, prints the error and exits with status 1.
func (a *app) fail(format string, args ...any) {
	a.Close()
	fatalf(format, args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("encoding JSON: %v", err)
	}
	fmt.Println(string(data))
}
