// Command pyfinderd is the shake-map follow-up pipeline daemon: it polls
// the tracker store for due rows and runs the fetch/merge/engine/emit
// pipeline against each one.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sceylan/pyfinder-go/pkg/config"
	"github.com/sceylan/pyfinder-go/pkg/engine"
	"github.com/sceylan/pyfinder-go/pkg/events"
	"github.com/sceylan/pyfinder-go/pkg/health"
	"github.com/sceylan/pyfinder-go/pkg/ingress"
	"github.com/sceylan/pyfinder-go/pkg/log"
	"github.com/sceylan/pyfinder-go/pkg/metrics"
	"github.com/sceylan/pyfinder-go/pkg/providers"
	"github.com/sceylan/pyfinder-go/pkg/scheduler"
	"github.com/sceylan/pyfinder-go/pkg/server"
	"github.com/sceylan/pyfinder-go/pkg/storage"
	"github.com/sceylan/pyfinder-go/pkg/tracker"
	"github.com/sceylan/pyfinder-go/pkg/worker"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pyfinderd",
	Short:   "Earthquake shake-map follow-up pipeline daemon",
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("pyfinderd version %s (%s)\n", Version, Commit))

	rootCmd.Flags().String("config", "/etc/pyfinder/pyfinder.yaml", "Path to the YAML config file")
	rootCmd.Flags().String("http-addr", ":8080", "Address for /health, /ready, /live, /metrics")
	rootCmd.Flags().Bool("test", false, "Replay alerts from --replay-file instead of a live feed")
	rootCmd.Flags().String("replay-file", "", "JSON-lines alert capture to replay under --test")
	rootCmd.Flags().Duration("replay-pace", 0, "Delay between replayed alerts (0 = as fast as possible)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	httpAddr, _ := cmd.Flags().GetString("http-addr")
	testMode, _ := cmd.Flags().GetBool("test")
	replayFile, _ := cmd.Flags().GetString("replay-file")
	replayPace, _ := cmd.Flags().GetDuration("replay-pace")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := log.New(cfg.Log.ToLogConfig())
	metrics.SetVersion(Version)

	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.NewBoltStore(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	metrics.RegisterComponent("storage", true, "bbolt store open")

	registry := cfg.Schedule.BuildRegistry()
	tr := tracker.New(store, registry, log.WithComponent(logger, "tracker"))

	engineRunner := engine.NewRunner(cfg.Engine.BinaryPath, cfg.Engine.WorkingDirRoot)

	httpClient := &http.Client{Timeout: cfg.Provider.HTTPTimeout}
	var rrsmFetcher, esmFetcher providers.Fetcher
	if cfg.Provider.RRSMBaseURL != "" {
		rrsmFetcher = providers.NewRRSM(cfg.Provider.RRSMBaseURL, httpClient)
	}
	if cfg.Provider.ESMBaseURL != "" {
		esmFetcher = providers.NewESM(cfg.Provider.ESMBaseURL, httpClient)
	}

	w := worker.New(worker.Config{
		Tracker:           tr,
		Registry:          registry,
		RRSM:              rrsmFetcher,
		ESM:               esmFetcher,
		Engine:            engineRunner,
		MagnitudeTrigger:  cfg.Engine.MagnitudeTrigger,
		StationDistanceKM: cfg.Engine.StationDistanceKM,
		ExportRoot:        cfg.Export.Root,
		ShakeMapCommand:   cfg.Export.ShakeMapCommand,
		SMTP:              cfg.SMTP,
		LiveMode:          cfg.Engine.LiveMode,
		Logger:            log.WithComponent(logger, "worker"),
	})
	metrics.RegisterComponent("engine", true, "engine runner configured")

	sched := scheduler.NewScheduler(store, tr, w, cfg.Schedule.PoolSize, log.WithComponent(logger, "scheduler"),
		scheduler.WithPollInterval(cfg.Schedule.PollInterval))
	metrics.RegisterComponent("scheduler", true, "poll loop configured")

	broker := events.NewBroker()
	broker.Start()

	dispatcher := ingress.NewDispatcher(tr, ingress.RegionFilter{
		TargetRegions: cfg.Ingress.TargetRegions,
		MinMagnitude:  cfg.Ingress.MinMagnitude,
	}, log.WithComponent(logger, "ingress"))

	done := make(chan struct{})
	go dispatcher.Run(broker.Subscribe(), time.Now, done)

	var source ingress.AlertSource
	if testMode {
		if replayFile == "" {
			return fmt.Errorf("--test requires --replay-file")
		}
		source = ingress.NewFileReplaySource(replayFile, replayPace)
	}

	httpSrv := server.New(httpAddr)
	errCh := make(chan error, 1)
	httpSrv.Start(errCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	if monitor := buildHealthMonitor(cfg); monitor != nil {
		go monitor.Run(ctx)
	}

	if source != nil {
		go func() {
			if err := source.Run(broker, done); err != nil {
				logger.Error().Err(err).Msg("alert source ended with error")
			}
		}()
	}

	logger.Info().Str("http_addr", httpAddr).Bool("test_mode", testMode).Msg("pyfinderd started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server error")
	}

	close(done)
	cancel()
	sched.Stop()
	broker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown error")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// buildHealthMonitor wires an HTTP probe per configured provider and a
// TCP probe for the SMTP relay, or nil if nothing is configured to probe.
func buildHealthMonitor(cfg config.Config) *health.Monitor {
	probeCfg := health.Config{Interval: 30 * time.Second, Timeout: 10 * time.Second, Retries: 2}

	var probes []*health.Probe
	if cfg.Provider.RRSMBaseURL != "" {
		probes = append(probes, health.NewProbe("rrsm", health.NewHTTPChecker(cfg.Provider.RRSMBaseURL), probeCfg))
	}
	if cfg.Provider.ESMBaseURL != "" {
		probes = append(probes, health.NewProbe("esm", health.NewHTTPChecker(cfg.Provider.ESMBaseURL), probeCfg))
	}
	if cfg.SMTP.Host != "" {
		addr := fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
		probes = append(probes, health.NewProbe("smtp", health.NewTCPChecker(addr), probeCfg))
	}

	if len(probes) == 0 {
		return nil
	}
	return health.NewMonitor(probes...)
}
