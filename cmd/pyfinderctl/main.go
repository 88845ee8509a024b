// Command pyfinderctl runs the shake-map pipeline for a single event
// outside the daemon's poll loop, for manual reprocessing and testing.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sceylan/pyfinder-go/pkg/config"
	"github.com/sceylan/pyfinder-go/pkg/engine"
	"github.com/sceylan/pyfinder-go/pkg/log"
	"github.com/sceylan/pyfinder-go/pkg/providers"
	"github.com/sceylan/pyfinder-go/pkg/storage"
	"github.com/sceylan/pyfinder-go/pkg/tracker"
	"github.com/sceylan/pyfinder-go/pkg/types"
	"github.com/sceylan/pyfinder-go/pkg/worker"
)

var rootCmd = &cobra.Command{
	Use:   "pyfinderctl",
	Short: "Run or inspect the shake-map pipeline for a single event",
	RunE:  runOnce,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().String("event-id", "", "Catalog event id to process (required)")
	rootCmd.Flags().Bool("test", false, "Run against a synthetic in-memory store instead of the daemon's bolt store")
	rootCmd.Flags().Bool("use-lib", false, "Reserved: invoke the engine as a linked library instead of a child process (unsupported, logged only)")
	rootCmd.Flags().Bool("with-seiscomp", false, "Reserved: also push the solution to a SeisComP messaging bus (unsupported, logged only)")
	rootCmd.Flags().String("verbosity", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-file", "", "Write logs to this file instead of stdout")
	rootCmd.Flags().String("config", "/etc/pyfinder/pyfinder.yaml", "Path to the YAML config file")
	_ = rootCmd.MarkFlagRequired("event-id")
}

func runOnce(cmd *cobra.Command, args []string) error {
	eventID, _ := cmd.Flags().GetString("event-id")
	testMode, _ := cmd.Flags().GetBool("test")
	useLib, _ := cmd.Flags().GetBool("use-lib")
	withSeiscomp, _ := cmd.Flags().GetBool("with-seiscomp")
	verbosity, _ := cmd.Flags().GetString("verbosity")
	logFile, _ := cmd.Flags().GetString("log-file")
	configPath, _ := cmd.Flags().GetString("config")

	logger := log.New(log.Config{Level: log.Level(verbosity), LogFile: logFile})

	if useLib {
		logger.Warn().Msg("--use-lib requested but the engine runner only supports child-process invocation")
	}
	if withSeiscomp {
		logger.Warn().Msg("--with-seiscomp requested but no SeisComP messaging bus is wired in this build")
	}

	cfg, err := config.Load(configPath)
	if err != nil && !testMode {
		return err
	}
	if err != nil {
		cfg = config.Default()
	}

	var store storage.Store
	if testMode {
		store = storage.NewInMemoryStore()
	} else {
		if mkErr := os.MkdirAll(cfg.Store.DataDir, 0o755); mkErr != nil {
			return mkErr
		}
		store, err = storage.NewBoltStore(cfg.Store.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	registry := cfg.Schedule.BuildRegistry()
	tr := tracker.New(store, registry, log.WithComponent(logger, "tracker"))

	now := time.Now()
	alert := types.AlertRecord{
		UNID:        eventID,
		Time:        now.UTC().Format(time.RFC3339),
		Magnitude:   cfg.Engine.MagnitudeTrigger,
		FlynnRegion: "manual run",
	}
	if _, err := tr.RegisterNewSchedule(eventID, alert, now); err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}

	row, err := tr.Get(types.Key{EventID: eventID, Service: "RRSM", DelayMinutes: 0})
	if err != nil {
		return fmt.Errorf("fetch row: %w", err)
	}

	var rrsmFetcher, esmFetcher providers.Fetcher
	if cfg.Provider.RRSMBaseURL != "" {
		rrsmFetcher = providers.NewRRSM(cfg.Provider.RRSMBaseURL, nil)
	}
	if cfg.Provider.ESMBaseURL != "" {
		esmFetcher = providers.NewESM(cfg.Provider.ESMBaseURL, nil)
	}

	w := worker.New(worker.Config{
		Tracker:           tr,
		Registry:          registry,
		RRSM:              rrsmFetcher,
		ESM:               esmFetcher,
		Engine:            engine.NewRunner(cfg.Engine.BinaryPath, cfg.Engine.WorkingDirRoot),
		MagnitudeTrigger:  cfg.Engine.MagnitudeTrigger,
		StationDistanceKM: cfg.Engine.StationDistanceKM,
		ExportRoot:        cfg.Export.Root,
		ShakeMapCommand:   cfg.Export.ShakeMapCommand,
		SMTP:              cfg.SMTP,
		LiveMode:          cfg.Engine.LiveMode,
		Logger:            log.WithComponent(logger, "worker"),
	})

	w.Process(context.Background(), row)

	final, err := tr.Get(row.Key)
	if err != nil {
		return err
	}
	if final.Status == types.StatusIncomplete {
		return fmt.Errorf("run failed: %s", final.LastError)
	}

	logger.Info().Str("event_id", eventID).Str("status", string(final.Status)).Msg("run complete")
	return nil
}
