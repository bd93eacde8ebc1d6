package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/kgantsov/rtos/pkg/config"
	"github.com/kgantsov/rtos/pkg/critical"
	"github.com/kgantsov/rtos/pkg/http"
	"github.com/kgantsov/rtos/pkg/kernel"
	"github.com/kgantsov/rtos/pkg/metrics"
	"github.com/kgantsov/rtos/pkg/sim"
	"github.com/kgantsov/rtos/pkg/storage"
)

func Run(cmd *cobra.Command, args []string) {
	// Load the config
	config, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}

	config.ConfigureLogger()

	if config.Profiling.Enabled {
		defer profile.Start(
			profile.CPUProfile, profile.ProfilePath(config.Storage.DataDir), profile.NoShutdownHook,
		).Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.PrometheusMetrics
	if config.Prometheus.Enabled {
		m = metrics.NewPrometheusMetrics(prometheus.DefaultRegisterer, "rtos", "scheduler")
	}

	stats := metrics.NewSchedulerStats(config.Stats.WindowSize)
	go stats.Start()
	defer stats.Stop()

	opts := []kernel.Option{kernel.WithMetrics(m), kernel.WithStats(stats)}

	// nil interface when tracing is disabled
	var traces http.TraceStore
	if config.Trace.Enabled {
		if err := os.MkdirAll(config.Storage.DataDir, 0700); err != nil {
			log.Fatal().Msgf(
				"failed to create path '%s' for a storage: %s", config.Storage.DataDir, err.Error(),
			)
		}

		db, err := badger.Open(config.BadgerOptions("trace"))
		if err != nil {
			log.Fatal().Msg(err.Error())
		}
		defer db.Close()

		store, err := storage.NewBadgerStore(db, config.Trace.NodeID)
		if err != nil {
			log.Fatal().Msgf("failed to create a trace store: %s", err.Error())
		}

		go store.RunValueLogGC(
			ctx,
			time.Duration(config.Storage.GCInterval)*time.Second,
			config.Storage.GCDiscardRatio,
		)

		opts = append(opts, kernel.WithRecorder(store))
		traces = store
	}

	s := kernel.NewScheduler(config.SchedulerConfig(), critical.NewMutex(), opts...)

	simulator := sim.New(
		s,
		config.TickPeriod(),
		sim.WithMaxTicks(config.Sim.Ticks),
		sim.WithMetrics(m),
		sim.WithStats(stats),
	)
	if err := simulator.Load(config.Sim); err != nil {
		log.Fatal().Msgf("failed to load the workload: %s", err.Error())
	}

	log.Info().Msgf(
		"Starting scheduler with %d tasks at %s per tick and HTTP on %s",
		s.TaskCount(),
		config.TickPeriod(),
		config.Http.Port,
	)

	registry := prometheus.DefaultRegisterer
	h := http.NewHttpService(config, simulator, traces, registry)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return simulator.Run(ctx)
	})
	g.Go(func() error {
		return h.Start()
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return h.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Msgf("scheduler stopped: %s", err.Error())
		return
	}

	snap := s.Snapshot()
	log.Info().Msgf("Scheduler stopped at tick %d after %d steps", snap.Tick, simulator.Steps())
}

func main() {

	rootCmd := config.InitCobraCommand(Run)
	rootCmd.AddCommand(NewCmdTrace())

	if err := rootCmd.Execute(); err != nil {
		log.Warn().Err(err)
	}
}
