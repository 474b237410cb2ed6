// geocheck loads an L2J geodata set and answers queries against it.
//
// Usage:
//
//	go run ./cmd/geocheck regions
//	go run ./cmd/geocheck height -71000 258000 -3100
//	go run ./cmd/geocheck -config config/geodata.yaml serve
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/la2geo/internal/config"
	"github.com/udisondev/la2geo/internal/db"
	"github.com/udisondev/la2geo/internal/game/geo"
)

const ConfigPath = "config/geodata.yaml"

func main() {
	defaultPath := ConfigPath
	if p := os.Getenv("LA2GEO_CONFIG"); p != "" {
		defaultPath = p
	}
	cfgPath := flag.String("config", defaultPath, "path to YAML config")
	flag.Usage = usage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cfgPath, flag.Args(), os.Stdout); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: geocheck [-config path] <command> [args]

commands:
  regions                      list loaded regions
  pos    x y                   dataset address of a world position
  height x y z                 geodata height
  spawn  x y zmin zmax         spawn height for a spawn-list band
  nswe   x y z                 passability mask
  move   x y z tx ty tz        farthest reachable point
  los    x y z tx ty tz        line of sight
  trace  x y z tx ty tz        line of sight with heading and trace
  path   x y z tx ty tz        A* path
  bug    x y z comment...      record a geodata bug report
  serve                        expose /metrics until interrupted
`)
	flag.PrintDefaults()
}

func run(ctx context.Context, cfgPath string, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage()
		return errors.New("no command given")
	}

	cfg, err := config.LoadGeoServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Configure slog based on config.LogLevel
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := geo.NewMetrics(reg)

	store := geo.NewRegionStore(logger, metrics)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing geodata", "err", err)
		}
	}()

	started := time.Now()
	err = store.Load(ctx, geo.LoadOptions{
		Dir:       cfg.Geodata.Dir,
		Manifest:  cfg.Geodata.ManifestPath(),
		ForceLoad: cfg.Geodata.ForceLoad,
		Workers:   cfg.Geodata.LoadWorkers,
		Checksums: cfg.Geodata.Checksums,
	})
	if err != nil {
		return fmt.Errorf("loading geodata: %w", err)
	}
	logger.Debug("geodata ready", "regions", store.Count(), "elapsed", time.Since(started))

	opts := []geo.Option{geo.WithLogger(logger), geo.WithMetrics(metrics)}
	// Only the bug command submits reports.
	if args[0] == "bug" {
		bugs, closeBugs, err := openBugSink(ctx, cfg)
		if err != nil {
			return fmt.Errorf("opening bug sink: %w", err)
		}
		defer closeBugs()
		opts = append(opts, geo.WithBugReporter(bugs))
	}
	engine := geo.NewEngine(store, opts...)

	if args[0] == "serve" {
		return serve(ctx, logger, cfg.MetricsAddr, reg)
	}
	return execute(ctx, engine, out, args[0], args[1:])
}

// openBugSink opens the configured bug report destination.
func openBugSink(ctx context.Context, cfg config.GeoServer) (geo.BugReporter, func(), error) {
	switch cfg.Geodata.BugSink {
	case config.BugSinkPostgres:
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("geodata bug reports go to postgres", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)
		return db.NewGeoBugRepository(database.Pool()), database.Close, nil

	default:
		bugLog, err := geo.OpenBugLog(cfg.Geodata.BugLog)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("geodata bug reports go to file", "path", cfg.Geodata.BugLog)
		return bugLog, func() { _ = bugLog.Close() }, nil
	}
}

// serve exposes Prometheus metrics until ctx is cancelled.
func serve(ctx context.Context, logger *slog.Logger, addr string, reg *prometheus.Registry) error {
	if addr == "" {
		return errors.New("metrics_addr is empty")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down metrics server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
