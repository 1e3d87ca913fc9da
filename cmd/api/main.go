// Package main is the entry point for the lab maintenance API server.
//
// One process serves the HTTP API and runs the scheduler: the
// working-hours reminder sweep, the periodic history report and the
// optional keep-alive ping. Everything stops on SIGINT/SIGTERM; queued
// push notifications are drained before the store is closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"labmaint/internal/api/handlers"
	"labmaint/internal/config"
	"labmaint/internal/core"
	"labmaint/internal/external"
	"labmaint/internal/maintenance"
	"labmaint/internal/notifications"
	"labmaint/internal/report"
	"labmaint/internal/scheduler"
	"labmaint/internal/storage"
	"labmaint/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(config.NewSecretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("labmaint API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	return a.serve(ctx)
}

// app is the fully wired process.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store      *storage.Handle
	clients    *external.ClientRegistry
	dispatcher *notifications.Dispatcher
	server     *core.Server
	runner     *scheduler.Runner
	keepAlive  *scheduler.KeepAlive
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...external.RegistryOption) (*app, error) {
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}

	store, err := storage.Open(ctx, cfg.Store, logger.With("component", "store"))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, store: store}

	if err := a.wire(ctx, loc, opts); err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, loc *time.Location, opts []external.RegistryOption) error {
	cfg, logger := a.cfg, a.logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewCollector(reg)

	clients, err := external.NewClientRegistry(ctx, cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("creating external clients: %w", err)
	}
	a.clients = clients

	machines := maintenance.NewRecomputingStore(a.store.Repo, time.Now, loc, logger)

	a.dispatcher = notifications.NewDispatcher(clients.Push, cfg.Push,
		notifications.WithMetrics(metrics),
		notifications.WithLogger(logger.With("component", "push")),
	)

	workflow := maintenance.NewCompletionWorkflow(machines, a.dispatcher,
		maintenance.WithLocation(loc),
		maintenance.WithLogger(logger),
	)

	exporter := report.NewExporter(machines, clients.Email, clients.Archive, cfg.Report, cfg.Email, loc,
		report.WithMetrics(metrics),
		report.WithLogger(logger.With("component", "report")),
	)

	reminderCfg, err := scheduler.NewReminderConfig(cfg.Schedule)
	if err != nil {
		return err
	}
	jobs := []scheduler.Job{
		scheduler.NewReminderService(machines, a.dispatcher, reminderCfg, metrics, logger.With("component", "reminders")),
	}
	if cfg.Report.Enabled() {
		job, err := scheduler.NewReportJob(exporter, cfg.Report, loc, logger.With("component", "report"))
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	} else {
		logger.Info("history report disabled: no REPORT_RECIPIENTS or REPORT_BUCKET")
	}
	a.runner = scheduler.NewRunner(cfg.Schedule.TickInterval, logger.With("component", "scheduler"), jobs...)

	if cfg.KeepAlive.URL != "" {
		a.keepAlive = scheduler.NewKeepAlive(cfg.KeepAlive.URL, cfg.KeepAlive.Interval,
			&http.Client{Timeout: 30 * time.Second}, logger.With("component", "keepalive"))
	}

	srv, err := core.NewServer(cfg.Server, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metrics
	srv.MetricsHandler = metrics.Handler()
	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{ProbeName: "store", Fn: a.store.Ping})

	machineHandler := handlers.NewMachineHandler(machines, workflow, srv.Validator, logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(a.dispatcher, logger)
	reportHandler := handlers.NewReportHandler(exporter, logger)
	srv.RouteRegistrars = append(srv.RouteRegistrars,
		machineHandler.RegisterRoutes,
		subscriptionHandler.RegisterRoutes,
		reportHandler.RegisterRoutes,
	)
	srv.MountRoutes()
	a.server = srv
	return nil
}

// serve runs the HTTP listener and the background loops until ctx is
// cancelled or one of them fails.
func (a *app) serve(ctx context.Context) error {
	addr := ":" + a.cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("HTTP server shutdown error", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.runner.Start(gctx)
	})
	if a.keepAlive != nil {
		g.Go(func() error {
			return a.keepAlive.Start(gctx)
		})
	}

	err := g.Wait()
	a.logger.Info("server stopped")
	return err
}

// close drains in-flight notifications and releases the store.
func (a *app) close() {
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	a.store.Close()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
