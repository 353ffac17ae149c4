package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"PriceLens/pkg/config"
	xhttp "PriceLens/pkg/http"
	applogger "PriceLens/pkg/logger"
)

// App encapsulates the dashboard lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	opts        []xhttp.ServerOption
	closers     []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, h xhttp.Handler, opts ...xhttp.ServerOption) *App {
	return &App{
		cfg:         cfg,
		log:         l,
		httpHandler: h,
		opts:        opts,
	}
}

// OnShutdown registers a resource closed after the HTTP server stops, in
// reverse registration order.
func (a *App) OnShutdown(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Server builds the HTTP server on first use.
func (a *App) Server() *xhttp.Server {
	if a.httpServer == nil {
		opts := append([]xhttp.ServerOption{
			xhttp.WithHost(a.cfg.Server.Host),
			xhttp.WithPort(a.cfg.Server.Port),
			xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
			xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path, a.cfg.Metrics.SlowThreshold),
			xhttp.WithLogger(a.log),
		}, a.opts...)
		a.httpServer = xhttp.NewServer(a.httpHandler, opts...)
	}
	return a.httpServer
}

// Run starts the application and blocks until interrupted or ctx ends.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := a.Server()
	if err := srv.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("dashboard started",
		applogger.String("addr", srv.Addr()),
		applogger.String("data_source", a.cfg.Data.Source),
		applogger.String("models_dir", a.cfg.Models.Dir),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
