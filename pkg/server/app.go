package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"RatePull/internal/usecase"
	"RatePull/pkg/config"
	xhttp "RatePull/pkg/http"
	pkgkafka "RatePull/pkg/kafka"
	applogger "RatePull/pkg/logger"
	pkgpg "RatePull/pkg/postgres"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	scheduler   *usecase.Scheduler
	processor   *usecase.ObservationProcessor
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	pgClient    *pkgpg.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	scheduler *usecase.Scheduler,
	processor *usecase.ObservationProcessor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	pgClient *pkgpg.Client,
) *App {
	return &App{
		cfg:       cfg,
		scheduler: scheduler,
		processor: processor,
		consumer:  consumer,
		kh:        kh,
		pgClient:  pgClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init app logger (console info by default)
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start hourly acquisition
	if a.scheduler != nil && a.cfg.Scheduler.Enabled {
		a.scheduler.Start(ctx)
		l.Info("scheduler started", applogger.String("timezone", a.cfg.Timezone))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// best-effort logging via stdout
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}
	l.Info("shutting down...")

	// Stop scheduler; an in-flight run is allowed to finish
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close processor resources (publisher)
	if a.processor != nil {
		a.processor.Close()
	}

	// Close infrastructure clients
	if a.pgClient != nil {
		if err := a.pgClient.Close(); err != nil {
			l.Warn("postgres close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
