package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MandiCast/internal/domain/repository"
	"MandiCast/internal/handler/advice"
	"MandiCast/internal/handler/ops"
	"MandiCast/internal/services/bundle"
	"MandiCast/internal/usecase"
	pkgch "MandiCast/pkg/clickhouse"
	"MandiCast/pkg/config"
	xhttp "MandiCast/pkg/http"
	pkgkafka "MandiCast/pkg/kafka"
	applogger "MandiCast/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg           *config.Config
	log           *applogger.Logger
	registry      *bundle.Registry
	advisor       *usecase.Advisor
	adviceHandler *advice.Handler
	opsHandler    *ops.Handler
	consumer      *pkgkafka.Consumer
	kh            pkgkafka.MessageHandler
	chClient      *pkgch.Client
	publisher     repository.AuditPublisher
	httpServer    *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	registry *bundle.Registry,
	advisor *usecase.Advisor,
	adviceHandler *advice.Handler,
	opsHandler *ops.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	publisher repository.AuditPublisher,
) *App {
	return &App{
		cfg:           cfg,
		log:           log,
		registry:      registry,
		advisor:       advisor,
		adviceHandler: adviceHandler,
		opsHandler:    opsHandler,
		consumer:      consumer,
		kh:            kh,
		chClient:      chClient,
		publisher:     publisher,
	}
}

// Advisor exposes the advice pipeline for one-shot runs.
func (a *App) Advisor() *usecase.Advisor { return a.advisor }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.cfg.Models.Preload && len(a.cfg.Models.Commodities) > 0 {
		if err := a.registry.Preload(a.cfg.Models.Commodities); err != nil {
			a.log.Error("model preload failed", applogger.Error(err))
			return err
		}
		a.log.Info("models preloaded", applogger.Strings("commodities", a.cfg.Models.Commodities))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	a.httpServer = xhttp.NewServer(a.opsHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if a.adviceHandler != nil {
		a.adviceHandler.RegisterRoutes(a.httpServer.Echo())
	}
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("ops server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("audit publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
