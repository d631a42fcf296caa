package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/handler/ws"
	mid "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/middleware"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/usecase"
	pkgch "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/clickhouse"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/config"
	xhttp "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/http"
	pkgkafka "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/kafka"
	applogger "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/logger"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	pipe       *mid.RealtimePipeline
	consumer   *pkgkafka.Consumer
	router     *usecase.ResultRouter
	retryQueue *queue.RedisQueue
	hub        *ws.Hub
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	pipe *mid.RealtimePipeline,
	consumer *pkgkafka.Consumer,
	router *usecase.ResultRouter,
	retryQueue *queue.RedisQueue,
	hub *ws.Hub,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		pipe:       pipe,
		consumer:   consumer,
		router:     router,
		retryQueue: retryQueue,
		hub:        hub,
		chClient:   chClient,
		httpServer: xhttp.NewServer(httpHandler,
			xhttp.WithPort(cfg.Server.Port),
			xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background flushing of buffered ticks
	a.pipe.Start(ctx)
	a.l.Info("pipeline started", applogger.Strings("symbols", a.cfg.Engine.Symbols))

	// Replay of failed backend deliveries. Start also launches the retry
	// processor for consumer modes.
	if a.retryQueue != nil {
		if err := a.retryQueue.Start(); err != nil {
			a.l.Warn("retry queue start error", applogger.Error(err))
		} else {
			a.l.Info("retry queue started")
		}
	}

	// Start consumer if configured
	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started",
			applogger.String("ticks_topic", a.cfg.Kafka.TicksTopic),
			applogger.String("outcomes_topic", a.cfg.Kafka.OutcomesTopic))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// Stop ingesting before draining downstream resources
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	a.pipe.Stop()

	if a.retryQueue != nil {
		if err := a.retryQueue.Stop(ctx); err != nil {
			a.l.Warn("retry queue stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	// Disconnect websocket subscribers
	if a.hub != nil {
		a.hub.Close()
	}

	// Close publisher and store
	if a.router != nil {
		a.router.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Flush any aggregated logs before exit
	a.l.RemoveCollector()

	a.l.Info("shutdown complete")
	return nil
}
