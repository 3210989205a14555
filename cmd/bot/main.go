// Package main is the entry point for the design-system assistant bot.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/ds-assistant/internal/auditlog"
	"github.com/capitalize-ai/ds-assistant/internal/catalog"
	"github.com/capitalize-ai/ds-assistant/internal/config"
	"github.com/capitalize-ai/ds-assistant/internal/dispatch"
	"github.com/capitalize-ai/ds-assistant/internal/handler"
	"github.com/capitalize-ai/ds-assistant/internal/middleware"
	"github.com/capitalize-ai/ds-assistant/internal/model"
	natsclient "github.com/capitalize-ai/ds-assistant/internal/nats"
	"github.com/capitalize-ai/ds-assistant/internal/ratelimit"
	"github.com/capitalize-ai/ds-assistant/internal/service"
	"github.com/capitalize-ai/ds-assistant/internal/telegram"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
	"github.com/capitalize-ai/ds-assistant/pkg/tracing"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	log.Info("starting design-system assistant", zap.Bool("webhook_mode", cfg.WebhookMode()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "ds-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Audit sinks: Sheets when configured, the log otherwise, mirrored to
	// JetStream when NATS is configured.
	var sink auditlog.Sink = auditlog.NewLogSink(log.Named("audit"))

	sheetsCfg := auditlog.SheetsConfig{
		SpreadsheetID:   cfg.AuditSpreadsheetID,
		SheetName:       cfg.AuditSheetName,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		WritesPerSecond: cfg.AuditWriteRate,
	}
	if sheetsCfg.Enabled() {
		sheetsSink, err := auditlog.NewSheetsSink(ctx, sheetsCfg)
		if err != nil {
			log.Warn("failed to create sheets audit sink, logging audit events instead", zap.Error(err))
		} else {
			sink = sheetsSink
		}
	}

	var natsConn handler.Connection
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log.Named("nats"))
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()
		natsConn = natsClient

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		sink = auditlog.NewTeeSink(sink, streamManager, log.Named("audit"))
	}

	audit := auditlog.NewBuffer(sink, log.Named("audit"),
		auditlog.WithMaxSize(cfg.AuditBufferSize),
		auditlog.WithInterval(cfg.AuditFlushInterval),
	)

	// Catalog
	cache := catalog.NewCache(
		catalog.NewHTTPSource(cfg.CSVURL, &http.Client{Timeout: cfg.CatalogFetchTimeout}),
		log.Named("catalog"),
		catalog.WithTTL(cfg.CatalogTTL),
		catalog.WithFetchTimeout(cfg.CatalogFetchTimeout),
	)
	go cache.Snapshot(ctx)

	// Telegram
	tg, err := telegram.NewClient(telegram.Config{
		Token:         cfg.BotToken,
		SendRate:      cfg.TelegramSendRate,
		PollTimeout:   cfg.TelegramPollTimeout,
		WebhookSecret: cfg.WebhookSecret,
	}, log.Named("telegram"))
	if err != nil {
		log.Error("failed to create telegram client", zap.Error(err))
		os.Exit(1)
	}

	// Handlers run on their own context so queued work can drain after a signal.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	// Initialize services
	messageSvc := service.NewMessageService(tg, log.Named("messages"),
		service.WithChunking(cfg.MessageChunkSize, cfg.MessageChunkDelay),
	)
	classifier := service.NewClassifier(cfg.MobileFiles, cfg.IconFiles)
	searchSvc := service.NewSearchService(cache, classifier, log.Named("search"))
	conversationSvc := service.NewConversationService(searchSvc, messageSvc, audit, log.Named("conversation"),
		service.WithBatchSize(cfg.ResultBatchSize),
	)
	dispatcher := dispatch.New(workCtx, conversationSvc.Process, log.Named("dispatch"),
		dispatch.WithQueueSize(cfg.DispatchQueueSize),
	)
	limiter := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	gate := service.NewGate(limiter, dispatcher, messageSvc, audit, log.Named("gate"))

	// Background workers
	var background sync.WaitGroup

	auditCtx, cancelAudit := context.WithCancel(context.Background())
	background.Add(1)
	go func() {
		defer background.Done()
		audit.Run(auditCtx)
	}()

	background.Add(1)
	go func() {
		defer background.Done()
		limiter.Run(ctx, cfg.RateLimitSweepInterval)
	}()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(cache, natsConn)
	catalogHandler := handler.NewCatalogHandler(cache, classifier, searchSvc, log.Named("api"))
	webhookHandler := handler.NewWebhookHandler(gate, tg.Secret(), log.Named("webhook"))

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log.Named("http")))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.GetHead)

	// Health endpoints
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	if cfg.WebhookMode() {
		r.Post("/telegram/webhook", webhookHandler.Handle)
	}

	// Read-only catalog API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS())
		r.Use(middleware.RateLimit(cfg.HTTPRateLimitRequests, cfg.HTTPRateLimitWindow))

		r.Get("/catalog", catalogHandler.Stats)
		r.Get("/components", catalogHandler.Search)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Receive updates
	pollDone := make(chan struct{})
	if cfg.WebhookMode() {
		close(pollDone)
		if err := tg.SetWebhook(cfg.WebhookURL); err != nil {
			log.Error("failed to register webhook", zap.Error(err))
			os.Exit(1)
		}
	} else {
		go func() {
			defer close(pollDone)
			err := tg.Poll(ctx, func(u model.Update) {
				gate.Accept(workCtx, u)
			})
			if err != nil {
				log.Error("polling stopped", zap.Error(err))
				stop()
			}
		}()
	}

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutting down")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	<-pollDone

	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Warn("dispatch queues did not drain", zap.Error(err), zap.Int("active", dispatcher.Active()))
	}
	cancelWork()

	// The audit buffer flushes once more after every handler has finished.
	cancelAudit()
	background.Wait()

	log.Info("stopped")
}
