package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/yenceelabs/speak-to-slides/internal/api"
	"github.com/yenceelabs/speak-to-slides/internal/infra/config"
	"github.com/yenceelabs/speak-to-slides/internal/infra/httpclient"
	"github.com/yenceelabs/speak-to-slides/internal/infra/limiter"
	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
	"github.com/yenceelabs/speak-to-slides/internal/service/compiler"
	"github.com/yenceelabs/speak-to-slides/internal/service/conversation"
	"github.com/yenceelabs/speak-to-slides/internal/service/llm"
	"github.com/yenceelabs/speak-to-slides/internal/service/storage"
	"github.com/yenceelabs/speak-to-slides/internal/service/telegram"
	"github.com/yenceelabs/speak-to-slides/internal/service/transcribe"
	"github.com/yenceelabs/speak-to-slides/internal/store"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Init logger
	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	// Init HTTP client
	httpClient := httpclient.New(httpclient.Options{
		Timeout:    time.Duration(cfg.HTTPClient.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.HTTPClient.MaxRetries,
	})

	// Init limiter
	lim := limiter.New(cfg.Limiter.MaxConcurrent, cfg.Limiter.RatePerSecond)

	// Open persistence
	st, err := store.Open(cfg.Storage.SQLitePath)
	if err != nil {
		zapLogger.Error("failed to open store", "path", cfg.Storage.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	filesBase := strings.TrimRight(cfg.Server.PublicBaseURL, "/") + cfg.Storage.FilesBaseURL
	storageSvc := storage.New(cfg.Storage.UploadDir, filesBase, zapLogger)

	// Init LLM clients
	if cfg.LLM.AnthropicAPIKey == "" {
		zapLogger.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	primary := llm.NewAnthropic(cfg.LLM.AnthropicAPIKey, cfg.LLM.FastModel, cfg.LLM.QualityModel)
	var fallback llm.Client
	if cfg.LLM.OpenRouterAPIKey != "" {
		fallback = llm.NewOpenRouter(cfg.LLM.OpenRouterAPIKey, cfg.LLM.OpenRouterModel)
	}
	llmSvc := llm.New(primary, fallback, zapLogger)

	// Init services
	compilerSvc := compiler.New(llmSvc, zapLogger)
	engine := conversation.NewEngine(llmSvc, compilerSvc, st, cfg.Server.PublicBaseURL, zapLogger)
	transcribeSvc := transcribe.New(cfg.OpenAI.APIKey, zapLogger)
	tgClient := telegram.New(cfg.Telegram.BotToken, httpClient, zapLogger)

	// Init handlers and router
	handler := api.NewHandler(compilerSvc, engine, st, storageSvc, lim,
		cfg.Server.PublicBaseURL, cfg.Server.InternalSecret, zapLogger)
	tgHandler := api.NewTelegramHandler(engine, st, tgClient, transcribeSvc, storageSvc, lim,
		cfg.Telegram.WebhookSecret, zapLogger)
	router := api.NewRouter(handler, tgHandler, storageSvc.Dir(), zapLogger)

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	// Start server
	go func() {
		zapLogger.Info("starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server forced to shutdown", "error", err)
	}
	zapLogger.Info("server stopped")
}
