/*
Package main is the entry point for the Flirto server.

It is responsible for loading configuration, initializing the global logging system,
connecting to PostgreSQL and the optional Redis cache, wiring the chat core
(presence, broadcast, protocol engine, analysis), setting up the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"flirto/internal/app/analysis"
	"flirto/internal/app/chat"
	"flirto/internal/app/db"
	"flirto/internal/app/store"
	"flirto/internal/configs"
	"flirto/internal/handler"
	"flirto/internal/pkg/auth/jwt"
	"flirto/internal/pkg/logx"
)

const analysisTimeout = 20 * time.Second

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("history_limit", cfg.HistoryLimit).
		Bool("membership_self_heal", cfg.MembershipSelfHeal).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and apply migrations.
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	queries := store.New(pool)

	// The message cache is optional acceleration; without Redis every
	// join-room history read goes straight to PostgreSQL.
	var cache *store.MessageCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logx.Fatal(err, "Failed to connect to Redis")
		}
		defer redisClient.Close()
		cache = store.NewMessageCache(redisClient, cfg.HistoryLimit, *logx.Logger())
		logx.Info("Message cache enabled", "redis_addr", cfg.RedisAddr)
	}

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		logx.Fatal(err, "Failed to initialize conversation analyzer")
	}

	// Wire the chat core.
	presence := chat.NewPresence()
	broadcaster := chat.NewBroadcaster(presence)

	dispatcher := analysis.NewDispatcher(queries, analyzer, func(roomID int64, result analysis.Result) {
		broadcaster.ToRoom(roomID, chat.EventAnalysisResult, result, "")
	}, cfg.HistoryLimit, analysisTimeout)

	engine := chat.NewEngine(chat.EngineDeps{
		Store:     queries,
		Cache:     cache,
		Verifier:  jwt.NewVerifier(cfg.JWTSecret),
		Presence:  presence,
		Broadcast: broadcaster,
		Analysis:  dispatcher,
	}, chat.Options{
		HistoryLimit:       cfg.HistoryLimit,
		MaxMessageRunes:    cfg.MaxMessageRunes,
		SelfHealMembership: cfg.MembershipSelfHeal,
	})

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Config: cfg,
		Store:  queries,
		Engine: engine,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Flirto Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}

// buildAnalyzer composes the conversation analyzer: Gemini with a local
// keyword fallback when an API key is configured, the local analyzer alone
// otherwise.
func buildAnalyzer(cfg *configs.AppConfig) (analysis.Analyzer, error) {
	local, err := analysis.NewKeywordAnalyzer()
	if err != nil {
		return nil, err
	}

	if cfg.GeminiAPIKey == "" {
		logx.Info("GEMINI_API_KEY not set, using local conversation analyzer")
		return local, nil
	}

	return analysis.NewService(analysis.NewGeminiClient(cfg.GeminiAPIKey), local), nil
}
