package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"askhub/internal/config"
	"askhub/internal/extract"
	"askhub/internal/handlers"
	slackint "askhub/internal/integrations/slack"
	"askhub/internal/jobs"
	"askhub/internal/logging"
	"askhub/internal/middleware"
	"askhub/internal/services"
	"askhub/internal/storage"
	"askhub/internal/vectorstore"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sashabaranov/go-openai"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

func main() {
	logging.SetupLogger()

	slog.Info("Starting askhub", slog.String("version", "1.0.0"))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to open database connection", "error", err)
		os.Exit(1)
	}
	if err := db.Ping(); err != nil {
		slog.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	store := storage.NewPostgresStore(db)
	if err := store.InitSchema(); err != nil {
		slog.Error("Failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	index := vectorstore.NewPGVectorIndex(db)
	if err := index.InitSchema(); err != nil {
		slog.Error("Failed to initialize vector index schema", "error", err)
		os.Exit(1)
	}

	slackClient := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
	socketClient := socketmode.New(slackClient)

	// Resolve the bot's own identity once; with it unresolved, mention
	// detection is disabled and only direct messages trigger replies.
	botUserID := resolveBotUserID(slackClient)

	embedder := services.NewEmbeddingService(cfg.OpenAIAPIKey)
	threads := slackint.NewThreadSource(slackClient)
	assembler := services.NewAssembler(threads, embedder, index, store)
	responder := services.NewResponder(openai.NewClient(cfg.OpenAIAPIKey), store)
	extractor := extract.NewExtractor()

	slackHandler := slackint.NewHandler(
		slackClient, socketClient, botUserID,
		store, index, embedder, assembler, responder, extractor,
	)
	apiHandler := handlers.NewAPIHandler(assembler, responder, store, extractor)
	backfill := jobs.NewVectorBackfill(store, index, embedder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := slackHandler.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Slack event loop exited", "error", err)
		}
	}()
	go backfill.Start(ctx)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.MetricsMiddleware)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.APIRateLimitMiddleware())
	apiRouter.HandleFunc("/chat", apiHandler.HandleChat).Methods("POST")
	apiRouter.HandleFunc("/conversations", apiHandler.HandleConversations).Methods("GET")
	apiRouter.HandleFunc("/upload", apiHandler.HandleUpload).Methods("POST")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Not Ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Server starting", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	cancel()
	backfill.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := store.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}

	slog.Info("Server exited gracefully")
}

func resolveBotUserID(client *slack.Client) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	authTest, err := client.AuthTestContext(ctx)
	if err != nil {
		slog.Warn("Could not resolve bot user ID, mention detection disabled", "error", err)
		return ""
	}

	slog.Info("Bot user ID resolved", "bot_user_id", authTest.UserID)
	return authTest.UserID
}
