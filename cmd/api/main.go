package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"kb-relay/internal/app"
	"kb-relay/internal/chat"
	"kb-relay/internal/config"
	apihttp "kb-relay/internal/http"
	"kb-relay/internal/metrics"
	"kb-relay/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	clients, err := app.NewClients(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init clients", zap.Error(err))
	}
	defer clients.Close()

	sessionRepo, err := clients.NewSessionRepository(ctx, cfg)
	if err != nil {
		logger.Fatal("session repository", zap.Error(err))
	}
	kbClient, err := clients.NewKnowledgeClient(cfg, logger)
	if err != nil {
		logger.Fatal("knowledge client", zap.Error(err))
	}

	slackClient := slack.New(cfg.SlackBotToken)
	botUserID, err := chat.ResolveBotUserID(ctx, slackClient)
	if err != nil {
		logger.Fatal("resolve bot user", zap.Error(err))
	}
	if cfg.SlackSigningSecret == "" {
		logger.Warn("slack signing secret not configured, requests are not verified")
	}

	m := metrics.New()
	sessionSvc := service.NewSessionService(sessionRepo, logger, cfg.SessionTTL)
	relaySvc := service.NewRelayService(logger, sessionSvc, kbClient, chat.NewSlackSender(slackClient),
		service.WithRateLimiter(clients.NewRateLimiter(cfg)),
		service.WithMetrics(m),
		service.WithFallbackMessage(cfg.FallbackMessage),
	)
	eventsHandler := apihttp.NewEventsHandler(logger, clients.NewDeduplicator(cfg), relaySvc, m, botUserID, cfg.ProcessAsync, cfg.KnowledgeTimeout)
	router := apihttp.NewRouter(logger, eventsHandler, m, cfg.SlackSigningSecret)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("bot_user_id", botUserID),
		zap.String("session_backend", cfg.SessionBackend),
		zap.String("dedup_backend", cfg.DedupBackend),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
