package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostelcare/internal/config"
	"hostelcare/internal/database"
	"hostelcare/internal/domain/complaint"
	"hostelcare/internal/domain/conversation"
	"hostelcare/internal/domain/notification"
	"hostelcare/internal/domain/user"
	"hostelcare/internal/pkg/id"
	jwtsvc "hostelcare/internal/pkg/jwt"
	"hostelcare/internal/realtime"
	"hostelcare/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		slog.InfoContext(ctx, "no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)
	logger.InfoContext(ctx, "hostelcare starting", "addr", cfg.HTTPAddr)

	if err := id.Init(cfg.NodeID); err != nil {
		logger.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db,
		&user.User{},
		&complaint.Complaint{},
		&conversation.Entry{},
		&notification.Notification{},
	); err != nil {
		logger.ErrorContext(ctx, "failed to migrate database", "error", err)
		os.Exit(1)
	}

	feed, err := newFeed(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to set up change feed", "error", err)
		os.Exit(1)
	}
	publisher := realtime.NewPublisher(feed, logger)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	userRepo := user.NewRepository(db)
	remarkRepo := conversation.NewRepository(db)
	complaintRepo := complaint.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	var deliverers []notification.Deliverer
	if cfg.SMTP.Enabled() {
		deliverers = append(deliverers, notification.NewMailer(notification.NewDialer(cfg.SMTP), userRepo, cfg.SMTP.From))
		logger.InfoContext(ctx, "email delivery enabled", "smtp_host", cfg.SMTP.Host)
	}

	dispatcher := notification.NewDispatcher(
		notificationRepo,
		userRepo,
		publisher,
		logger,
		notification.DispatcherConfig{Workers: cfg.DispatchWorkers, QueueSize: cfg.DispatchQueue},
		deliverers...,
	)
	dispatcher.Start()

	userService := user.NewService(userRepo, j)
	complaintService := complaint.NewService(complaintRepo, remarkRepo, userRepo, dispatcher, publisher, logger)
	notificationService := notification.NewService(notificationRepo, publisher)

	hub := realtime.NewHub(feed, j, complaint.VisibleChange, cfg.CORSAllowedOrigins, logger)

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := server.NewRouter(server.RouterConfig{
		JWT:           j,
		Users:         user.NewHandler(userService),
		Complaints:    complaint.NewHandler(complaintService),
		Notifications: notification.NewHandler(notificationService),
		Hub:           hub,
		CORSOrigins:   cfg.CORSAllowedOrigins,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}
	hub.Shutdown()
	dispatcher.Close()
	if err := feed.Close(); err != nil {
		logger.ErrorContext(shutdownCtx, "feed close error", "error", err)
	}

	logger.InfoContext(shutdownCtx, "shutdown complete")
}

// newFeed uses Redis Streams when REDIS_URL is set so several instances
// share one change log; otherwise changes stay in process.
func newFeed(ctx context.Context, cfg *config.Config, logger *slog.Logger) (realtime.Feed, error) {
	if cfg.RedisURL == "" {
		logger.InfoContext(ctx, "using in-memory change feed")
		return realtime.NewMemoryFeed(0, 0, logger), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "redis connected", "stream", cfg.RealtimeStream)

	return realtime.NewRedisFeed(client, realtime.RedisConfig{
		Stream: cfg.RealtimeStream,
		MaxLen: cfg.RealtimeMaxLen,
	}, logger), nil
}
