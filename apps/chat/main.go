package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gardenly/chat-service/pkg/auth"
	"github.com/gardenly/chat-service/pkg/chat"
	"github.com/gardenly/chat-service/pkg/db"
	"github.com/gardenly/chat-service/pkg/journal"
	"github.com/gardenly/chat-service/pkg/presence"
	"github.com/gardenly/chat-service/pkg/store/mongostore"
	"github.com/gardenly/chat-service/pkg/ws"
)

const shutdownTimeout = 30 * time.Second

func main() {
	listenAddr := getEnv("LISTEN_ADDR", ":8082")
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDB := getEnv("MONGO_DB", "gardenly")
	jwtSecret := getEnv("JWT_SECRET", "")
	redisAddr := getEnv("REDIS_ADDR", "")
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")
	kafkaTopic := getEnv("KAFKA_TOPIC", "chat-events")
	logLevel := getEnv("LOG_LEVEL", "info")

	logger := newLogger(logLevel)
	defer logger.Sync()

	if jwtSecret == "" {
		jwtSecret = "dev_secret_change_me"
		logger.Warn("JWT_SECRET not set, using development secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongo, err := db.Connect(ctx, mongoURI, mongoDB)
	if err != nil {
		logger.Fatal("mongodb connect failed", zap.String("uri", mongoURI), zap.Error(err))
	}
	if err := mongo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongodb index setup failed", zap.Error(err))
	}
	logger.Info("connected to mongodb", zap.String("database", mongoDB))

	verifier := auth.NewVerifier([]byte(jwtSecret))
	service := chat.NewService(mongostore.New(mongo.Database))

	registry := ws.NewRegistry(logger)

	var mirror *presence.Mirror
	if redisAddr != "" {
		mirror = presence.NewMirror(redisAddr, logger)
		registry.SetPresenceListener(mirror)
		logger.Info("presence mirror enabled", zap.String("redis", redisAddr))
	}

	var feed *journal.Journal
	var wsJournal ws.MutationJournal
	if kafkaBrokers != "" {
		feed = journal.New(strings.Split(kafkaBrokers, ","), kafkaTopic, logger)
		wsJournal = feed
		logger.Info("mutation journal enabled",
			zap.String("brokers", kafkaBrokers),
			zap.String("topic", kafkaTopic))
	}

	hub := ws.NewHub(registry, logger)
	tracker := ws.NewTracker(ws.DefaultTypingWindow, logger)
	go tracker.Run(ctx)

	wsHandler := ws.NewHandler(verifier, service, registry, hub, tracker, wsJournal, logger)
	router := newRouter(verifier, service, wsHandler, mirror, logger)

	server := &http.Server{
		Addr:         listenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections write for their lifetime
	}

	go func() {
		logger.Info("chat service starting", zap.String("addr", listenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"chat-service": func(ctx context.Context) error {
				logger.Info("graceful shutdown initiated")
				err := server.Shutdown(ctx)
				registry.CloseAll()
				cancel()
				if feed != nil {
					if cerr := feed.Close(); cerr != nil && err == nil {
						err = cerr
					}
				}
				if mirror != nil {
					if cerr := mirror.Close(); cerr != nil && err == nil {
						err = cerr
					}
				}
				if cerr := mongo.Close(ctx); cerr != nil && err == nil {
					err = cerr
				}
				return err
			},
		},
	)

	exitCode := <-wait
	logger.Info("chat service stopped", zap.Int("code", exitCode))
	os.Exit(exitCode)
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	return logger
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
