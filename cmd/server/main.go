package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/syncroweb/launchpad/internal/api"
	"github.com/syncroweb/launchpad/internal/core/ports"
	"github.com/syncroweb/launchpad/internal/core/service"
	mongostore "github.com/syncroweb/launchpad/internal/infrastructure/db/mongo"
	redisstore "github.com/syncroweb/launchpad/internal/infrastructure/db/redis"
	"github.com/syncroweb/launchpad/internal/infrastructure/queue"
	"github.com/syncroweb/launchpad/internal/infrastructure/realtime"
	"github.com/syncroweb/launchpad/internal/pkg/config"
	"github.com/syncroweb/launchpad/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "launchpad",
		Env:     cfg.Env,
	})
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "launchpad"})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		URL:      cfg.Redis.URL,
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	conversations := mongostore.NewConversationRepository(db)
	messages := mongostore.NewMessageRepository(db)
	notifications := mongostore.NewNotificationRepository(db)
	users := mongostore.NewUserDirectory(db)

	if err := mongostore.EnsureIndexes(ctx, conversations, messages, notifications); err != nil {
		log.Fatal().Err(err).Msg("mongo index setup failed")
	}

	// --- Realtime fan-out ---
	var bus ports.Bus
	if cfg.UsesRedisBus() {
		bus = redisstore.NewPubSubBus(rdb, cfg.Realtime.ChannelPrefix, cfg.Realtime.SubscriberBuffer, logger.Component("pubsub"))
	} else {
		bus = realtime.NewMemoryBus(cfg.Realtime.SubscriberBuffer, logger.Component("memory_bus"))
	}

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Realtime.Workers, bus, logger.Component("dispatcher"))
	dispatcher.Start(dispatchCtx)

	// --- Services ---
	limits := service.DefaultLimits()
	limits.MaxGroupMembers = cfg.Chat.MaxGroupMembers
	limits.MaxMessageBytes = cfg.Chat.MaxMessageBytes
	limits.DefaultPageSize = cfg.Chat.DefaultPageSize
	limits.MaxPageSize = cfg.Chat.MaxPageSize
	limits.RemovalConfirmTTL = cfg.Chat.RemovalConfirmTTL
	limits.MaxGroupNameLen = cfg.Chat.MaxGroupNameLen
	locks := service.NewConversationLocks(0)

	notifier := service.NewNotificationService(notifications, dispatcher, limits, logger.Component("notifications"))
	membership := service.NewMembershipService(conversations, users, notifier, dispatcher,
		redisstore.NewConfirmationStore(rdb), locks, limits, logger.Component("membership"))

	svc := api.Services{
		Conversations: service.NewConversationService(conversations, users, notifier, dispatcher, limits, logger.Component("conversations")),
		Approvals:     service.NewApprovalGate(conversations, users, notifier, dispatcher, logger.Component("approvals")),
		Membership:    membership,
		Messages:      service.NewMessageService(conversations, messages, users, dispatcher, locks, limits, logger.Component("messages")),
		Notifications: notifier,
		Identity:      users,
		Bus:           bus,
	}

	// --- HTTP ---
	e := api.NewRouter(db, rdb, svc, cfg.JWTSecret, logger.Component("http"))

	go func() {
		log.Info().Str("port", cfg.Port).Str("realtime", cfg.Realtime.Backend).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	// Publish whatever is still queued before the stores go away.
	stopDispatch()
	dispatcher.Wait()
	log.Info().Msg("stopped")
}
