// Package app wires the shared dependencies of the api and consumer
// binaries from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/chachabrian/carbid-backend/internal/catalog"
	"github.com/chachabrian/carbid-backend/internal/config"
	"github.com/chachabrian/carbid-backend/internal/database"
	"github.com/chachabrian/carbid-backend/internal/queue"
	"github.com/chachabrian/carbid-backend/internal/services"
	"github.com/chachabrian/carbid-backend/internal/store"
	"github.com/chachabrian/carbid-backend/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type App struct {
	Config config.Config
	Log    logrus.FieldLogger

	DB    *gorm.DB
	Redis *redis.Client
	Cache *services.RedisCache
	Queue queue.BidQueue

	Catalog  *catalog.Catalog
	Bids     store.BidStore
	Bookings store.BookingStore
	Outbox   store.OutboxStore

	Dispatcher *services.Dispatcher
	Worker     *services.OutboxWorker
}

// New connects to Postgres, Redis and the intake queue. hub may be nil when
// the process serves no websocket clients.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger, hub *services.Hub) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL or DB_HOST must be set")
	}

	db, err := database.InitDB(cfg.DatabaseURL, !cfg.IsProduction() && cfg.LogLevel == "debug")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &App{Config: cfg, Log: log, DB: db}

	a.Redis, err = services.InitRedis(ctx, cfg.RedisURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Cache = services.NewRedisCache(a.Redis, cfg.HighestBidCacheTTL)

	a.Queue, err = OpenQueue(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Catalog = catalog.New(db)
	a.Bids = store.NewBidStore(db)
	a.Bookings = store.NewBookingStore(db)
	a.Outbox = store.NewOutboxStore(db)

	channels := []services.Channel{
		services.NewEmailChannel(utils.NewMailer(cfg.EmailFrom, cfg.EmailPassword, cfg.SMTPHost, cfg.SMTPPort, cfg.BaseURL)),
		services.NewSMSChannel(utils.NewSMSClient(cfg.ATUsername, cfg.ATAPIKey)),
		services.NewPubSubChannel(a.Cache),
	}
	if hub != nil {
		channels = append(channels, services.NewHubChannel(hub))
	}
	if cfg.FirebaseServiceAccountPath != "" {
		fcm, err := services.InitFirebase(ctx, cfg.FirebaseServiceAccountPath)
		if err != nil {
			log.WithError(err).Warn("push notifications disabled")
		} else {
			channels = append(channels, services.NewPushChannel(fcm, a.Catalog))
		}
	}
	a.Dispatcher = services.NewDispatcher(log.WithField("component", "notifications"), channels...)
	a.Worker = services.NewOutboxWorker(a.Outbox, a.Dispatcher, log.WithField("component", "outbox"),
		cfg.OutboxPollInterval, cfg.OutboxBatchSize, cfg.OutboxMaxAttempts)
	return a, nil
}

// OpenQueue returns the intake queue selected by QUEUE_DRIVER.
func OpenQueue(cfg config.Config) (queue.BidQueue, error) {
	switch cfg.QueueDriver {
	case config.QueueDriverKafka:
		return queue.NewKafkaQueue(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup), nil
	case config.QueueDriverSQS:
		if cfg.SQSQueueURL == "" {
			return nil, errors.New("SQS_QUEUE_URL must be set")
		}
		client, err := queue.NewSQSClient(cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.SQSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQS client: %w", err)
		}
		return queue.NewSQSQueue(client, cfg.SQSQueueURL), nil
	}
	return nil, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
}

func (a *App) BidService() *services.BidService {
	return services.NewBidService(a.Bids, a.Queue, a.Catalog, a.Log.WithField("component", "bids")).
		WithCache(a.Cache).
		WithWaker(a.Worker)
}

func (a *App) BookingService() *services.BookingService {
	return services.NewBookingService(a.Bookings, a.Log.WithField("component", "bookings")).
		WithCache(a.Cache).
		WithWaker(a.Worker)
}

func (a *App) Consumer() *services.BidConsumer {
	return services.NewBidConsumer(a.Queue, a.Bids, a.Log.WithField("component", "consumer"),
		a.Config.BidPollInterval, a.Config.BidWaitTime).
		WithCache(a.Cache).
		WithWaker(a.Worker)
}

func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
