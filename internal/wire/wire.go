// Package wire 提供依赖装配
package wire

import (
	"context"
	"fmt"
	"os"

	"site-prerender-api/internal/application/prerender"
	"site-prerender-api/internal/application/publish"
	"site-prerender-api/internal/config"
	"site-prerender-api/internal/infrastructure/messaging"
	"site-prerender-api/internal/infrastructure/persistence/postgres"
	"site-prerender-api/internal/infrastructure/persistence/redis"
	"site-prerender-api/internal/infrastructure/storage/s3"
	"site-prerender-api/internal/interfaces/http/handler"
	"site-prerender-api/internal/interfaces/http/router"
	"site-prerender-api/pkg/logger"
)

// DataLayer 数据层依赖容器
type DataLayer struct {
	PgClient    *postgres.Client
	SiteRepo    *postgres.SiteRepository
	SectionRepo *postgres.SectionRepository
	PostRepo    *postgres.PostRepository

	RedisClient *redis.Client
	StateStore  *redis.PublishStateStore
	Cache       *redis.Cache

	ObjectStore *s3.Client

	Producer *messaging.Producer
}

// InitializeDataLayer 初始化数据层，返回的清理函数关闭全部连接
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		_ = pgClient.Close()
		return nil, nil, fmt.Errorf("failed to init redis: %w", err)
	}

	objectStore, err := s3.NewClient(&cfg.Storage.S3)
	if err != nil {
		_ = redisClient.Close()
		_ = pgClient.Close()
		return nil, nil, fmt.Errorf("failed to init object store: %w", err)
	}

	dl := &DataLayer{
		PgClient:    pgClient,
		SiteRepo:    postgres.NewSiteRepository(pgClient),
		SectionRepo: postgres.NewSectionRepository(pgClient),
		PostRepo:    postgres.NewPostRepository(pgClient),
		RedisClient: redisClient,
		StateStore:  redis.NewPublishStateStore(redisClient),
		Cache:       redis.NewCache(redisClient),
		ObjectStore: objectStore,
		Producer:    messaging.NewProducer(redisClient.Redis(), cfg.Messaging.RedisStream.MaxLen),
	}

	cleanup := func() {
		if err := dl.RedisClient.Close(); err != nil {
			logger.Error(ctx, "failed to close redis client", err)
		}
		if err := dl.PgClient.Close(); err != nil {
			logger.Error(ctx, "failed to close postgres client", err)
		}
	}
	return dl, cleanup, nil
}

// NewPublishService 装配发布服务
func NewPublishService(cfg *config.Config, dl *DataLayer) *publish.Service {
	generator := prerender.NewGenerator(&cfg.Prerender, dl.SiteRepo, dl.SectionRepo, dl.PostRepo)
	publisher := publish.NewPublisher(&cfg.Publish, dl.StateStore, dl.ObjectStore)
	return publish.NewService(generator, publisher, dl.StateStore, dl.Cache, dl.Producer)
}

// App HTTP 服务应用
type App struct {
	Router  *router.Router
	Service *publish.Service
	Data    *DataLayer
}

// InitializeApp 初始化 HTTP 服务应用
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	dl, cleanup, err := InitializeDataLayer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	service := NewPublishService(cfg, dl)

	handlers := router.Handlers{
		Health:  handler.NewHealthHandler(dl.PgClient, dl.RedisClient),
		Publish: handler.NewPublishHandler(service),
	}

	return &App{
		Router:  router.New(cfg, handlers, dl.RedisClient.Redis()),
		Service: service,
		Data:    dl,
	}, cleanup, nil
}

// Worker 队列消费应用
type Worker struct {
	Consumer *messaging.Consumer
	Service  *publish.Service
	Data     *DataLayer
}

// InitializeWorker 初始化发布执行器
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	dl, cleanup, err := InitializeDataLayer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	service := NewPublishService(cfg, dl)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "prerender-worker"
	}

	consumer := messaging.NewConsumer(dl.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamPublishJobs,
		Group:        messaging.ConsumerGroupPublishWorker,
		ConsumerName: hostname,
		BlockTimeout: cfg.Messaging.RedisStream.BlockTimeout,
		RetryLimit:   cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})
	consumer.RegisterHandler(messaging.MessageTypePublishJob, service.HandleJob)

	return &Worker{
		Consumer: consumer,
		Service:  service,
		Data:     dl,
	}, cleanup, nil
}
