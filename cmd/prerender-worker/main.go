// Package main 发布执行器入口（prerender-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"site-prerender-api/internal/config"
	"site-prerender-api/internal/wire"
	"site-prerender-api/pkg/logger"
	"site-prerender-api/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "prerender-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()

	if err := worker.Consumer.Start(consumerCtx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go worker.Consumer.MonitorDLQ(consumerCtx, 10)

	// 定时重发布：按配置的 cron 表达式对指定站点执行发布，
	// 锁竞争视为正常情况跳过
	var scheduler *cron.Cron
	if cfg.Worker.Cron.Enabled && len(cfg.Worker.Cron.SiteIDs) > 0 {
		scheduler = cron.New()
		siteIDs := cfg.Worker.Cron.SiteIDs
		_, err := scheduler.AddFunc(cfg.Worker.Cron.Schedule, func() {
			for _, siteID := range siteIDs {
				if _, err := worker.Service.PublishSite(ctx, siteID); err != nil {
					logger.Error(ctx, "scheduled republish failed", err, "site_id", siteID)
				}
			}
		})
		if err != nil {
			logger.Fatal(ctx, "invalid cron schedule", err, "schedule", cfg.Worker.Cron.Schedule)
		}
		scheduler.Start()
		logger.Info(ctx, "scheduled republish enabled",
			"schedule", cfg.Worker.Cron.Schedule,
			"site_count", len(siteIDs),
		)
	}

	logger.Info(ctx, "prerender-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down worker...")
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	worker.Consumer.Stop()
	cancelConsumer()
	logger.Info(ctx, "worker exited")
}
