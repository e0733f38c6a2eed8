// Package main 一次性发布命令：prerender-publish <siteId>
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"site-prerender-api/internal/config"
	"site-prerender-api/internal/wire"
	"site-prerender-api/pkg/logger"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: prerender-publish <siteId>")
		os.Exit(2)
	}

	siteID, err := strconv.Atoi(os.Args[1])
	if err != nil || siteID <= 0 {
		fmt.Fprintf(os.Stderr, "invalid site id: %s\n", os.Args[1])
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	dl, cleanup, err := wire.InitializeDataLayer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	service := wire.NewPublishService(cfg, dl)

	result, err := service.PublishSite(ctx, siteID)
	if err != nil {
		// 错误原样输出，调用方（人或 CI）需要看到真实失败原因
		fmt.Fprintf(os.Stderr, "publish failed for site %d: %v\n", siteID, err)
		os.Exit(1)
	}

	fmt.Printf("published site %d version %s (%d files, %dms)\n",
		result.SiteID, result.Version, len(result.Files), result.DurationMS)
	for name, versioned := range result.Files {
		fmt.Printf("  %s -> %s\n", name, versioned)
	}
}
