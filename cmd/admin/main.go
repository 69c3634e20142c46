package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"magicyan/internal/config"
	"magicyan/internal/database"
	"magicyan/internal/storage"
	"magicyan/internal/worker"
)

func main() {
	var (
		olderThan = flag.Duration("older-than", 0, "清理在此时长之前结束的导出任务（默认读 EXPORT_RETENTION）")
		dryRun    = flag.Bool("dry-run", false, "只列出将被清理的任务，不做删除")
		limit     = flag.Int("limit", 100, "dry-run 时最多列出的任务数")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	retention := cfg.Exports.Retention
	if *olderThan > 0 {
		retention = *olderThan
	}
	before := time.Now().Add(-retention)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	jobs := database.NewJobStore(db)

	if *dryRun {
		expired, err := jobs.Finished(ctx, before, *limit)
		if err != nil {
			log.Fatalf("list expired exports: %v", err)
		}
		fmt.Printf("以下 %d 个导出任务将被清理（结束于 %s 之前）：\n", len(expired), before.Format(time.RFC3339))
		for _, job := range expired {
			fmt.Printf("%s\t%s\t%s\t%s\n", job.ID, job.Status, job.CompletedAt.Format(time.RFC3339), job.Filename)
		}
		return
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	purged, err := worker.NewJanitor(jobs, storageClient, retention, nil).Purge(ctx, before)
	if err != nil {
		log.Fatalf("purge exports: %v", err)
	}
	fmt.Printf("已清理 %d 个过期导出任务及其 PDF 产物。\n", purged)
}
