package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"

	"magicyan/internal/config"
	"magicyan/internal/database"
	"magicyan/internal/icons"
	"magicyan/internal/magicyan"
	"magicyan/internal/metrics"
	"magicyan/internal/pdf"
	"magicyan/internal/storage"
	"magicyan/internal/tasks"
	"magicyan/internal/worker"
)

const metricsAddr = ":9091"

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Info(fmt.Sprintf(format, args...))
	}))

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	log.Println("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr, Password: cfg.Redis.Password})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	iconify := icons.NewIconifyClient(cfg.Icons.BaseURL, cfg.Icons.LookupTimeout, cfg.Icons.RequestsPerSecond)
	resolver := icons.NewResolver(iconify, icons.NewRedisCache(redisClient, "icons:"), logger, icons.ResolverOptions{
		LookupTimeout: cfg.Icons.LookupTimeout,
		CacheTTL:      cfg.Icons.CacheTTL,
	})

	engine := pdf.NewEngine(pdf.Options{BrowserBin: cfg.PDF.BrowserBin, Timeout: cfg.PDF.RenderTimeout}, logger)
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("close pdf engine failed", slog.Any("error", err))
		}
	}()

	jobStore := database.NewJobStore(db)
	pdfHandler := worker.NewPDFTaskHandler(
		jobStore,
		storageClient,
		worker.NewRedisNotifier(redisClient),
		pdf.NewExporter(engine, resolver, nil, logger),
		magicyan.NewCodec(cfg.App.Version),
		logger,
	)

	janitor := worker.NewJanitor(jobStore, storageClient, cfg.Exports.Retention, logger)

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr, Password: cfg.Redis.Password}
	server := asynq.NewServer(redisOpt, asynq.Config{
		// 每个任务占用一个浏览器标签页。
		Concurrency:     4,
		ShutdownTimeout: 30 * time.Second,
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypePDFExport, pdfHandler)
	mux.Handle(tasks.TypeExportCleanup, janitor)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := scheduler.Register("@hourly", tasks.NewExportCleanupTask()); err != nil {
		log.Fatalf("register export cleanup: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Shutdown()

	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("metrics server stopped", slog.Any("error", err))
		}
	}()

	logger.Info("worker service started", slog.String("redis_addr", redisAddr))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
