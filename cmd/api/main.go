package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"

	"magicyan/internal/api"
	"magicyan/internal/channel"
	"magicyan/internal/config"
	"magicyan/internal/database"
	"magicyan/internal/icons"
	"magicyan/internal/magicyan"
	"magicyan/internal/pdf"
	"magicyan/internal/resume"
	"magicyan/internal/storage"
)

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
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.Int("port", cfg.Database.Port),
		slog.String("db", cfg.Database.Name),
	)

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password})
	defer asynqClient.Close()

	codec := magicyan.NewCodec(cfg.App.Version)

	iconify := icons.NewIconifyClient(cfg.Icons.BaseURL, cfg.Icons.LookupTimeout, cfg.Icons.RequestsPerSecond)
	resolver := icons.NewResolver(iconify, icons.NewRedisCache(redisClient, "icons:"), logger, icons.ResolverOptions{
		LookupTimeout: cfg.Icons.LookupTimeout,
		CacheTTL:      cfg.Icons.CacheTTL,
	})
	searcher := icons.NewSearcher(iconify, 0, icons.DefaultSearchLimit)

	engine := pdf.NewEngine(pdf.Options{BrowserBin: cfg.PDF.BrowserBin, Timeout: cfg.PDF.RenderTimeout}, logger)
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("close pdf engine failed", slog.Any("error", err))
		}
	}()
	exporter := pdf.NewExporter(engine, resolver, nil, logger)

	bus := channel.NewRedisBus(redisClient)
	tickets := channel.NewTickets(cfg.Preview.TicketSecret)
	opener := channel.NewOpener(bus, tickets, codec, logger, channel.OpenerOptions{
		InlineLimit:      cfg.Preview.InlineLimit,
		HandshakeTimeout: cfg.Preview.HandshakeTimeout,
		BasePath:         cfg.API.PublicBaseURL + channel.DefaultBasePath,
	})
	receiver := channel.NewReceiver(bus, channel.NewRedisStore(redisClient), codec, logger, cfg.Preview.CacheTTL)

	jobs := database.NewJobStore(db)
	scanner := api.NewScanner(cfg.Clamd.Address)
	maxUpload := cfg.API.MaxUploadMB << 20

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Handlers{
		Documents: api.NewDocumentHandler(codec, resume.Editor{}, scanner, maxUpload),
		Assets:    api.NewAssetHandler(scanner, maxUpload),
		Render:    api.NewRenderHandler(resolver, exporter, redisClient, cfg.API.PDFRateLimit),
		Exports:   api.NewExportHandler(jobs, asynqClient, storageClient, codec),
		Preview:   api.NewPreviewHandler(opener, receiver, tickets, resolver, codec),
		Icons:     api.NewIconHandler(searcher, resolver),
		Ws:        api.NewWsHandler(bus, jobs, receiver, tickets, cfg.Preview.HandshakeTimeout, cfg.API.AllowedOrigins),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", slog.Any("error", err))
	}
}
