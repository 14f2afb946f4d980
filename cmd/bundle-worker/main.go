package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wichananm65/embroidery-shop-backend/internal/bundle"
	"github.com/wichananm65/embroidery-shop-backend/internal/config"
	"github.com/wichananm65/embroidery-shop-backend/internal/database"
	"github.com/wichananm65/embroidery-shop-backend/internal/document"
	"github.com/wichananm65/embroidery-shop-backend/internal/events"
	"github.com/wichananm65/embroidery-shop-backend/internal/fetch"
	"github.com/wichananm65/embroidery-shop-backend/internal/logger"
	"github.com/wichananm65/embroidery-shop-backend/internal/order"
	"github.com/wichananm65/embroidery-shop-backend/internal/product"
	"github.com/wichananm65/embroidery-shop-backend/internal/settings"
	"github.com/wichananm65/embroidery-shop-backend/internal/storage"
)

const (
	maxFetchBody     = 64 << 20
	settingsCacheTTL = 5 * time.Minute
)

// bundle-worker listens for paid orders and stores ready-made bundles so
// buyers get a signed link instead of waiting for a build.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Options{Service: "bundle-worker", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	bucket, err := storage.NewBucket(cfg.StorageRoot)
	if err != nil {
		log.Fatal("failed to prepare storage", zap.Error(err))
	}
	signer := storage.NewSigner(cfg.StorageSecret, cfg.PublicBaseURL, cfg.SignedURLTTL)
	fetcher := fetch.New(cfg.FetchTimeout, maxFetchBody)

	productService := product.NewService(product.NewPostgresRepository(db))
	orderService := order.NewService(order.NewPostgresRepository(db), productService, log)
	settingsService := settings.NewService(settings.NewPostgresRepository(db), settings.NewRedisCache(rdb, settingsCacheTTL), productService, log)

	renderer := document.NewRenderer(document.NewPDFMeasurer(), document.NewFetchImageLoader(fetcher), log)
	assembler := bundle.NewAssembler(renderer, fetcher, cfg.FetchConcurrency, log)
	bundleService := bundle.NewService(productService, orderService, settingsService, signer, assembler, log)
	worker := bundle.NewWorker(bundleService, bucket, productService, log)

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroupID, cfg.OrderEventsTopic, log)
	defer consumer.Close()

	log.Info("bundle worker started", zap.String("topic", cfg.OrderEventsTopic), zap.String("group", cfg.WorkerGroupID))
	if err := consumer.Run(ctx, worker.HandleOrderPaid); err != nil {
		log.Error("consumer stopped", zap.Error(err))
	}
}
