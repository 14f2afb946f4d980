package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wichananm65/embroidery-shop-backend/internal/bundle"
	"github.com/wichananm65/embroidery-shop-backend/internal/cart"
	"github.com/wichananm65/embroidery-shop-backend/internal/category"
	"github.com/wichananm65/embroidery-shop-backend/internal/checkout"
	"github.com/wichananm65/embroidery-shop-backend/internal/config"
	"github.com/wichananm65/embroidery-shop-backend/internal/coupon"
	"github.com/wichananm65/embroidery-shop-backend/internal/database"
	"github.com/wichananm65/embroidery-shop-backend/internal/document"
	"github.com/wichananm65/embroidery-shop-backend/internal/events"
	"github.com/wichananm65/embroidery-shop-backend/internal/favorite"
	"github.com/wichananm65/embroidery-shop-backend/internal/fetch"
	"github.com/wichananm65/embroidery-shop-backend/internal/logger"
	"github.com/wichananm65/embroidery-shop-backend/internal/order"
	"github.com/wichananm65/embroidery-shop-backend/internal/payment"
	"github.com/wichananm65/embroidery-shop-backend/internal/product"
	"github.com/wichananm65/embroidery-shop-backend/internal/settings"
	"github.com/wichananm65/embroidery-shop-backend/internal/storage"
	"github.com/wichananm65/embroidery-shop-backend/internal/user"
)

const (
	maxFetchBody     = 64 << 20
	settingsCacheTTL = 5 * time.Minute
	eventBuffer      = 256
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Options{Service: "embroidery-shop-api", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis is not reachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.OrderEventsTopic, eventBuffer, log)
	defer producer.Close()

	bucket, err := storage.NewBucket(cfg.StorageRoot)
	if err != nil {
		log.Fatal("failed to prepare storage", zap.Error(err))
	}
	signer := storage.NewSigner(cfg.StorageSecret, cfg.PublicBaseURL, cfg.SignedURLTTL)
	fetcher := fetch.New(cfg.FetchTimeout, maxFetchBody)

	couponService := coupon.NewService(coupon.NewPostgresRepository(db), decimal.NewFromInt(int64(cfg.WelcomeCouponPercent)), log)
	userService := user.NewService(user.NewPostgresRepository(db), couponService, log)
	productService := product.NewService(product.NewPostgresRepository(db))
	categoryService := category.NewService(category.NewPostgresRepository(db))
	orderService := order.NewService(order.NewPostgresRepository(db), productService, log)
	cartService := cart.NewService(cart.NewPostgresRepository(db), productService, orderService, log)
	favoriteService := favorite.NewService(favorite.NewPostgresRepository(db), productService)
	settingsService := settings.NewService(settings.NewPostgresRepository(db), settings.NewRedisCache(rdb, settingsCacheTTL), productService, log)
	checkoutService := checkout.NewService(cartService, couponService, orderService, payment.NewSandbox(),
		checkout.NewRedisStore(rdb, cfg.CheckoutSessionTTL), producer, cfg.PaymentCurrency, log)

	renderer := document.NewRenderer(document.NewPDFMeasurer(), document.NewFetchImageLoader(fetcher), log)
	assembler := bundle.NewAssembler(renderer, fetcher, cfg.FetchConcurrency, log)
	bundleService := bundle.NewService(productService, orderService, settingsService, signer, assembler, log)

	userHandler := user.NewHandler(userService, cfg.JWTSecret)
	productHandler := product.NewHandler(productService)
	categoryHandler := category.NewHandler(categoryService)
	couponHandler := coupon.NewHandler(couponService)
	cartHandler := cart.NewHandler(cartService)
	favoriteHandler := favorite.NewHandler(favoriteService)
	orderHandler := order.NewHandler(orderService)
	checkoutHandler := checkout.NewHandler(checkoutService)
	bundleHandler := bundle.NewHandler(bundleService, log)
	settingsHandler := settings.NewHandler(settingsService)
	storageHandler := storage.NewHandler(bucket, signer, log)

	app := fiber.New(fiber.Config{
		BodyLimit:    maxFetchBody,
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New())
	setupCORS(app)
	app.Use(requestLogger(log))

	userHandler.RegisterPublicRoutes(app)
	categoryHandler.RegisterPublicRoutes(app)
	productHandler.RegisterPublicRoutes(app)
	storageHandler.RegisterPublicRoutes(app)

	app.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(cfg.JWTSecret),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		},
	}))

	userHandler.RegisterProtectedRoutes(app)
	cartHandler.RegisterProtectedRoutes(app)
	favoriteHandler.RegisterProtectedRoutes(app)
	couponHandler.RegisterProtectedRoutes(app)
	checkoutHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)
	bundleHandler.RegisterProtectedRoutes(app)

	admin := app.Group("/api/v1/admin", user.RequireAdmin)
	productHandler.RegisterAdminRoutes(admin)
	categoryHandler.RegisterAdminRoutes(admin)
	couponHandler.RegisterAdminRoutes(admin)
	settingsHandler.RegisterAdminRoutes(admin)
	storageHandler.RegisterAdminRoutes(admin)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	log.Info("starting server", zap.String("addr", cfg.Addr))
	if err := app.Listen(cfg.Addr); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debug("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("took", time.Since(start)))
		return err
	}
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code == fiber.StatusInternalServerError {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(code).JSON(fiber.Map{"message": "internal server error"})
		}
		return c.Status(code).JSON(fiber.Map{"message": err.Error()})
	}
}
