package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kariqs/franchise-api/cart"
	"github.com/Kariqs/franchise-api/controllers"
	"github.com/Kariqs/franchise-api/events"
	"github.com/Kariqs/franchise-api/initializers"
	"github.com/Kariqs/franchise-api/loyalty"
	"github.com/Kariqs/franchise-api/middlewares"
	"github.com/Kariqs/franchise-api/orders"
	"github.com/Kariqs/franchise-api/payments"
	"github.com/Kariqs/franchise-api/pricing"
	"github.com/Kariqs/franchise-api/routes"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var defaultOrigins = []string{"http://localhost:4200"}

func main() {
	initializers.LoadEnv()
	cfg, err := initializers.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := initializers.InitLogger(cfg.LogLevel, cfg.GinMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg initializers.Config, logger *zap.Logger) error {
	st, err := initializers.ConnectToDB(cfg, logger)
	if err != nil {
		return err
	}
	if err := initializers.SeedCatalog(ctx, st, logger); err != nil {
		return err
	}

	var carts cart.Store = cart.NewMemoryStore()
	redisClient, err := initializers.ConnectRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		carts = cart.NewRedisStore(redisClient, cfg.CartTTL)
	}

	bus := events.NewBus(logger)
	publisher := events.Fanout{bus, events.NewOutbox(st, logger)}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := kafka.Close(); err != nil {
				logger.Warn("close kafka writer", zap.Error(err))
			}
		}()
		publisher = append(publisher, kafka)
	}

	engine := pricing.NewEngine(cfg.FreeDeliveryThreshold, cfg.FlatDeliveryFee)
	ledger := loyalty.NewLedger(st, publisher, logger)
	cartService := cart.NewService(carts, st, engine, ledger, logger)
	manager := orders.NewManager(st, cartService, engine, publisher, logger, orders.Config{
		RequiresApproval: cfg.OrderRequiresApproval,
		PointsPerUnit:    cfg.LoyaltyPointsPerUnit,
	})

	var gateway payments.Gateway
	if cfg.OnlinePaymentsEnabled() {
		gateway = payments.NewPesapalGateway(payments.PesapalConfig{
			BaseURL:        cfg.PesapalBaseURL,
			ConsumerKey:    cfg.PesapalConsumerKey,
			ConsumerSecret: cfg.PesapalConsumerSecret,
			NotificationID: cfg.PesapalNotificationID,
			CallbackURL:    cfg.PesapalCallbackURL,
			Currency:       cfg.PesapalCurrency,
		}, logger)
	} else {
		logger.Warn("pesapal credentials missing, online payments disabled")
	}
	processor := payments.NewProcessor(st, manager, gateway, publisher, logger, cfg.PaymentExpiry)
	go payments.NewSweeper(processor, cfg.PaymentSweepInterval, logger).Run(ctx)

	if err := controllers.RegisterValidators(); err != nil {
		return err
	}
	h := &controllers.Handler{
		Carts:    cartService,
		Orders:   manager,
		Payments: processor,
		Ledger:   ledger,
		Catalog:  st,
		Bus:      bus,
		Logger:   logger,
	}

	gin.SetMode(cfg.GinMode)
	server := gin.New()
	server.Use(middlewares.RequestLogger(logger), gin.Recovery())

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	server.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	routes.Register(server, h, cfg.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
