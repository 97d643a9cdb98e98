package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"perfectpay-backend/internal/auth"
	"perfectpay-backend/internal/config"
	"perfectpay-backend/internal/currency"
	"perfectpay-backend/internal/db"
	"perfectpay-backend/internal/ledger"
	"perfectpay-backend/internal/logger"
	"perfectpay-backend/internal/middleware"
	"perfectpay-backend/internal/notify"
	"perfectpay-backend/internal/payments"
	"perfectpay-backend/internal/transactions"
	"perfectpay-backend/internal/transfer"
	"perfectpay-backend/internal/user"
	"perfectpay-backend/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	logger.Init()
	log := logger.Log
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	// Collaborators.
	rates := currency.NewRepo(pool)
	converter := currency.NewService(rates)
	books := ledger.NewBooks(pool)
	wallets := ledger.NewStore(pool)
	users := user.NewRepo(pool)
	recorder := transactions.NewRecorder(pool)
	tokens := auth.NewTokens(cfg.JWT.Secret)

	notifier := notify.NewNotifier(cfg.Redis.Addr)
	defer notifier.Close()
	smsServer := notify.NewServer(cfg.Redis.Addr, notify.NewSMSClient(notify.SMSConfig{
		Endpoint: cfg.SMS.Endpoint,
		APIKey:   cfg.SMS.APIKey,
		Sender:   cfg.SMS.Sender,
		Password: cfg.SMS.Password,
	}), log)
	smsServer.Start(log)
	defer smsServer.Shutdown()

	charger := payments.NewPaycoolClient(payments.PaycoolConfig{
		Endpoint: cfg.Paycool.Endpoint,
		Email:    cfg.Paycool.Email,
	})
	intents := payments.NewStripeClient(cfg.Stripe.SecretKey)

	transferSvc := transfer.NewService(cfg, books, wallets, users, converter,
		notifier, charger, intents, log)

	// Daily rate refresh, plus one synchronous pass so a fresh database has
	// rates before the first transfer.
	refresher := currency.NewRefresher(rates,
		currency.NewHTTPProvider(cfg.Rates.Endpoint), cfg.SupportedCurrencies, log)
	refresher.Run()
	scheduler := cron.New()
	if _, err := scheduler.AddJob("@daily", refresher); err != nil {
		log.Fatal("schedule rate refresh", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP surface.
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	authHandler := user.NewAuthHandler(users, tokens, notifier, log)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/register/partner", authHandler.RegisterPartner)

	protected := e.Group("", middleware.JWT(tokens))
	protected.POST("/auth/register/client", authHandler.RegisterClient,
		middleware.RequireRoles(user.RolePartner, user.RoleAdmin))
	protected.POST("/auth/register/merchant", authHandler.RegisterMerchant,
		middleware.RequireRoles(user.RolePartner, user.RoleAdmin))

	user.NewHandler(users, wallets, notifier, log).Register(protected)
	transactions.NewHandler(recorder).Register(protected)
	transfer.NewHandler(transferSvc).Register(protected)

	webhook.NewHandler(books, wallets, users, notifier, log).Register(e)

	go func() {
		log.Info("server listening", zap.String("addr", cfg.HTTPAddr))
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
}
