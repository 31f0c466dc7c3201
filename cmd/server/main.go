package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/router"
	"github.com/iliyamo/hotel-booking/internal/service"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Env,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := database.Open(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		slog.Warn("redis unavailable: rate limiting, caching and webhook dedupe disabled")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db, cfg.RefreshTTL())
	promos := repository.NewPromoRepo(db)
	hotels := repository.NewHotelRepo(db)

	codec := utils.NewTokenCodec(cfg.JWTSecret, cfg.AccessTTL())
	sessions := service.NewSessionService(users, tokens, codec, cfg.BcryptCost)
	promoSvc := service.NewPromoService(promos, hotels)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeperDone := make(chan struct{})
	service.StartTokenSweeper(tokens, cfg.RefreshCleanupInterval, sweeperDone)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID(), echomw.Recover())
	if cfg.SentryDSN != "" {
		// Repanic hands panics back to Recover after they are reported.
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(middleware.RequestLogger())

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(sessions, cfg.RefreshTTL(), cfg.IsProduction()), codec, limiter)
	router.RegisterPromo(e, handler.NewPromoHandler(promoSvc), codec, limiter, cache)

	if cfg.Stripe.Enabled() {
		checkout := &service.CheckoutService{
			Sessions: client.New(cfg.Stripe.SecretKey, nil).CheckoutSessions,
			Rooms:    hotels,
			Promos:   promoSvc,
			Cfg: service.CheckoutConfig{
				Currency:   cfg.Stripe.Currency,
				SuccessURL: cfg.Stripe.SuccessURL,
				CancelURL:  cfg.Stripe.CancelURL,
				SessionTTL: cfg.Stripe.SessionTTL,
			},
			Now: time.Now,
		}
		if rdb != nil {
			checkout.Dedupe = service.NewRedisDeduper(rdb)
		}
		if cfg.RabbitMQURL != "" {
			checkout.Publisher = service.NewAMQPPublisher(cfg.RabbitMQURL)
		}
		router.RegisterPayments(e, handler.NewPaymentHandler(checkout, cfg.Stripe.WebhookSecret), codec)
	} else {
		slog.Info("stripe not configured: checkout disabled")
	}

	if cfg.RabbitMQURL != "" {
		go func() {
			if err := queue.StartPromoConsumer(ctx, cfg.RabbitMQURL, cfg.PromoLogDir); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("promo consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		addr := ":" + cfg.Port
		slog.Info("server starting", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	close(sweeperDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
}
