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

	"golang.org/x/sync/errgroup"

	"librarium/internal/app"
	"librarium/internal/config"
	"librarium/internal/mailer"
	"librarium/internal/ratelimit"
	"librarium/internal/server"
	"librarium/internal/util"
	"librarium/pkg/events"
	"librarium/pkg/storage"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel, cfg.Debug)

	appCfg := app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		SecretKey:     cfg.SecretKey,
		SessionTTL:    sessionTTL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
	}
	if cfg.Minio.Endpoint != "" {
		photos, err := storage.NewMinioStore(cfg.Minio.Endpoint, cfg.Minio.AccessKey,
			cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			log.Fatalf("failed to init object storage: %v", err)
		}
		appCfg.Photos = photos
	}
	if cfg.SMTP.Host != "" {
		mail, err := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port,
			cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		if err != nil {
			log.Fatalf("failed to init mailer: %v", err)
		}
		appCfg.Mailer = mail
	}
	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("failed to init event publisher: %v", err)
		}
		defer publisher.Close()
		appCfg.Events = publisher
	}

	appCore, err := app.New(appCfg)
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	proxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	srvCfg := server.Config{
		App:            appCore,
		TrustedProxies: proxies,
	}
	srvCfg.RegisterLimit = newLimiter(cfg, "librarium:ratelimit:register", cfg.RegisterRateLimitPerMinute)
	srvCfg.LoginLimit = newLimiter(cfg, "librarium:ratelimit:login", cfg.LoginRateLimitPerMinute)
	srvCfg.PasswordLimit = newLimiter(cfg, "librarium:ratelimit:password", cfg.PasswordRateLimitPerMinute)

	handler := server.New(srvCfg).Router()
	handler = util.WithCORS(cfg.CORSAllowedOrigins, handler)
	handler = util.WithAllowedHosts(cfg.AllowedHosts, handler)
	handler = util.WithSecurityHeaders("", handler)
	handler = util.WithRequestLog(handler)
	handler = util.WithRequestID(handler)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// newLimiter builds a Redis-backed fixed-window limiter, or nil when rate
// limiting is not configured.
func newLimiter(cfg config.FileConfig, prefix string, perMinute int) server.Limiter {
	if perMinute <= 0 || cfg.RedisAddr == "" {
		return nil
	}
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword,
		prefix, perMinute, time.Minute)
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}
	return limiter
}
