package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/rasoilink/orderhub/internal/config"
	"github.com/rasoilink/orderhub/internal/feed"
	"github.com/rasoilink/orderhub/internal/httpx"
	kafkax "github.com/rasoilink/orderhub/internal/kafka"
	"github.com/rasoilink/orderhub/internal/metrics"
	"github.com/rasoilink/orderhub/internal/orders"
	"github.com/rasoilink/orderhub/internal/postgres"
	"github.com/rasoilink/orderhub/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	placed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
	placed.Start(ctx)
	status := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, log)
	status.Start(ctx)

	repo := &orders.Repo{DB: db}
	router := httpx.NewRouter(log)
	oh := &httpx.OrdersHandler{
		Store:          repo,
		Engine:         orders.NewEngine(repo),
		Feed:           &feed.Feed{Orders: repo, Redis: rdb, Log: log},
		Redis:          rdb,
		PlacedProducer: placed,
		StatusProducer: status,
		Metrics:        metrics.NewAPIMetrics("api"),
		Service:        cfg.ServiceName,
		Log:            log,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)

	placed.Close()
	status.Close()
	placed.WaitClosed()
	status.WaitClosed()
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()
}
