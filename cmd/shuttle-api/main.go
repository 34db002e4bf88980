// Entry point; loads config, wires module services, starts the HTTP API
// and the metrics endpoint.
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

	"go.uber.org/zap"

	"shuttle/internal/config"
	"shuttle/internal/events"
	httptransport "shuttle/internal/http"
	"shuttle/internal/infra"
	"shuttle/internal/logging"
	"shuttle/internal/metrics"
	"shuttle/internal/modules/rider"
	"shuttle/internal/modules/route"
	"shuttle/internal/modules/session"
	"shuttle/internal/modules/trip"
	"shuttle/internal/modules/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	collector := metrics.NewCollector()
	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		metricsSrv = collector.Serve(cfg.Metrics.Addr, logger)
	}

	var walletEvents wallet.Events
	var tripEvents trip.Events
	if cfg.NATS.URL != "" {
		publisher, err := events.NewPublisher(cfg.NATS.URL, collector, logger)
		if err != nil {
			logger.Fatal("nats", zap.Error(err))
		}
		defer publisher.Close()
		walletEvents = publisher
		tripEvents = publisher
	}

	routeStore := route.NewPGStore(dbPool)
	riderStore := rider.NewPGStore(dbPool)

	walletSvc := wallet.NewService(wallet.NewPGStore(dbPool), walletEvents, logger)

	tripSvc := trip.NewService(trip.Deps{
		Store:   trip.NewPGStore(dbPool),
		Routes:  routeStore,
		Ledger:  walletSvc,
		Events:  tripEvents,
		Metrics: collector,
		Logger:  logger,
	})

	sessionStore := session.NewPGStore(dbPool)
	sessionSvc := session.NewService(session.Deps{
		Store:   sessionStore,
		Claims:  session.NewRedisClaims(redisClient),
		Routes:  routeStore,
		Trips:   tripSvc,
		Metrics: collector,
		Logger:  logger,
	})

	srv := httptransport.NewServer(httptransport.ServerDeps{
		Sessions: sessionSvc,
		Trips:    tripSvc,
		Wallets:  walletSvc,
		Routes:   routeStore,
		Riders:   riderStore,
		Shuttles: sessionStore,
		Logger:   logger,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: srv.Routes()}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown", zap.Error(err))
		}
	}
}
