package main

import (
	"context"
	"errors"
	calendarhandler "medsched/internal/calendarsync/handler"
	calendarrepository "medsched/internal/calendarsync/repository"
	calendarservice "medsched/internal/calendarsync/service"
	calendarvalidator "medsched/internal/calendarsync/validator"
	healthhandler "medsched/internal/health/handler"
	"medsched/pkg/config"
	httputil "medsched/pkg/http"
	"medsched/pkg/kafka"
	kafka_config "medsched/pkg/kafka/config"
	kafkamiddleware "medsched/pkg/kafka/middleware"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"
)

const ServiceName = "calendarsync"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	if !cfg.CalendarSyncEnabled {
		cfg.Log.Warn("Calendar sync disabled, worker has nothing to consume")
		return
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Failed to load kafka config", "error", err)
	}

	mirror := calendarservice.NewMirror(
		calendarrepository.NewMongoCalendarRepository(cfg),
		calendarvalidator.NewEventValidator(cfg.Log),
		cfg.Log,
	)
	eventHandler := calendarhandler.NewEventHandler(mirror, cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.Log, cfg.CalendarSyncTopic, cfg.CalendarSyncGroupID, cfg.CalendarSyncDLQTopic, eventHandler.Handle)
	if err != nil {
		cfg.Log.Fatal("Failed to create calendar consumer", "error", err)
	}
	metrics := kafkamiddleware.NewMetrics()
	consumer.Use(metrics.ConsumerMiddleware())
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      healthRouter(cfg, metrics),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	go func() {
		cfg.Log.Info("Starting health server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Health server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting calendar sync worker", "topic", cfg.CalendarSyncTopic, "group_id", cfg.CalendarSyncGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Calendar consumer stopped", "error", err)
	}

	cfg.Log.Info("Shutting down calendar sync worker", "metrics", metrics.Snapshot())
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		cfg.Log.Error("Health server shutdown failed", "error", err)
	}
}

func healthRouter(cfg *config.Config, metrics *kafkamiddleware.Metrics) http.Handler {
	router := httprouter.New()
	healthhandler.NewHealthHandler(cfg.Log, healthhandler.MongoCheck(cfg.Client.Mongo)).RegisterRoutes(router)
	router.GET("/metrics", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		if err := httputil.WriteSuccess(w, metrics.Snapshot()); err != nil {
			cfg.Log.Error("failed to write JSON response", "handler", "Metrics", "error", err)
		}
	})
	return router
}
