package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/taf-weather-service/internal/client"
	"github.com/kjstillabower/taf-weather-service/internal/config"
	httphandler "github.com/kjstillabower/taf-weather-service/internal/http"
	"github.com/kjstillabower/taf-weather-service/internal/lifecycle"
	"github.com/kjstillabower/taf-weather-service/internal/observability"
	"github.com/kjstillabower/taf-weather-service/internal/parser"
	"github.com/kjstillabower/taf-weather-service/internal/service"
	"github.com/kjstillabower/taf-weather-service/internal/traffic"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	loc, err := parser.LoadTimeZone(cfg.DisplayTimeZone)
	if err != nil {
		logger.Fatal("display time zone", zap.Error(err))
	}

	httpClient := client.NewHTTPClient(cfg.MaxIdleConns)
	tafClient, err := client.NewAviationWeatherClient(httpClient, cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	tracker := traffic.NewTracker(nil)
	weatherService := service.NewWeatherService(tafClient, logger,
		service.WithLocation(loc),
		service.WithTracker(tracker),
	)

	if len(cfg.TrackedAirports) > 0 {
		observability.SetTrackedAirports(cfg.TrackedAirports)
	}

	handler := httphandler.NewHandler(weatherService, cfg.DefaultAirport, &httphandler.HealthConfig{
		Tracker:          tracker,
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
		MinSamples:       cfg.DegradedMinSamples,
		Version:          version,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           newRouter(handler, cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("upstream", cfg.WeatherAPIURL),
			zap.String("default_airport", cfg.DefaultAirport),
			zap.String("time_zone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.BeginShutdown(time.Now())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	client.CloseHTTPClient(httpClient)
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newRouter mounts the service routes. CORS wraps the router so preflight requests
// never reach route matching; only /weather carries the request deadline.
func newRouter(handler *httphandler.Handler, cfg *config.Config, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/", handler.GetRoot).Methods("GET")
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("", handler.GetDefaultWeather).Methods("GET")
	weatherRouter.HandleFunc("/{airport}", handler.GetWeather).Methods("GET")

	return httphandler.CORSMiddleware(cfg.CORSAllowedOrigins)(router)
}
