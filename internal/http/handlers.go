package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/taf-weather-service/internal/client"
	"github.com/kjstillabower/taf-weather-service/internal/lifecycle"
	"github.com/kjstillabower/taf-weather-service/internal/models"
	"github.com/kjstillabower/taf-weather-service/internal/observability"
	"github.com/kjstillabower/taf-weather-service/internal/parser"
	"github.com/kjstillabower/taf-weather-service/internal/traffic"
)

// DefaultAirport is served by GET /weather when no airport is configured.
const DefaultAirport = "KBOS"

// livenessMessage is the body of GET /.
const livenessMessage = "..:: goliath online ::.."

// WeatherEventsGetter is the part of service.WeatherService the handlers need.
type WeatherEventsGetter interface {
	GetWeatherEvents(ctx context.Context, airport string) ([]models.WeatherEvent, error)
}

// HealthConfig holds the thresholds for the health handler.
type HealthConfig struct {
	// Tracker supplies the upstream error rate; nil disables the degraded check.
	Tracker          *traffic.Tracker
	DegradedWindow   time.Duration
	DegradedErrorPct int
	// MinSamples is the number of lookups in the window before the error rate counts.
	MinSamples int
	Version    string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather          WeatherEventsGetter
	defaultAirport   string
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. An empty defaultAirport falls back to DefaultAirport.
func NewHandler(weather WeatherEventsGetter, defaultAirport string, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if defaultAirport == "" {
		defaultAirport = DefaultAirport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		weather:        weather,
		defaultAirport: defaultAirport,
		healthConfig:   healthConfig,
		logger:         logger,
	}
}

// GetRoot handles GET /.
func (h *Handler) GetRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": livenessMessage})
}

// GetDefaultWeather handles GET /weather by serving the default airport.
func (h *Handler) GetDefaultWeather(w http.ResponseWriter, r *http.Request) {
	h.serveWeather(w, r, h.defaultAirport)
}

// GetWeather handles GET /weather/{airport}.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	airport := strings.TrimSpace(mux.Vars(r)["airport"])
	if airport == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_AIRPORT", "airport is required")
		return
	}
	h.serveWeather(w, r, airport)
}

func (h *Handler) serveWeather(w http.ResponseWriter, r *http.Request, airport string) {
	events, err := h.weather.GetWeatherEvents(r.Context(), airport)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, models.WeatherEventsResponse{WeatherEvents: events})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy"}
	if result.status == "degraded" {
		checks["weatherApi"] = "unhealthy"
	}
	version := "dev"
	if h.healthConfig != nil && h.healthConfig.Version != "" {
		version = h.healthConfig.Version
	}
	body := map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   version,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if since, ok := lifecycle.ShutdownStartedAt(); ok {
		body["shutdownStartedAt"] = since.Format(time.RFC3339)
	}
	writeJSON(w, result.statusCode, body)
}

// computeHealthStatus evaluates, in order: shutting-down > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	hc := h.healthConfig
	if hc == nil || hc.Tracker == nil || hc.DegradedWindow <= 0 || hc.DegradedErrorPct <= 0 {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	errs, total := hc.Tracker.ErrorRate(hc.DegradedWindow)
	if total > 0 && total >= hc.MinSamples {
		pct := float64(errs) * 100 / float64(total)
		if pct >= float64(hc.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope with the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID, _ := observability.CorrelationIDFromContext(r.Context())
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeServiceError maps a weather lookup failure to a response: a malformed upstream
// payload is 502, any other upstream failure 503.
func writeServiceError(w http.ResponseWriter, r *http.Request, fallback *zap.Logger, err error) {
	logger := observability.LoggerFromContext(r.Context(), fallback)
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		logger.Warn("invalid upstream payload", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_INVALID_PAYLOAD", "Weather data could not be parsed")
		return
	}
	logger.Warn("upstream error", zap.Error(err), zap.String("category", string(client.CategorizeError(err))))
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data")
}
