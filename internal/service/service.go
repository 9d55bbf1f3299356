package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/taf-weather-service/internal/client"
	"github.com/kjstillabower/taf-weather-service/internal/models"
	"github.com/kjstillabower/taf-weather-service/internal/observability"
	"github.com/kjstillabower/taf-weather-service/internal/parser"
	"github.com/kjstillabower/taf-weather-service/internal/traffic"
)

// maxLoggedRecordBytes caps the raw record attached to a rejection log line.
const maxLoggedRecordBytes = 2048

// WeatherService fetches the current TAFs for an airport and reduces them to weather events.
// It holds no per-request state and is safe for concurrent use.
type WeatherService struct {
	client  client.TAFClient
	clock   clockwork.Clock
	loc     *time.Location
	tracker *traffic.Tracker
	logger  *zap.Logger
}

// Option configures a WeatherService.
type Option func(*WeatherService)

// WithClock sets the time source used for the upstream date parameter.
func WithClock(c clockwork.Clock) Option {
	return func(s *WeatherService) { s.clock = c }
}

// WithLocation sets the zone event times are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(s *WeatherService) { s.loc = loc }
}

// WithTracker records every lookup outcome in t.
func WithTracker(t *traffic.Tracker) Option {
	return func(s *WeatherService) { s.tracker = t }
}

// NewWeatherService returns a WeatherService backed by c. Events are rendered in
// US Eastern time unless WithLocation is given.
func NewWeatherService(c client.TAFClient, logger *zap.Logger, opts ...Option) *WeatherService {
	s := &WeatherService{
		client: c,
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loc == nil {
		s.loc = parser.EasternTime()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// GetWeatherEvents fetches the TAFs current at call time for airport and returns the
// forecast periods that report a weather condition. Records that fail validation are
// logged and skipped; only transport failures and malformed payloads fail the call.
func (s *WeatherService) GetWeatherEvents(ctx context.Context, airport string) ([]models.WeatherEvent, error) {
	airport = normalizeAirport(airport)
	logger := observability.LoggerFromContext(ctx, s.logger).With(zap.String("airport", airport))
	start := s.clock.Now()
	observability.RecordWeatherQuery(airport)

	raw, err := s.client.FetchTAF(ctx, airport, start.UTC())
	if err != nil {
		s.recordFailure(err)
		return nil, fmt.Errorf("fetch taf for %s: %w", airport, err)
	}

	results, err := parser.Parse(raw)
	if err != nil {
		s.recordFailure(err)
		logger.Warn("upstream payload rejected", zap.Error(err), zap.Int("bytes", len(raw)))
		return nil, fmt.Errorf("parse taf for %s: %w", airport, err)
	}
	rejected := parser.Rejected(results)
	for _, res := range rejected {
		s.logRejection(logger, res)
	}
	observability.TAFRecordsTotal.WithLabelValues("valid").Add(float64(len(results) - len(rejected)))
	observability.TAFRecordsTotal.WithLabelValues("rejected").Add(float64(len(rejected)))
	events := parser.ExtractEvents(results, s.loc)

	if s.tracker != nil {
		s.tracker.RecordSuccess()
	}
	observability.WeatherEventsTotal.Add(float64(len(events)))
	logger.Debug("weather served",
		zap.Int("events", len(events)),
		zap.Int("records", len(results)),
		zap.Int("rejected_records", len(rejected)),
		zap.Duration("duration", s.clock.Since(start)))
	return events, nil
}

func (s *WeatherService) logRejection(logger *zap.Logger, res parser.Result) {
	reason := "unknown"
	fields := []zap.Field{zap.Int("index", res.Index), zap.Error(res.Err)}
	var ve *models.ValidationError
	if errors.As(res.Err, &ve) {
		reason = string(ve.Reason)
		fields = append(fields, zap.String("field", ve.Field), zap.String("reason", reason))
	}
	fields = append(fields, zap.ByteString("record", truncate(res.Raw, maxLoggedRecordBytes)))

	observability.TAFRejectionsTotal.WithLabelValues(reason).Inc()
	logger.Warn("taf record rejected", fields...)
}

func (s *WeatherService) recordFailure(err error) {
	if s.tracker != nil {
		s.tracker.RecordError()
	}
	observability.WeatherErrorsTotal.WithLabelValues(string(client.CategorizeError(err))).Inc()
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

func normalizeAirport(airport string) string {
	return strings.TrimSpace(airport)
}
