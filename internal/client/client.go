package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kjstillabower/taf-weather-service/internal/observability"
)

// TAFClient fetches the raw TAF payload for one station.
type TAFClient interface {
	FetchTAF(ctx context.Context, airport string, at time.Time) ([]byte, error)
}

var (
	ErrAirportRequired  = errors.New("airport is required")
	ErrAirportNotFound  = errors.New("airport not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrResponseTooLarge = errors.New("upstream response too large")
)

// DefaultAPIURL is the aviationweather.gov TAF data endpoint.
const DefaultAPIURL = "https://aviationweather.gov/api/data/taf"

// maxBodyBytes is the largest upstream body FetchTAF accepts.
const maxBodyBytes = 4 << 20

// AviationWeatherClient calls the aviationweather.gov data API. The *http.Client is owned
// by the caller so one connection pool serves every request for the life of the process.
type AviationWeatherClient struct {
	apiURL  string
	timeout time.Duration
	client  *http.Client
	maxBody int64
}

// NewAviationWeatherClient returns a client for apiURL using httpClient. timeout bounds each
// upstream call; zero leaves only the caller's context deadline.
func NewAviationWeatherClient(httpClient *http.Client, apiURL string, timeout time.Duration) (*AviationWeatherClient, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	return &AviationWeatherClient{
		apiURL:  apiURL,
		timeout: timeout,
		client:  httpClient,
		maxBody: maxBodyBytes,
	}, nil
}

// NewHTTPClient builds the process-wide outbound client. Close it with CloseHTTPClient.
func NewHTTPClient(maxIdleConns int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if maxIdleConns > 0 {
		transport.MaxIdleConns = maxIdleConns
		transport.MaxIdleConnsPerHost = maxIdleConns
	}
	return &http.Client{Transport: transport}
}

// CloseHTTPClient releases the pooled connections of a client built by NewHTTPClient.
func CloseHTTPClient(c *http.Client) {
	if c != nil {
		c.CloseIdleConnections()
	}
}

// FetchTAF returns the response body of GET {apiURL}?ids=airport&format=json&date=at.
// The body is not inspected; validation belongs to the parser. aviationweather.gov answers
// 204 with no body when it has no bulletin, which is returned as an empty array.
func (c *AviationWeatherClient) FetchTAF(ctx context.Context, airport string, at time.Time) ([]byte, error) {
	if airport == "" {
		return nil, ErrAirportRequired
	}
	start := time.Now()

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.buildRequest(reqCtx, airport, at)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return []byte("[]"), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: %w: body exceeds %d bytes", ErrUpstreamFailure, ErrResponseTooLarge, c.maxBody)
	}
	return body, nil
}

func (c *AviationWeatherClient) buildRequest(ctx context.Context, airport string, at time.Time) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := baseURL.Query()
	params.Set("ids", airport)
	params.Set("format", "json")
	params.Set("date", at.UTC().Format(time.RFC3339))
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// handleErrorResponse maps non-2xx statuses to sentinel errors.
func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ErrAirportNotFound, resp.StatusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func extractCorrelationID(ctx context.Context) string {
	if corrID, ok := observability.CorrelationIDFromContext(ctx); ok {
		return corrID
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
