package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
	"github.com/couchcryptid/prevailing-winds/internal/observability"
)

const (
	operationMeta    = "meta"
	operationWeather = "weather"

	maxErrorBody = 512
)

// Client implements pipeline.WeatherSource against the upstream GraphQL endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a GraphQL client. Consecutive transport failures open the circuit
// breaker; while it is open every call fails with domain.ErrSourceUnavailable.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "data-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		IsSuccessful: func(err error) bool {
			// Rejected queries and cancelled selections say nothing about upstream health.
			return err == nil || errors.Is(err, domain.ErrQueryRejected) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				metrics.BreakerOpen.Set(1)
			} else {
				metrics.BreakerOpen.Set(0)
			}
		},
	})
	return c
}

const metaQuery = `query Meta {
  meta {
    ciPipelineId
    buildDate
    timeRanges
    months
    directions { idx name angle }
    windVelocities { idx beaufortName beaufortNumber fromKt toKt }
    waveHeights { idx douglasDegree fromM toM }
    rainIntensities { idx class name fromMm toMm }
    currentVelocities { idx class fromKt toKt }
  }
}`

const weatherQuery = `query Weather($input: WeatherInput!) {
  weather(input: $input) {
    windRecords { dir vel count }
    currentRecords { dir vel count }
    waveRecords { height count }
    rainRecords { idx count }
    rainAmounts { dailyMean }
    tempRecords { highMean highStd lowMean lowStd }
    seatempRecords { highMean highStd lowMean lowStd }
  }
}`

// Metadata fetches the dataset build description.
func (c *Client) Metadata(ctx context.Context) (domain.Metadata, error) {
	var data struct {
		Meta metaResponse `json:"meta"`
	}
	if err := c.execute(ctx, operationMeta, metaQuery, nil, &data); err != nil {
		return domain.Metadata{}, err
	}
	return data.Meta.toDomain()
}

// Weather fetches the records of every grid cell inside the query rectangle.
func (c *Client) Weather(ctx context.Context, q domain.WeatherQuery) (domain.WeatherResult, error) {
	vars := map[string]any{
		"input": weatherInput{
			TimeRange: q.TimeRange,
			Month:     q.Month,
			FromLat:   q.Rect.Lats[0],
			ToLat:     q.Rect.Lats[1],
			FromLng:   q.Rect.Lngs[0],
			ToLng:     q.Rect.Lngs[1],
		},
	}
	var data struct {
		Weather weatherResponse `json:"weather"`
	}
	if err := c.execute(ctx, operationWeather, weatherQuery, vars, &data); err != nil {
		return domain.WeatherResult{}, err
	}
	return data.Weather.toDomain(), nil
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
}

// execute posts one GraphQL operation through the circuit breaker and decodes its data
// into out.
func (c *Client) execute(ctx context.Context, operation, query string, vars map[string]any, out any) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doRequest(ctx, query, vars, out)
	})
	c.metrics.UpstreamDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.UpstreamRequests.WithLabelValues(operation, "success").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.UpstreamRequests.WithLabelValues(operation, "breaker_open").Inc()
		return fmt.Errorf("%s: %w: %v", operation, domain.ErrSourceUnavailable, err)
	default:
		c.metrics.UpstreamRequests.WithLabelValues(operation, "error").Inc()
		c.logger.Debug("upstream request failed", "operation", operation, "error", err)
		return fmt.Errorf("%s: %w", operation, err)
	}
}

func (c *Client) doRequest(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("data API error: status %d: %s", resp.StatusCode, msg)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", domain.ErrQueryRejected, resp.StatusCode, msg)
	}

	var gqlResp response
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		msgs := make([]string, len(gqlResp.Errors))
		for i, e := range gqlResp.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("%w: %s", domain.ErrQueryRejected, strings.Join(msgs, "; "))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrQueryRejected, resp.StatusCode)
	}
	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return errors.New("graphql response has no data")
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
