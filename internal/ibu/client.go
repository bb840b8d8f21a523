// Package ibu is a client for the IBU results service (biathlonresults.com
// sport API).
package ibu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"biathlonstats/internal/payload"
)

const DefaultBaseURL = "https://biathlonresults.com/modules/sportapi/api"

// ErrUnavailable wraps every transport, status and decoding failure.
var ErrUnavailable = errors.New("results service unavailable")

type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Logger            *slog.Logger
	Tracer            trace.Tracer
	// Registerer receives the client's collectors. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer
}

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	tracer  trace.Tracer

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("biathlonstats/ibu")
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		limiter: rate.NewLimiter(limit, opts.Burst),
		logger:  opts.Logger,
		tracer:  opts.Tracer,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biathlon_api_requests_total",
			Help: "Requests sent to the results service by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biathlon_api_request_duration_seconds",
			Help:    "Latency of results service requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	if opts.Registerer != nil {
		for _, col := range []prometheus.Collector{c.requests, c.latency} {
			if err := opts.Registerer.Register(col); err != nil {
				return nil, fmt.Errorf("registering api metrics: %w", err)
			}
		}
	}
	return c, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "ibu."+endpoint, trace.WithAttributes(
		attribute.String("ibu.endpoint", endpoint),
		attribute.String("ibu.query", query.Encode()),
	))
	defer span.End()

	body, err := c.do(ctx, endpoint, query)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.DebugContext(ctx, "results service request failed",
			slog.String("endpoint", endpoint),
			slog.String("query", query.Encode()),
			slog.Any("error", err))
	}
	c.requests.WithLabelValues(endpoint, outcome).Inc()
	return body, err
}

func (c *Client) do(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limiter: %v", ErrUnavailable, err)
	}
	u := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	c.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrUnavailable, endpoint, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrUnavailable, endpoint, err)
	}
	return body, nil
}

func (c *Client) object(ctx context.Context, endpoint string, query url.Values) (payload.Record, error) {
	body, err := c.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	rec, err := payload.DecodeObject(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, endpoint, err)
	}
	return rec, nil
}

func (c *Client) list(ctx context.Context, endpoint string, query url.Values) ([]payload.Record, error) {
	body, err := c.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	recs, err := payload.DecodeList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, endpoint, err)
	}
	return recs, nil
}

func (c *Client) Seasons(ctx context.Context) ([]payload.Record, error) {
	return c.list(ctx, "Seasons", nil)
}

// CurrentSeason returns the season flagged current, else the one with the
// highest sort order.
func (c *Client) CurrentSeason(ctx context.Context) (string, error) {
	seasons, err := c.Seasons(ctx)
	if err != nil {
		return "", err
	}
	if len(seasons) == 0 {
		return "", fmt.Errorf("%w: no seasons returned", ErrUnavailable)
	}
	best, bestOrder := seasons[0], -1
	for _, s := range seasons {
		if s.Bool("IsCurrent") {
			return s.String("SeasonId"), nil
		}
		if order, _ := s.Int("SortOrder"); order > bestOrder {
			best, bestOrder = s, order
		}
	}
	return best.String("SeasonId"), nil
}

func (c *Client) Events(ctx context.Context, seasonID string, level int) ([]payload.Record, error) {
	return c.list(ctx, "Events", url.Values{"SeasonId": {seasonID}, "Level": {strconv.Itoa(level)}})
}

func (c *Client) Competitions(ctx context.Context, eventID string) ([]payload.Record, error) {
	return c.list(ctx, "Competitions", url.Values{"EventId": {eventID}})
}

func (c *Client) Results(ctx context.Context, raceID string) (payload.Record, error) {
	return c.object(ctx, "Results", url.Values{"RaceId": {raceID}})
}

func (c *Client) Analytic(ctx context.Context, raceID, typeID string) (payload.Record, error) {
	return c.object(ctx, "AnalyticResults", url.Values{"RaceId": {raceID}, "TypeId": {typeID}})
}

func (c *Client) Cups(ctx context.Context, seasonID string) ([]payload.Record, error) {
	return c.list(ctx, "Cups", url.Values{"SeasonId": {seasonID}})
}

func (c *Client) CupResults(ctx context.Context, cupID string) (payload.Record, error) {
	return c.object(ctx, "CupResults", url.Values{"CupId": {cupID}})
}
