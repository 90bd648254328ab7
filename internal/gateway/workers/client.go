package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/metadata"
	"onfleet-workers-go/internal/ratelimit"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://onfleet.com/api/v2"

const (
	defaultUserAgent = "onfleet-workers-go"
	defaultTimeout   = 30 * time.Second
	maxResponseBody  = 8 << 20
	limiterKey       = "workers"
)

// Options configures HTTPGateway.
type Options struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
	// Transport is wrapped with otelhttp; nil means http.DefaultTransport.
	Transport http.RoundTripper
	// Limiter throttles outgoing calls; nil disables throttling.
	Limiter   ratelimit.Waiter
	Logger    logx.Logger
	Durations *prometheus.HistogramVec
}

// HTTPGateway talks to the workers collection over REST.
type HTTPGateway struct {
	base      *url.URL
	apiKey    string
	userAgent string
	client    *http.Client
	limiter   ratelimit.Waiter
	logger    logx.Logger
	durations *prometheus.HistogramVec
	now       func() time.Time
}

// NewHTTPGateway builds a gateway from opts.
func NewHTTPGateway(opts Options) (*HTTPGateway, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("workers gateway: invalid base url %q", raw)
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("workers gateway: api key is required")
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NopLimiter{}
	}
	if opts.Logger == nil {
		opts.Logger = logx.Nop()
	}
	return &HTTPGateway{
		base:      base,
		apiKey:    opts.APIKey,
		userAgent: opts.UserAgent,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(opts.Transport),
		},
		limiter:   opts.Limiter,
		logger:    opts.Logger,
		durations: opts.Durations,
		now:       time.Now,
	}, nil
}

// Create registers a new worker.
func (g *HTTPGateway) Create(ctx context.Context, req domain.CreateWorker) (*domain.Worker, error) {
	if err := domain.ValidateCreate(&req); err != nil {
		return nil, err
	}
	var w domain.Worker
	if err := g.do(ctx, opCreate, http.MethodPost, g.endpoint("workers"), nil, req, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Delete removes a worker.
func (g *HTTPGateway) Delete(ctx context.Context, id string) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	return g.do(ctx, opDelete, http.MethodDelete, g.endpoint("workers", id), nil, nil, nil)
}

// List returns the workers of the organisation narrowed by q.
func (g *HTTPGateway) List(ctx context.Context, q *domain.WorkerQuery) ([]domain.Worker, error) {
	query, err := workerQueryValues(q)
	if err != nil {
		return nil, err
	}
	var out []domain.Worker
	if err := g.do(ctx, opList, http.MethodGet, g.endpoint("workers"), query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a single worker.
func (g *HTTPGateway) Get(ctx context.Context, id string, q *domain.WorkerQuery) (*domain.Worker, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	query, err := workerQueryValues(q)
	if err != nil {
		return nil, err
	}
	var w domain.Worker
	if err := g.do(ctx, opGet, http.MethodGet, g.endpoint("workers", id), query, nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByLocation returns workers around a point.
func (g *HTTPGateway) GetByLocation(ctx context.Context, q domain.LocationQuery) ([]domain.Worker, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var env locationEnvelope
	if err := g.do(ctx, opGetByLocation, http.MethodGet, g.endpoint("workers", "location"), q.Values(), nil, &env); err != nil {
		return nil, err
	}
	return env.Workers, nil
}

// GetSchedule returns the schedule entries of a worker.
func (g *HTTPGateway) GetSchedule(ctx context.Context, id string) ([]domain.WorkerSchedule, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	var env scheduleEnvelope
	if err := g.do(ctx, opGetSchedule, http.MethodGet, g.endpoint("workers", id, "schedule"), nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Entries, nil
}

// SetSchedule sets the schedule of a worker and returns the stored entries.
func (g *HTTPGateway) SetSchedule(ctx context.Context, id string, s domain.WorkerSchedule) ([]domain.WorkerSchedule, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var env scheduleEnvelope
	if err := g.do(ctx, opSetSchedule, http.MethodPost, g.endpoint("workers", id, "schedule"), nil, s, &env); err != nil {
		return nil, err
	}
	return env.Entries, nil
}

// InsertTask appends tasks to the worker's container.
func (g *HTTPGateway) InsertTask(ctx context.Context, id string, tasks []string) (*domain.Worker, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if err := domain.ValidateTaskIDs(tasks); err != nil {
		return nil, err
	}
	var w domain.Worker
	body := insertTaskRequest{Tasks: tasks}
	if err := g.do(ctx, opInsertTask, http.MethodPut, g.endpoint("containers", "workers", id), nil, body, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Update changes the given fields of a worker.
func (g *HTTPGateway) Update(ctx context.Context, id string, u domain.PartialWorkerUpdate) (*domain.Worker, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if err := domain.ValidateUpdate(&u); err != nil {
		return nil, err
	}
	var w domain.Worker
	if err := g.do(ctx, opUpdate, http.MethodPut, g.endpoint("workers", id), nil, u, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// MatchMetadata returns workers whose metadata satisfies f.
func (g *HTTPGateway) MatchMetadata(ctx context.Context, f metadata.Filter) ([]domain.Worker, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var out []domain.Worker
	if err := g.do(ctx, opMatchMetadata, http.MethodPost, g.endpoint("workers", "metadata"), nil, f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func workerQueryValues(q *domain.WorkerQuery) (url.Values, error) {
	if q == nil {
		return nil, nil
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q.Values(), nil
}

// endpoint joins escaped path segments to the base url.
func (g *HTTPGateway) endpoint(segments ...string) *url.URL {
	u := *g.base
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.RawPath = strings.TrimRight(g.base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	u.Path, _ = url.PathUnescape(u.RawPath)
	return &u
}

func (g *HTTPGateway) do(ctx context.Context, op, method string, u *url.URL, query url.Values, in, out any) error {
	if err := g.limiter.Wait(ctx, limiterKey); err != nil {
		return fmt.Errorf("workers gateway: %s: throttle: %w", op, err)
	}

	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("workers gateway: %s: encode request: %w", op, err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("workers gateway: %s: build request: %w", op, err)
	}
	req.SetBasicAuth(g.apiKey, "")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := g.now()
	resp, err := g.client.Do(req)
	elapsed := g.now().Sub(start)
	if err != nil {
		g.observe(op, "error", elapsed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("workers gateway: %s: %w", op, ctxErr)
		}
		return fmt.Errorf("workers gateway: %s: %w: %w", op, apperr.Transport, err)
	}
	defer resp.Body.Close()

	g.observe(op, strconv.Itoa(resp.StatusCode), elapsed)
	g.logger.Debug("workers api call",
		logx.String("op", op),
		logx.String("method", method),
		logx.String("path", u.Path),
		logx.Int("status", resp.StatusCode),
		logx.Duration("duration", elapsed),
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("workers gateway: %s: read response: %w: %w", op, apperr.Transport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(op, resp, raw, g.now())
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("workers gateway: %s: decode response: %w", op, err)
	}
	return nil
}

func (g *HTTPGateway) observe(op, status string, d time.Duration) {
	if g.durations == nil {
		return
	}
	g.durations.WithLabelValues(op, status).Observe(d.Seconds())
}

var _ API = (*HTTPGateway)(nil)
