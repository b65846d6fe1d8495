// Package client provides the Resource Client: one HTTP round trip per REST operation
// against the /api/{base} collection of a single entity type.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"ochotona/internal/core/apperror"
	appctx "ochotona/internal/core/context"
	"ochotona/internal/core/entity"
	"ochotona/internal/core/id"
	"ochotona/internal/domain/filter"
	"ochotona/internal/infrastructure/metrics"
	"ochotona/pkg/logger"
)

var tracer = otel.Tracer("ochotona/client")

const (
	HeaderRequestID = "X-Request-ID"

	// DefaultTimeout applies when no http.Client is supplied.
	DefaultTimeout = 30 * time.Second
)

// Operation names used for spans, logs and metrics.
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpPatch  = "patch"
	OpDelete = "delete"
)

// ListQuery carries optional paging and sorting for collection reads.
type ListQuery struct {
	Page *int
	Size *int
	Sort []string

	// Filter is sent as the JSON filter parameter; servers that do not know it ignore it
	Filter []filter.Item
}

// Values encodes the query; cacheBuster is always set so intermediaries never serve a stale list.
func (q ListQuery) Values(now time.Time) url.Values {
	v := url.Values{}
	v.Set("cacheBuster", strconv.FormatInt(now.UnixMilli(), 10))
	if q.Page != nil {
		v.Set("page", strconv.Itoa(*q.Page))
	}
	if q.Size != nil {
		v.Set("size", strconv.Itoa(*q.Size))
	}
	for _, s := range q.Sort {
		v.Add("sort", s)
	}
	if len(q.Filter) > 0 {
		if raw, err := filter.Encode(q.Filter); err == nil {
			v.Set("filter", raw)
		}
	}
	return v
}

// Config configures a Resource Client.
type Config struct {
	// BaseURL is the server root, e.g. http://localhost:8080
	BaseURL string

	// Path is the entity collection under /api, e.g. storages
	Path string

	// EntityName is used in errors, logs and metrics
	EntityName string

	HTTPClient *http.Client
	Logger     *logger.Logger
	Metrics    *metrics.ClientMetrics

	// Now is the clock for cache busting (tests)
	Now func() time.Time
}

// ResourceClient performs the six REST operations for one entity type.
type ResourceClient[T entity.Entity] struct {
	endpoint   string
	entityName string
	httpClient *http.Client
	log        *logger.Logger
	metrics    *metrics.ClientMetrics
	now        func() time.Time
}

// NewHTTPClient returns an http.Client with gzip negotiation on the transport.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: gzhttp.Transport(http.DefaultTransport),
	}
}

// New creates a Resource Client for the collection at {BaseURL}/api/{Path}.
func New[T entity.Entity](cfg Config) *ResourceClient[T] {
	c := &ResourceClient[T]{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/api/" + strings.Trim(cfg.Path, "/"),
		entityName: cfg.EntityName,
		httpClient: cfg.HTTPClient,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
	}
	if c.entityName == "" {
		c.entityName = cfg.Path
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(DefaultTimeout)
	}
	if c.log == nil {
		c.log = logger.Default()
	}
	c.log = c.log.WithComponent("resource-client").WithEntity(c.entityName)
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Endpoint returns the collection URL.
func (c *ResourceClient[T]) Endpoint() string {
	return c.endpoint
}

// EntityName returns the entity name used in errors.
func (c *ResourceClient[T]) EntityName() string {
	return c.entityName
}

// ListAll fetches the whole collection (GET /api/{base}).
func (c *ResourceClient[T]) ListAll(ctx context.Context, q ListQuery) ([]T, error) {
	target := c.endpoint + "?" + q.Values(c.now()).Encode()

	var items []T
	if err := c.do(ctx, OpList, http.MethodGet, target, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// GetOne fetches a single record (GET /api/{base}/{id}).
func (c *ResourceClient[T]) GetOne(ctx context.Context, entityID id.ID) (T, error) {
	var out T
	if err := c.do(ctx, OpGet, http.MethodGet, c.itemURL(entityID), nil, &out); err != nil {
		return out, c.notFound(err, entityID)
	}
	return out, nil
}

// Create submits a new record (POST /api/{base}) and returns it with its server-assigned id.
func (c *ResourceClient[T]) Create(ctx context.Context, record T) (T, error) {
	return c.write(ctx, OpCreate, http.MethodPost, c.endpoint, record)
}

// Update replaces a record (PUT /api/{base}/{id}).
func (c *ResourceClient[T]) Update(ctx context.Context, record T) (T, error) {
	return c.write(ctx, OpUpdate, http.MethodPut, c.itemURL(record.GetID()), record)
}

// Patch applies the set fields of a partial record (PATCH /api/{base}/{id}).
func (c *ResourceClient[T]) Patch(ctx context.Context, record T) (T, error) {
	return c.write(ctx, OpPatch, http.MethodPatch, c.itemURL(record.GetID()), record)
}

// Remove deletes a record (DELETE /api/{base}/{id}).
// Servers usually answer 204; a returned body is decoded when present.
func (c *ResourceClient[T]) Remove(ctx context.Context, entityID id.ID) (T, error) {
	var out T
	if err := c.do(ctx, OpDelete, http.MethodDelete, c.itemURL(entityID), nil, &out); err != nil {
		return out, c.notFound(err, entityID)
	}
	return out, nil
}

func (c *ResourceClient[T]) write(ctx context.Context, op, method, target string, record T) (T, error) {
	var out T
	if (op == OpUpdate || op == OpPatch) && id.IsNil(record.GetID()) {
		return out, apperror.NewValidation("id is required").
			WithDetail("entity", c.entityName).
			WithDetail("operation", op)
	}

	body, err := Sanitize(record)
	if err != nil {
		return out, apperror.NewValidation("invalid record").WithCause(err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return out, apperror.NewInternal(fmt.Errorf("encode body: %w", err))
	}

	if err := c.do(ctx, op, method, target, payload, &out); err != nil {
		if op != OpCreate {
			return out, c.notFound(err, record.GetID())
		}
		return out, err
	}
	return out, nil
}

func (c *ResourceClient[T]) itemURL(entityID id.ID) string {
	return c.endpoint + "/" + url.PathEscape(entityID.String())
}

// notFound attaches entity name and id to a 404 response.
func (c *ResourceClient[T]) notFound(err error, entityID id.ID) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(c.entityName, entityID.String()).WithCause(err)
	}
	return err
}

// do performs a single round trip and decodes a JSON response into out.
func (c *ResourceClient[T]) do(ctx context.Context, op, method, target string, body []byte, out any) error {
	ctx, requestID := appctx.EnsureRequestID(ctx)
	ctx, span := tracer.Start(ctx, c.entityName+"."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
			attribute.String("ochotona.entity", c.entityName),
		),
	)
	defer span.End()

	log := c.log.WithContext(ctx)
	start := time.Now()
	status := 0
	defer func() {
		c.metrics.Observe(c.entityName, op, status, time.Since(start))
	}()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderRequestID, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	log.Debugw("resource request", "operation", op, "method", method, "url", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		appErr := apperror.NewTransport(method, target, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, appErr.Message)
		log.Warnw("resource request failed", "operation", op, "error", err)
		return appErr
	}
	defer func() { _ = resp.Body.Close() }()

	status = resp.StatusCode
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if status < 200 || status > 299 {
		appErr := parseError(resp)
		span.SetStatus(codes.Error, appErr.Message)
		log.Warnw("resource request rejected",
			"operation", op,
			"status", status,
			"message", appErr.Message,
		)
		return appErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.NewTransport(method, target, fmt.Errorf("read body: %w", err))
	}
	if len(bytes.TrimSpace(data)) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		span.RecordError(err)
		return apperror.NewDecode(err).WithDetail("entity", c.entityName)
	}

	log.Debugw("resource response", "operation", op, "status", status, "latency_ms", time.Since(start).Milliseconds())
	return nil
}

// parseError extracts the server message from an error response.
// Both problem+json (title/detail/message) and {code,message} bodies are understood.
func parseError(resp *http.Response) *apperror.AppError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var problem struct {
		Code    string `json:"code"`
		Title   string `json:"title"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	message := ""
	if err := json.Unmarshal(data, &problem); err == nil {
		switch {
		case problem.Message != "":
			message = problem.Message
		case problem.Detail != "":
			message = problem.Detail
		case problem.Title != "":
			message = problem.Title
		}
	} else if text := strings.TrimSpace(string(data)); text != "" {
		message = text
	}

	appErr := apperror.FromStatus(resp.StatusCode, message)
	if problem.Code != "" {
		appErr.WithDetail("server_code", problem.Code)
	}
	return appErr
}
