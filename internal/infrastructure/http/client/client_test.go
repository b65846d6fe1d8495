package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ochotona/internal/core/apperror"
	appctx "ochotona/internal/core/context"
	"ochotona/internal/core/entity"
	"ochotona/internal/core/id"
	"ochotona/internal/domain/filter"
	"ochotona/internal/domain/inventory"
	"ochotona/internal/infrastructure/metrics"
	"ochotona/pkg/logger"
)

// recorded captures the last request seen by the test server.
type recorded struct {
	method    string
	path      string
	query     map[string][]string
	body      []byte
	requestID string
}

func newServer(t *testing.T, status int, response string, rec *recorded) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.Query()
		rec.body = body
		rec.requestID = r.Header.Get(HeaderRequestID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newClient[T entity.Entity](ts *httptest.Server, path string) *ResourceClient[T] {
	return New[T](Config{
		BaseURL:    ts.URL,
		Path:       path,
		EntityName: path,
		HTTPClient: ts.Client(),
		Logger:     logger.Nop(),
		Now:        func() time.Time { return time.UnixMilli(1700000000000) },
	})
}

func TestListAll_CacheBustedAndOrdered(t *testing.T) {
	var rec recorded
	ts := newServer(t, http.StatusOK, `[{"id":2,"key":"B"},{"id":1,"key":"A"}]`, &rec)
	c := newClient[inventory.Storage](ts, inventory.PathStorages)

	page, size := 0, 20
	items, err := c.ListAll(context.Background(), ListQuery{Page: &page, Size: &size, Sort: []string{"id,asc"}})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/storages", rec.path)
	assert.Equal(t, []string{"1700000000000"}, rec.query["cacheBuster"])
	assert.Equal(t, []string{"0"}, rec.query["page"])
	assert.Equal(t, []string{"20"}, rec.query["size"])
	assert.Equal(t, []string{"id,asc"}, rec.query["sort"])

	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].Key)
	assert.Equal(t, "A", items[1].Key)
}

func TestListQuery_Filter(t *testing.T) {
	now := time.UnixMilli(5)

	v := ListQuery{}.Values(now)
	assert.Empty(t, v.Get("filter"))

	v = ListQuery{Filter: []filter.Item{{Field: "key", Operator: filter.Equal, Value: "A"}}}.Values(now)
	assert.JSONEq(t, `[{"field":"key","operator":"eq","value":"A"}]`, v.Get("filter"))
	assert.Equal(t, "5", v.Get("cacheBuster"))
}

func TestListAll_EmptyBodyYieldsEmptySlice(t *testing.T) {
	var rec recorded
	ts := newServer(t, http.StatusOK, `null`, &rec)
	c := newClient[inventory.Products](ts, inventory.PathProducts)

	items, err := c.ListAll(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCreate_SanitizesAndReturnsServerRecord(t *testing.T) {
	var rec recorded
	ts := newServer(t, http.StatusCreated, `{"id":1,"key":"A1","storageRoom":null}`, &rec)
	c := newClient[inventory.Storage](ts, inventory.PathStorages)

	created, err := c.Create(context.Background(), inventory.NewStorage("A1"))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/storages", rec.path)
	assert.JSONEq(t, `{"key":"A1"}`, string(rec.body))
	assert.Equal(t, id.ID(1), created.ID)
	assert.Equal(t, "A1", created.Key)
	assert.False(t, created.StorageRoom.IsSet())
}

func TestPatch_DropsEmptyStrings(t *testing.T) {
	var rec recorded
	ts := newServer(t, http.StatusOK, `{"id":5,"name":"Old","inherit":{"id":1,"key":"A1"}}`, &rec)
	c := newClient[inventory.StorageRoom](ts, inventory.PathStorageRooms)

	empty := ""
	_, err := c.Patch(context.Background(), inventory.StorageRoom{Base: entity.Base{ID: 5}, Name: &empty})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, rec.method)
	assert.Equal(t, "/api/storage-rooms/5", rec.path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(rec.body, &sent))
	assert.NotContains(t, sent, "name")
	assert.Equal(t, map[string]any{"id": float64(5)}, sent)
}

func TestUpdate_RequiresID(t *testing.T) {
	var rec recorded
	ts := newServer(t, http.StatusOK, `{}`, &rec)
	c := newClient[inventory.Products](ts, inventory.PathProducts)

	_, err := c.Update(context.Background(), inventory.NewProducts("Widget"))
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, rec.method, "no request must be sent")
}

func TestGetOne_NotFound(t *testing.T) {
	var rec recorded
	ts := newServer(t, http.StatusNotFound, `{"title":"Not Found","status":404}`, &rec)
	c := newClient[inventory.StockPosition](ts, inventory.PathStockPositions)

	_, err := c.GetOne(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, "/api/stock-positions/42", rec.path)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "42", appErr.Details["id"])
}

func TestServerError_CarriesMessage(t *testing.T) {
	var rec recorded
	ts := newServer(t, http.StatusBadRequest, `{"code":"VALIDATION_ERROR","message":"A new storage cannot already have an ID"}`, &rec)
	c := newClient[inventory.Storage](ts, inventory.PathStorages)

	_, err := c.Create(context.Background(), inventory.NewStorage("A1"))
	require.Error(t, err)
	assert.Equal(t, "400: A new storage cannot already have an ID", apperror.Message(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Details["server_code"])
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	c := newClient[inventory.Products](ts, inventory.PathProducts)
	ts.Close()

	_, err := c.ListAll(context.Background(), ListQuery{})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeTransport, appErr.Code)
}

func TestRemove_NoContent(t *testing.T) {
	var rec recorded
	ts := newServer(t, http.StatusNoContent, ``, &rec)
	c := newClient[inventory.Storage](ts, inventory.PathStorages)

	_, err := c.Remove(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, "/api/storages/3", rec.path)
}

func TestRequestID_PropagatedFromContext(t *testing.T) {
	var rec recorded
	ts := newServer(t, http.StatusOK, `[]`, &rec)
	c := newClient[inventory.Products](ts, inventory.PathProducts)

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{TraceID: "t", RequestID: "req-7"})
	_, err := c.ListAll(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, "req-7", rec.requestID)

	_, err = c.ListAll(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.requestID)
}

func TestMetrics_CountRequests(t *testing.T) {
	var rec recorded
	ts := newServer(t, http.StatusOK, `[]`, &rec)

	m, err := metrics.NewClientMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	c := New[inventory.Products](Config{
		BaseURL:    ts.URL,
		Path:       inventory.PathProducts,
		EntityName: inventory.EntityProducts,
		HTTPClient: ts.Client(),
		Logger:     logger.Nop(),
		Metrics:    m,
	})

	_, err = c.ListAll(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests().WithLabelValues(inventory.EntityProducts, OpList, "200")))
}
