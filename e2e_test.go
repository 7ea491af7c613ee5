package asynchttp_test

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	asynchttp "github.com/lexfrei/go-asynchttp"
	"github.com/lexfrei/go-asynchttp/config"
	"github.com/lexfrei/go-asynchttp/internal/testutil"
	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/transport"
)

func TestEndToEndOverHTTP(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServer(t, "/greeting", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Header:     map[string]string{"hdr1": "val1"},
		Body:       "hello",
	})

	client, err := asynchttp.New()
	require.NoError(t, err)
	t.Cleanup(client.CloseIdleConnections)

	resp, err := client.Do(context.Background(), newRequest(t, server.URL+"/greeting"))
	require.NoError(t, err)
	defer resp.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	value, ok := resp.Header("hdr1")
	assert.True(t, ok)
	assert.Equal(t, "val1", value)
	_, ok = resp.Header("missing")
	assert.False(t, ok)

	text, err := resp.Text()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestEndToEndConnectionFailure(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	client, err := asynchttp.New(asynchttp.WithConnectTimeout(time.Second))
	require.NoError(t, err)

	_, err = client.Do(context.Background(), newRequest(t, "http://"+addr+"/"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrConnection), "got %v", err)
}

func TestEndToEndRetryAgainstServer(t *testing.T) {
	t.Parallel()

	server, count := testutil.NewMockServerSequence(t,
		testutil.MockResponse{StatusCode: http.StatusServiceUnavailable, Header: map[string]string{"Retry-After": "0"}},
		testutil.MockResponse{StatusCode: http.StatusInternalServerError},
		testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"id":7,"name":"widget"}`},
	)

	metrics := &testutil.RecordingMetrics{}
	client, err := asynchttp.New(
		asynchttp.WithRetry(3, time.Millisecond),
		asynchttp.WithMetrics(metrics),
	)
	require.NoError(t, err)
	t.Cleanup(client.CloseIdleConnections)

	type item struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	got, err := asynchttp.DoJSON[item](context.Background(), client, newRequest(t, server.URL+"/items/7"))
	require.NoError(t, err)
	assert.Equal(t, &item{ID: 7, Name: "widget"}, got)
	assert.Equal(t, int32(3), count.Load())

	snap := metrics.Snapshot()
	assert.Equal(t, []int{1, 2}, snap.Retries)
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, http.StatusOK, snap.Requests[0].Status)
}

func TestDoJSONUnexpectedStatus(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServer(t, "", testutil.MockResponse{StatusCode: http.StatusNotFound, Body: "not here"})

	client, err := asynchttp.New()
	require.NoError(t, err)
	t.Cleanup(client.CloseIdleConnections)

	_, err = asynchttp.DoJSON[map[string]any](context.Background(), client, newRequest(t, server.URL))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynchttp.ErrUnexpectedStatus))
}

func TestDoNoContent(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServerWithHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	client, err := asynchttp.New()
	require.NoError(t, err)
	t.Cleanup(client.CloseIdleConnections)

	req, err := message.NewRequest(message.MethodDelete, server.URL+"/items/7", nil)
	require.NoError(t, err)

	require.NoError(t, asynchttp.DoNoContent(context.Background(), client, req, http.StatusNoContent))
}

func TestPostJSONBody(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServerWithHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "acme", r.Header.Get("X-Tenant"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"created":true}`))
	})

	client, err := asynchttp.New(asynchttp.WithHeader("X-Tenant", "acme"), asynchttp.WithCompression())
	require.NoError(t, err)
	t.Cleanup(client.CloseIdleConnections)

	body, err := message.JSONBody(map[string]string{"name": "widget"})
	require.NoError(t, err)
	req, err := message.NewRequest(message.MethodPost, server.URL+"/items", body)
	require.NoError(t, err)

	got, err := asynchttp.DoJSONWithStatus[map[string]bool](context.Background(), client, req, http.StatusCreated)
	require.NoError(t, err)
	assert.True(t, (*got)["created"])
}

func TestNewRejectsInvalidTransport(t *testing.T) {
	t.Parallel()

	_, err := asynchttp.New(asynchttp.WithProxy("://bad"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, transport.ErrInvalidConfig))

	_, err = asynchttp.New(asynchttp.WithProxyAuth("user", "pass"))
	require.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	server := testutil.NewMockServerWithHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cfg-agent/2.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "a", r.Header.Get("X-A"))
		assert.Equal(t, "b", r.Header.Get("X-B"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusOK)
	})

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: error
client:
  user_agent: cfg-agent/2.0
  request_id: true
  max_retries: 1
  headers:
    x-b: b
    x-a: a
`), 0o600))

	cfg, err := config.Load(config.WithConfigFile(path), config.WithEnvPrefix("ASYNCHTTP_TEST_FACADE"))
	require.NoError(t, err)

	client, err := asynchttp.NewFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(client.CloseIdleConnections)

	// observability, request ID, user agent, two headers, retry
	assert.Equal(t, 6, client.Interceptors())

	require.NoError(t, asynchttp.DoNoContent(context.Background(), client, newRequest(t, server.URL), http.StatusOK))
}

func TestNewFromConfigInvalid(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Client.MaxRetries = -1

	_, err := asynchttp.NewFromConfig(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}
