// Package testutil provides common testing utilities and helpers.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
)

// MockResponse is one canned server reply.
type MockResponse struct {
	StatusCode int
	Header     map[string]string
	Body       string
}

func (m MockResponse) write(w http.ResponseWriter) {
	for k, v := range m.Header {
		w.Header().Set(k, v)
	}
	status := m.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(m.Body))
}

// NewMockServer creates a test HTTP server with a predefined response.
// It validates the request path when expectedPath is not empty.
// The server is closed when the test ends.
func NewMockServer(t *testing.T, expectedPath string, resp MockResponse) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if expectedPath != "" {
			assert.Equal(t, expectedPath, r.URL.Path, "Request path should match expected")
		}
		resp.write(w)
	}))
	t.Cleanup(server.Close)

	return server
}

// NewMockServerWithHandler creates a test HTTP server with a custom handler.
func NewMockServerWithHandler(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

// NewMockServerSequence creates a test server that returns responses in sequence.
// Each call to the server returns the next response in the slice; the
// returned counter reports how many requests arrived.
// Useful for testing retry logic.
func NewMockServerSequence(t *testing.T, responses ...MockResponse) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var count atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(count.Inc())
		if n > len(responses) {
			t.Errorf("More requests than configured responses (got %d requests, have %d responses)",
				n, len(responses))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		responses[n-1].write(w)
	}))
	t.Cleanup(server.Close)

	return server, &count
}
