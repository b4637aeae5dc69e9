package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/modules/batch"
	"github.com/aristath/frontier/internal/modules/frontier"
	frontierhandlers "github.com/aristath/frontier/internal/modules/frontier/handlers"
	"github.com/aristath/frontier/internal/modules/marketdata"
)

func newTestServer(t *testing.T, log zerolog.Logger) *Server {
	t.Helper()

	svc := frontier.NewService(
		frontier.NewSampler(log),
		frontier.NewOptimizer(frontier.DefaultOptimizerSettings(), log),
		log,
	)
	defaults := frontier.DefaultParams()
	defaults.SampleCount = 100

	handler := frontierhandlers.NewHandler(svc, batch.NewRunner(svc, 2, log), marketdata.NewBuilder(log), defaults, log)

	return New(Config{Log: log, Port: 0, DevMode: true, Handler: handler})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, zerolog.Nop())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "frontier", response.Service)
	assert.GreaterOrEqual(t, response.UptimeSeconds, 0.0)
	assert.GreaterOrEqual(t, response.CPUPercent, 0.0)
	assert.GreaterOrEqual(t, response.MemoryPercent, 0.0)
}

func TestAPIRoutesMounted(t *testing.T) {
	s := newTestServer(t, zerolog.Nop())

	req := httptest.NewRequest("GET", "/api/frontier/defaults", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	body := bytes.NewBufferString(`{"assets":["A","B"],"returns":[[0.01,0.0],[0.0,0.01],[0.02,-0.01]],"seed":1}`)
	req = httptest.NewRequest("POST", "/api/frontier/compute", body)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req = httptest.NewRequest("GET", "/api/unknown", nil)
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMiddleware_RequestLoggingAndCORS(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(t, zerolog.New(&buf))

	req := httptest.NewRequest("GET", "/api/frontier/defaults", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))

	var entry map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var candidate map[string]interface{}
		if json.Unmarshal(line, &candidate) == nil && candidate["message"] == "HTTP request" {
			entry = candidate
		}
	}
	require.NotNil(t, entry, "request should be logged")
	assert.Equal(t, "server", entry["component"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/frontier/defaults", entry["path"])
	assert.Equal(t, 200.0, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestMiddleware_RecoversFromPanic(t *testing.T) {
	s := newTestServer(t, zerolog.Nop())
	s.router.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
