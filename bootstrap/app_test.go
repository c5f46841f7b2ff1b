package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"secanalytics/api"
	"secanalytics/config"
	"secanalytics/core"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeBackend answers every Security Analytics search with an empty result
func fakeBackend(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":0},"hits":[]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func loadTestConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	cfg, err := InitConfig(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return cfg
}

func TestInitLogger(t *testing.T) {
	for _, enc := range []string{"", "console", "json"} {
		logger, sugar, err := InitLogger("debug", enc)
		require.NoError(t, err, enc)
		assert.NotNil(t, sugar)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	}

	_, _, err := InitLogger("loud", "console")
	assert.Error(t, err)
	_, _, err = InitLogger("info", "xml")
	assert.Error(t, err)
}

func TestInitTracing(t *testing.T) {
	cfg := &config.Config{}
	tp, shutdown := InitTracing(cfg, zaptest.NewLogger(t).Sugar())
	assert.IsType(t, noop.TracerProvider{}, tp)
	assert.NoError(t, shutdown(context.Background()))

	obsCore, logs := observer.New(zapcore.DebugLevel)
	cfg.Tracing.Enabled = true
	cfg.Tracing.SampleRatio = 1
	tp, shutdown = InitTracing(cfg, zap.New(obsCore).Sugar())
	defer shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "overview.refresh")
	span.End()

	spans := logs.FilterMessage("span_finished").All()
	require.Len(t, spans, 1)
	assert.Equal(t, "overview.refresh", spans[0].ContextMap()["span"])
}

func TestNewComponents_RedisFallback(t *testing.T) {
	backend, _ := fakeBackend(t)
	cfg := loadTestConfig(t, fmt.Sprintf(`
backend:
  url: %s
cache:
  redis:
    enabled: true
    addr: 127.0.0.1:1
`, backend.URL))

	c, err := NewComponents(context.Background(), cfg, noop.NewTracerProvider(), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer c.Close(context.Background(), zaptest.NewLogger(t).Sugar())

	assert.Nil(t, c.Cache, "unreachable redis degrades to the local cache")
	assert.NotNil(t, c.Actor)
}

func TestNewComponents_WithRedis(t *testing.T) {
	backend, _ := fakeBackend(t)
	mr := miniredis.RunT(t)
	cfg := loadTestConfig(t, fmt.Sprintf(`
backend:
  url: %s
cache:
  redis:
    enabled: true
    addr: %s
`, backend.URL, mr.Addr()))

	c, err := NewComponents(context.Background(), cfg, noop.NewTracerProvider(), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer c.Close(context.Background(), zaptest.NewLogger(t).Sugar())
	require.NotNil(t, c.Cache)

	assert.True(t, c.Actor.OnRefresh(context.Background(), "now-1h", "now"))
	assert.Empty(t, c.Actor.Snapshot().Detectors)
}

func TestApp_Lifecycle(t *testing.T) {
	backend, calls := fakeBackend(t)
	port := freePort(t)
	cfg := loadTestConfig(t, fmt.Sprintf(`
backend:
  url: %s
refresh:
  interval: 1h
api:
  host: 127.0.0.1
  port: %d
`, backend.URL, port))

	app, err := NewAppWithConfig(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Shutdown()

	require.NoError(t, app.Start())

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var health api.HealthResponse
		if json.NewDecoder(resp.Body).Decode(&health) != nil {
			return false
		}
		return resp.StatusCode == http.StatusOK && health.Checks["backend"] == "ok" &&
			health.BackendCircuit == core.CircuitBreakerStateClosed
	}, 5*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return !app.Components.Actor.LastRefresh().IsZero()
	}, 5*time.Second, 20*time.Millisecond, "auto-refresh runs immediately")
	assert.Greater(t, calls.Load(), int32(1))

	resp, err := http.Get(base + "/api/overview?start=now-15m&end=now")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	app.Shutdown()
	app.Shutdown()
	_, err = http.Get(base + "/health")
	assert.Error(t, err, "server is closed after shutdown")
}

func TestApp_StartFailsOnBusyPort(t *testing.T) {
	backend, _ := fakeBackend(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := loadTestConfig(t, fmt.Sprintf(`
backend:
  url: %s
refresh:
  interval: 0s
api:
  host: 127.0.0.1
  port: %d
`, backend.URL, ln.Addr().(*net.TCPAddr).Port))

	app, err := NewAppWithConfig(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Shutdown()

	err = app.Start()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to listen"))
}
