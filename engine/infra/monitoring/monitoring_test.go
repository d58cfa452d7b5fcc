package monitoring

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, s *Service) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	s.ExporterHandler().ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestNewMonitoringService(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create a disabled service with default config when nil provided", func(t *testing.T) {
		service, err := NewMonitoringService(ctx, nil)
		require.NoError(t, err)
		assert.False(t, service.Enabled())
		assert.Equal(t, "/metrics", service.Path())
		assert.NotNil(t, service.Storage())
		service.Storage().RecordOperation(ctx, "move", "", time.Second)
	})

	t.Run("Should fail with invalid config", func(t *testing.T) {
		_, err := NewMonitoringService(ctx, &Config{Enabled: true, Path: ""})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "monitoring path cannot be empty")
		_, err = NewMonitoringService(ctx, &Config{Enabled: true, Path: "metrics"})
		assert.Error(t, err)
		_, err = NewMonitoringService(ctx, &Config{Enabled: true, Path: "/m?x=1"})
		assert.Error(t, err)
	})

	t.Run("Should initialize with Prometheus exporter when enabled", func(t *testing.T) {
		service, err := NewMonitoringService(ctx, &Config{Enabled: true, Path: "/metrics"})
		require.NoError(t, err)
		defer service.Shutdown(ctx)
		assert.True(t, service.Enabled())
		assert.NotNil(t, service.provider)
	})
}

func TestService_ExporterHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return 503 when monitoring is disabled", func(t *testing.T) {
		service, err := NewMonitoringService(ctx, DefaultConfig())
		require.NoError(t, err)
		code, body := scrape(t, service)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body, "metrics disabled")
	})

	t.Run("Should expose recorded storage metrics", func(t *testing.T) {
		service, err := NewMonitoringService(ctx, &Config{Enabled: true, Path: "/metrics"})
		require.NoError(t, err)
		defer service.Shutdown(ctx)

		m := service.Storage()
		m.RecordOperation(ctx, "move", "", 120*time.Millisecond)
		m.RecordOperation(ctx, "import", "COPY_FAILURE", time.Second)
		m.RecordCacheCleared(ctx, "age", 2048)
		m.RecordCacheSize(ctx, "/app/Cache", 4096)

		code, body := scrape(t, service)
		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, body, "storagectl_operations_total")
		assert.Contains(t, body, `operation="move"`)
		assert.Contains(t, body, `error_kind="COPY_FAILURE"`)
		assert.Contains(t, body, "storagectl_operation_duration_seconds")
		assert.Contains(t, body, "storagectl_cache_cleared_bytes_total")
		assert.Contains(t, body, "storagectl_cache_size_bytes")
		assert.Contains(t, body, `dir="/app/Cache"`)
		assert.Contains(t, body, "storagectl_build_info")
	})
}

func TestService_Mux(t *testing.T) {
	t.Run("Should serve metrics only on the configured path", func(t *testing.T) {
		ctx := context.Background()
		service, err := NewMonitoringService(ctx, &Config{Enabled: true, Path: "/custom"})
		require.NoError(t, err)
		defer service.Shutdown(ctx)
		mux := service.Mux()

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/custom", http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStorageMetrics_Nil(t *testing.T) {
	t.Run("Should ignore records on a nil recorder", func(t *testing.T) {
		var m *StorageMetrics
		ctx := context.Background()
		m.RecordOperation(ctx, "link", "", time.Millisecond)
		m.RecordCacheCleared(ctx, "all", 10)
		m.RecordCacheSize(ctx, "/x", 10)
	})
}
