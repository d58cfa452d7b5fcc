package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/compozy/storagectl/pkg/logger"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "storagectl"

// Service owns the meter provider and the private registry the daemon scrapes.
// A disabled service records into no-op instruments.
type Service struct {
	config   *Config
	provider *sdkmetric.MeterProvider
	registry *prom.Registry
	system   *systemMetrics
	storage  *StorageMetrics
}

// NewMonitoringService builds the OTel provider over a Prometheus exporter.
func NewMonitoringService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	if !cfg.Enabled {
		log.Debug("metrics disabled, recording into no-op instruments")
		storage, err := NewStorageMetrics(noop.NewMeterProvider().Meter(meterName))
		if err != nil {
			return nil, err
		}
		return &Service{config: cfg, storage: storage}, nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)
	storage, err := NewStorageMetrics(meter)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	log.Debug("metrics initialized", "path", cfg.Path)
	return &Service{
		config:   cfg,
		provider: provider,
		registry: registry,
		storage:  storage,
		system:   initSystemMetrics(ctx, meter),
	}, nil
}

// Enabled reports whether metrics are exported.
func (s *Service) Enabled() bool {
	return s.registry != nil
}

// Storage returns the storage operation instruments.
func (s *Service) Storage() *StorageMetrics {
	return s.storage
}

// Path returns the HTTP path metrics are served on.
func (s *Service) Path() string {
	return s.config.Path
}

// ExporterHandler serves the registry, or 503 when metrics are disabled.
func (s *Service) ExporterHandler() http.Handler {
	if !s.Enabled() {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("metrics disabled")); err != nil {
				logger.FromContext(r.Context()).Error("failed to write response", "error", err)
			}
		})
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Mux routes Path to the exporter and 404s everything else.
func (s *Service) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, s.ExporterHandler())
	return mux
}

// Shutdown flushes and stops the provider.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.system != nil {
		s.system.unregister(ctx)
	}
	if s.provider != nil {
		return s.provider.Shutdown(ctx)
	}
	return nil
}
