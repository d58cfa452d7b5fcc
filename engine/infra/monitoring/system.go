package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/compozy/storagectl/pkg/logger"
	"github.com/compozy/storagectl/pkg/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type systemMetrics struct {
	registration metric.Registration
}

// initSystemMetrics records build info and registers the uptime gauge.
func initSystemMetrics(ctx context.Context, meter metric.Meter) *systemMetrics {
	log := logger.FromContext(ctx)
	sys := &systemMetrics{}
	buildInfo, err := meter.Float64Gauge(
		"storagectl_build_info",
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		log.Error("Failed to create build info gauge", "error", err)
	} else {
		info := version.Get()
		buildInfo.Record(ctx, 1,
			metric.WithAttributes(
				attribute.String("version", info.Version),
				attribute.String("commit_hash", info.CommitHash),
				attribute.String("go_version", runtime.Version()),
			),
		)
	}
	uptimeGauge, err := meter.Float64ObservableGauge(
		"storagectl_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
	)
	if err != nil {
		log.Error("Failed to create uptime gauge", "error", err)
		return sys
	}
	startTime := time.Now()
	sys.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveFloat64(uptimeGauge, time.Since(startTime).Seconds())
		return nil
	}, uptimeGauge)
	if err != nil {
		log.Error("Failed to register uptime callback", "error", err)
	}
	return sys
}

func (s *systemMetrics) unregister(ctx context.Context) {
	if s.registration == nil {
		return
	}
	if err := s.registration.Unregister(); err != nil {
		logger.FromContext(ctx).Error("Failed to unregister uptime callback", "error", err)
	}
	s.registration = nil
}
