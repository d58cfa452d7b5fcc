package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	operationsMetric        = "storagectl_operations_total"
	operationDurationMetric = "storagectl_operation_duration_seconds"
	cacheClearedMetric      = "storagectl_cache_cleared_bytes_total"
	cacheSizeMetric         = "storagectl_cache_size_bytes"

	labelOperation = "operation"
	labelOutcome   = "outcome"
	labelErrorKind = "error_kind"
	labelMode      = "mode"
	labelDir       = "dir"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

var operationBuckets = []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900}

// StorageMetrics records storage operations and cache activity.
type StorageMetrics struct {
	operations   metric.Int64Counter
	duration     metric.Float64Histogram
	cacheCleared metric.Int64Counter
	cacheSize    metric.Int64Gauge
}

func NewStorageMetrics(meter metric.Meter) (*StorageMetrics, error) {
	operations, err := meter.Int64Counter(
		operationsMetric,
		metric.WithDescription("Storage operations by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create counter %q: %w", operationsMetric, err)
	}
	duration, err := meter.Float64Histogram(
		operationDurationMetric,
		metric.WithDescription("Storage operation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(operationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram %q: %w", operationDurationMetric, err)
	}
	cleared, err := meter.Int64Counter(
		cacheClearedMetric,
		metric.WithDescription("Bytes freed from cache directories"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create counter %q: %w", cacheClearedMetric, err)
	}
	size, err := meter.Int64Gauge(
		cacheSizeMetric,
		metric.WithDescription("Last measured size of each cache directory"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create gauge %q: %w", cacheSizeMetric, err)
	}
	return &StorageMetrics{
		operations:   operations,
		duration:     duration,
		cacheCleared: cleared,
		cacheSize:    size,
	}, nil
}

// RecordOperation counts one finished operation. kind is empty on success.
func (m *StorageMetrics) RecordOperation(ctx context.Context, op string, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if kind != "" {
		outcome = outcomeFailure
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String(labelOperation, op),
		attribute.String(labelOutcome, outcome),
		attribute.String(labelErrorKind, kind),
	))
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String(labelOperation, op),
		attribute.String(labelOutcome, outcome),
	))
}

// RecordCacheCleared adds freed bytes. mode is "all", "age" or "auto".
func (m *StorageMetrics) RecordCacheCleared(ctx context.Context, mode string, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.cacheCleared.Add(ctx, bytes, metric.WithAttributes(attribute.String(labelMode, mode)))
}

// RecordCacheSize sets the size gauge of one cache directory.
func (m *StorageMetrics) RecordCacheSize(ctx context.Context, dir string, bytes int64) {
	if m == nil {
		return
	}
	m.cacheSize.Record(ctx, bytes, metric.WithAttributes(attribute.String(labelDir, dir)))
}
