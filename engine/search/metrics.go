package search

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce        sync.Once
	metricsMu          sync.Mutex
	metricsInitErr     error
	queryLatencyHist   metric.Float64Histogram
	searchCounter      metric.Int64Counter
	degradedCounter    metric.Int64Counter
	gateRejectCounter  metric.Int64Counter
	indexedImagesCount metric.Int64Counter
)

func RecordQueryLatency(ctx context.Context, category string, d time.Duration) {
	if err := ensureMetrics(); err != nil || queryLatencyHist == nil {
		return
	}
	queryLatencyHist.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("category", category)))
}

func RecordSearch(ctx context.Context, category string, returned int) {
	if err := ensureMetrics(); err != nil || searchCounter == nil {
		return
	}
	searchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.Bool("empty", returned == 0),
	))
}

func RecordDegradedSearch(ctx context.Context, category string) {
	if err := ensureMetrics(); err != nil || degradedCounter == nil {
		return
	}
	degradedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

func RecordGateReject(ctx context.Context, category string) {
	if err := ensureMetrics(); err != nil || gateRejectCounter == nil {
		return
	}
	gateRejectCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

func RecordIndexedImages(ctx context.Context, category string, count int) {
	if count <= 0 {
		return
	}
	if err := ensureMetrics(); err != nil || indexedImagesCount == nil {
		return
	}
	indexedImagesCount.Add(ctx, int64(count), metric.WithAttributes(attribute.String("category", category)))
}

func ResetMetricsForTesting() {
	metricsMu.Lock()
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	queryLatencyHist = nil
	searchCounter = nil
	degradedCounter = nil
	gateRejectCounter = nil
	indexedImagesCount = nil
	metricsMu.Unlock()
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("snapseek.search")
		metricsInitErr = initMetrics(meter)
	})
	return metricsInitErr
}

func initMetrics(meter metric.Meter) error {
	var err error
	queryLatencyHist, err = meter.Float64Histogram(
		"snapseek_search_query_latency_seconds",
		metric.WithDescription("Latency of similarity search requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5),
	)
	if err != nil {
		return err
	}
	searchCounter, err = meter.Int64Counter(
		"snapseek_search_requests_total",
		metric.WithDescription("Number of similarity searches by category and emptiness"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	degradedCounter, err = meter.Int64Counter(
		"snapseek_search_degraded_total",
		metric.WithDescription("Searches that had raw candidates but filtered down to nothing"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	gateRejectCounter, err = meter.Int64Counter(
		"snapseek_search_gate_reject_total",
		metric.WithDescription("Query images rejected by the category gate"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	indexedImagesCount, err = meter.Int64Counter(
		"snapseek_index_images_total",
		metric.WithDescription("Catalog images successfully indexed"),
		metric.WithUnit("1"),
	)
	return err
}
