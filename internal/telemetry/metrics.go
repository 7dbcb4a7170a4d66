package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/wolfeidau/bundler"
)

// Metrics holds the OpenTelemetry instruments recorded by build runs
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram

	// Artifact metrics
	OutputBytes      metric.Int64Counter
	TransformedFiles metric.Int64Counter
	ArtifactsWritten metric.Int64Counter

	// Dev server metrics
	PageRendersTotal metric.Int64Counter
	PageRenderErrors metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments bind to the global meter provider at first use, so call InitTelemetry first
// when exporting.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// Tracer returns the tracer used for build spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	m := &Metrics{}

	// Build metrics
	m.BuildsTotal, _ = meter.Int64Counter(
		"bundler.builds.total",
		metric.WithDescription("Total number of bundle builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"bundler.builds.errors.total",
		metric.WithDescription("Total number of bundle builds that reported errors"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"bundler.builds.duration",
		metric.WithDescription("Duration of bundle builds"),
		metric.WithUnit("ms"),
	)

	// Artifact metrics
	m.OutputBytes, _ = meter.Int64Counter(
		"bundler.output.bytes",
		metric.WithDescription("Bytes written to bundle artifacts"),
		metric.WithUnit("By"),
	)

	m.TransformedFiles, _ = meter.Int64Counter(
		"bundler.transform.files.total",
		metric.WithDescription("Source files passed through a transform rule"),
		metric.WithUnit("{file}"),
	)

	m.ArtifactsWritten, _ = meter.Int64Counter(
		"bundler.artifacts.written.total",
		metric.WithDescription("Artifacts written, including precompressed copies"),
		metric.WithUnit("{file}"),
	)

	// Dev server metrics
	m.PageRendersTotal, _ = meter.Int64Counter(
		"bundler.pages.render.total",
		metric.WithDescription("Dev server page renders"),
		metric.WithUnit("{render}"),
	)

	m.PageRenderErrors, _ = meter.Int64Counter(
		"bundler.pages.render.errors.total",
		metric.WithDescription("Dev server page renders that failed"),
		metric.WithUnit("{error}"),
	)

	return m
}
