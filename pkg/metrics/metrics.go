// Package metrics holds the Prometheus and OpenTelemetry plumbing shared by the
// HTTP server and the domain services.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// NewMeterProvider creates an OpenTelemetry meter provider whose instruments
// are exported through reg, so they show up on the regular metrics endpoint.
func NewMeterProvider(reg prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)), nil
}

// HTTP groups the Prometheus collectors recorded by the HTTP middleware.
type HTTP struct {
	// RequestDuration observes request latency labelled by method, route and status code.
	RequestDuration *prometheus.HistogramVec
}

// NewHTTP creates and registers the HTTP collectors on reg.
func NewHTTP(reg prometheus.Registerer) (*HTTP, error) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "userapi",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests.",
		Buckets:   DefaultBuckets,
	}, []string{"method", "route", "code"})
	if err := reg.Register(duration); err != nil {
		return nil, fmt.Errorf("could not register request duration histogram: %w", err)
	}

	return &HTTP{RequestDuration: duration}, nil
}
