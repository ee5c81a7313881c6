package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewPrometheusMeterProvider builds a pull-based MeterProvider and the
// http.Handler that serves its /metrics scrape endpoint. Each call creates
// an independent Prometheus registry, so instruments created against the
// returned MeterProvider never collide with another call's.
//
// This is the long-lived "serve" counterpart to Init's push-based
// (OTLP) MeterProvider: Init's instruments are exported on an interval to
// an OTel collector, while this one is scraped directly by Prometheus.
func NewPrometheusMeterProvider() (metric.MeterProvider, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return mp, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
