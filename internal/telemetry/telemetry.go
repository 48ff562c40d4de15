// Package telemetry builds the OpenTelemetry meter provider that ships the
// engine counters to an OTLP collector.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// DefaultInterval is how often the periodic reader exports.
const DefaultInterval = 10 * time.Second

// NewMeterProvider returns a provider exporting over OTLP gRPC to endpoint.
// endpoint may be host:port or a URL; only the host part is dialled, and
// TLS is used for https unless insecure is set. An empty endpoint yields a
// provider with no reader, so instruments are recorded nowhere.
func NewMeterProvider(ctx context.Context, endpoint, serviceName, version string, insecure bool) (*metric.MeterProvider, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return metric.NewMeterProvider(), nil
	}

	target, tlsOff, err := grpcTarget(endpoint)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	if insecure || tlsOff {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exp, metric.WithInterval(DefaultInterval))),
	), nil
}

// grpcTarget reduces endpoint to host:port and reports whether the scheme
// implies plaintext.
func grpcTarget(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme != "https", nil
}
