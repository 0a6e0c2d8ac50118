package telemetry

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Setup installs a global meter provider backed by the Prometheus exporter.
// The returned handler serves the scrape endpoint; it is nil when the
// exporter could not be created, in which case metrics are still recorded
// but not exposed.
func Setup(serviceName, environment string, logger *slog.Logger) (func(context.Context) error, http.Handler, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			attribute.String("deployment.environment", environment),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	var handler http.Handler
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	exporter, err := prometheus.New()
	if err != nil {
		logger.Warn("failed to initialize prometheus exporter", slog.String("error", err.Error()))
	} else {
		opts = append(opts, sdkmetric.WithReader(exporter))
		handler = promhttp.Handler()
	}

	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)

	logger.Info("telemetry initialized", slog.String("exporter", "prometheus"), slog.Bool("exposed", handler != nil))
	return provider.Shutdown, handler, nil
}
