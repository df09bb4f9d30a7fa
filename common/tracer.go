package common

import (
	"go.opentelemetry.io/otel/api/core"
	"go.opentelemetry.io/otel/api/key"
	"go.opentelemetry.io/otel/api/trace"
	"go.opentelemetry.io/otel/exporters/trace/jaeger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"chainpe.com/payment-gateway/config"
	"chainpe.com/payment-gateway/log"
)

func InitGlobalTracer(cfg *config.JaegerConfig) func() {
	if cfg == nil {
		return func() {}
	}
	// Create and install Jaeger export pipeline
	provider, flush, err := jaeger.NewExportPipeline(
		jaeger.WithCollectorEndpoint(cfg.Url),
		jaeger.WithProcess(jaeger.Process{
			ServiceName: cfg.ServiceName,
			Tags: []core.KeyValue{
				key.String("exporter", "jaeger"),
			},
		}),

		// NeverSample disables sampling
		jaeger.WithSDK(&sdktrace.Config{DefaultSampler: sdktrace.NeverSample()}),
	)

	if err != nil {
		log.Warn("Could not connect to jaeger: " + err.Error())
		return func() {}
	}

	traceProvider = provider
	return flush
}

var traceProvider trace.Provider

func CreateTracer(name string) trace.Tracer {
	if traceProvider != nil {
		return traceProvider.Tracer(name)
	}

	return trace.NoopTracer{}
}
