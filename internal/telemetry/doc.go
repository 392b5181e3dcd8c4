// Package telemetry sets up OpenTelemetry tracing and metrics for coon.
//
// New installs OTLP exporters (gRPC or HTTP/protobuf) as the global
// providers when enabled; otherwise instrumentation falls through to the
// no-op globals. Failures degrade the instance instead of stopping the
// process, and Health reports why.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	svc, err := compression.NewService(compression.DefaultConfig(),
//	    compression.WithTracerProvider(tel.TracerProvider()),
//	    compression.WithMeterProvider(tel.MeterProvider()))
//
// Tests use NewTestTelemetry, which records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	// ... exercise code wired to tt.TracerProvider() / tt.MeterProvider()
//	tt.AssertSpanExists(t, "compression.compress")
//	n := tt.CounterValue(t, "coon.compression.operations_total")
package telemetry
