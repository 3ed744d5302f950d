package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultOTelConfig(t *testing.T) {
	cfg := DefaultOTelConfig()

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.True(t, cfg.EnableMetrics)
	assert.True(t, cfg.EnableTracing)
	assert.Equal(t, 1.0, cfg.SampleRatio)
}

func TestInitializeOTelDisabled(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "test",
		ServiceVersion: "v0",
		Environment:    "test",
		EnableTracing:  false,
		EnableMetrics:  false,
	}, testLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTelPrometheus(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "test",
		ServiceVersion: "v0",
		Environment:    "test",
		EnableTracing:  false,
		EnableMetrics:  true,
		MetricExporter: "prometheus",
	}, testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	metrics, err := CreateRunMetrics(providers.Meter)
	require.NoError(t, err)
	require.NotNil(t, metrics.RunsTotal)
	require.NotNil(t, metrics.ConnectedClients)

	ctx := context.Background()
	RecordRun(ctx, metrics, "csv", 25*time.Millisecond, 120, 3, nil)
	RecordRun(ctx, metrics, "xlsx", 40*time.Millisecond, 80, 0, errors.New("boom"))
}

func TestInitializeOTelUnsupportedExporters(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{
		EnableTracing: true,
		TraceExporter: "jaeger",
	}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")

	_, err = InitializeOTel(&OTelConfig{
		EnableMetrics:  true,
		MetricExporter: "statsd",
	}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported metric exporter")
}

func TestRecordRunNilMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordRun(context.Background(), nil, "csv", time.Second, 10, 0, nil)
	})
}

func TestTraceIDFromContextEmpty(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestGenerateInstanceID(t *testing.T) {
	assert.NotEmpty(t, generateInstanceID())
}

func TestSystemMetrics(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	sys, err := NewSystemMetrics(mp.Meter("test"))
	require.NoError(t, err)

	assert.NotPanics(t, func() { sys.record(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	sys.Start(ctx, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	cancel()
}
