// Package telemetry wires structured logging and OpenTelemetry metrics for
// the relay server.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// InitLogger configures the zerolog global logger: console output on
// stderr, plus a rotated JSON file when logFile is non-empty.
func InitLogger(logFile string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	console := zerolog.ConsoleWriter{Out: os.Stderr}
	var w io.Writer = console
	if logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		w = io.MultiWriter(console, rotated)
	}
	log.Logger = log.Output(w)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// InitMetrics sets up an OTel meter provider with a periodic stdout
// exporter. When metricsFile is non-empty the export stream goes to a
// rotated file so it can be tailed without mixing into process output.
// The returned cleanup flushes and shuts the provider down.
func InitMetrics(ctx context.Context, metricsFile string) (metric.Meter, func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("volley-relay"),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create otel resource: %w", err)
	}

	var w io.Writer = os.Stdout
	var closer io.Closer
	if metricsFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   metricsFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		w = rotated
		closer = rotated
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("module", "telemetry").Msg("meter provider shutdown")
		}
		if closer != nil {
			if err := closer.Close(); err != nil {
				log.Error().Err(err).Str("module", "telemetry").Msg("metrics file close")
			}
		}
	}
	return mp.Meter("volley-relay"), cleanup, nil
}

// RelayMetrics bundles the relay's instruments. A nil receiver is a no-op,
// so the broker can run without metrics in tests.
type RelayMetrics struct {
	sessionsActive  metric.Int64UpDownCounter
	messagesRelayed metric.Int64Counter
	messagesDropped metric.Int64Counter
}

func NewRelayMetrics(meter metric.Meter) (*RelayMetrics, error) {
	active, err := meter.Int64UpDownCounter("relay.sessions.active",
		metric.WithDescription("Sessions currently present in the registry"))
	if err != nil {
		return nil, err
	}
	relayed, err := meter.Int64Counter("relay.messages.relayed",
		metric.WithDescription("Signaling messages fanned out to peers"))
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter("relay.messages.dropped",
		metric.WithDescription("Signaling messages dropped (unknown session)"))
	if err != nil {
		return nil, err
	}
	return &RelayMetrics{sessionsActive: active, messagesRelayed: relayed, messagesDropped: dropped}, nil
}

func (m *RelayMetrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, 1)
}

func (m *RelayMetrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, -1)
}

func (m *RelayMetrics) MessageRelayed(ctx context.Context, msgType string) {
	if m == nil {
		return
	}
	m.messagesRelayed.Add(ctx, 1, metric.WithAttributes(attribute.String("type", msgType)))
}

func (m *RelayMetrics) MessageDropped(ctx context.Context, msgType string) {
	if m == nil {
		return
	}
	m.messagesDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("type", msgType)))
}
