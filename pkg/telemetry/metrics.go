package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WithAttrs returns a metric.MeasurementOption from attribute key-value pairs.
func WithAttrs(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(attrs...)
}

// Meters holds pre-created OTel metric instruments for probe and MCP
// server instrumentation.
type Meters struct {
	AttemptsTotal   metric.Int64Counter
	AttemptDuration metric.Float64Histogram
	WaitsTotal      metric.Int64Counter
	WaitDuration    metric.Float64Histogram

	// GenAI semantic convention metrics for MCP tool calls
	RequestDuration metric.Float64Histogram
	RequestCount    metric.Int64Counter
	ErrorsTotal     metric.Int64Counter
}

// NewMeters creates all OTel metric instruments for probe instrumentation.
func NewMeters() (*Meters, error) {
	meter := otel.Meter(serviceName)

	attemptsTotal, err := meter.Int64Counter(
		"netwait.attempts.total",
		metric.WithDescription("Number of connection attempts, by target kind and outcome"),
	)
	if err != nil {
		return nil, err
	}

	attemptDuration, err := meter.Float64Histogram(
		"netwait.attempt.duration",
		metric.WithDescription("Duration of a single connection attempt in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	waitsTotal, err := meter.Int64Counter(
		"netwait.waits.total",
		metric.WithDescription("Number of completed wait operations, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	waitDuration, err := meter.Float64Histogram(
		"netwait.wait.duration",
		metric.WithDescription("End-to-end duration of a wait operation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"gen_ai.server.request.duration",
		metric.WithDescription("Duration of MCP tool call execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestCount, err := meter.Int64Counter(
		"gen_ai.server.request.count",
		metric.WithDescription("Number of MCP tool call requests"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"mcp.errors.total",
		metric.WithDescription("Total tool execution errors"),
	)
	if err != nil {
		return nil, err
	}

	return &Meters{
		AttemptsTotal:   attemptsTotal,
		AttemptDuration: attemptDuration,
		WaitsTotal:      waitsTotal,
		WaitDuration:    waitDuration,
		RequestDuration: requestDuration,
		RequestCount:    requestCount,
		ErrorsTotal:     errorsTotal,
	}, nil
}
