package application

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "voicebridge/application"

type pipelineMetrics struct {
	recordings     metric.Int64Counter
	transcriptions metric.Int64Counter
	chainAttempts  metric.Int64Counter
	chainReplies   metric.Int64Counter
	utterances     metric.Int64Counter
}

func newPipelineMetrics(logger *slog.Logger) *pipelineMetrics {
	meter := otel.Meter(meterName)
	m := &pipelineMetrics{}

	var err error
	if m.recordings, err = meter.Int64Counter("voicebridge.recordings",
		metric.WithDescription("Recording sessions by outcome")); err != nil {
		logger.Warn("failed to initialize metric", "metric", "recordings", "error", err)
	}
	if m.transcriptions, err = meter.Int64Counter("voicebridge.transcriptions",
		metric.WithDescription("Transcriptions by backend and outcome")); err != nil {
		logger.Warn("failed to initialize metric", "metric", "transcriptions", "error", err)
	}
	if m.chainAttempts, err = meter.Int64Counter("voicebridge.chat.attempts",
		metric.WithDescription("Fallback chain attempts by model and outcome")); err != nil {
		logger.Warn("failed to initialize metric", "metric", "chat.attempts", "error", err)
	}
	if m.chainReplies, err = meter.Int64Counter("voicebridge.chat.replies",
		metric.WithDescription("Fallback chain replies, exhausted or answered")); err != nil {
		logger.Warn("failed to initialize metric", "metric", "chat.replies", "error", err)
	}
	if m.utterances, err = meter.Int64Counter("voicebridge.speech.utterances",
		metric.WithDescription("Synthesis dispatches by backend and outcome")); err != nil {
		logger.Warn("failed to initialize metric", "metric", "speech.utterances", "error", err)
	}
	return m
}

func add(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
