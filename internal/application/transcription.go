package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"voicebridge/internal/domain"
)

// Transcriber is a speech-to-text backend. It reads the audio behind locator
// and returns the recognized text.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, locator string) (string, error)
}

// NoopTranscriber is used when no transcription backend is configured.
type NoopTranscriber struct{}

func (n *NoopTranscriber) Name() string { return "none" }

func (n *NoopTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return "", errors.New("transcription not configured: set transcription.backend")
}

type TranscriptionGateway struct {
	backend  Transcriber
	timeout  time.Duration
	disposer ArtifactDisposer
	logger   *slog.Logger
	metrics  *pipelineMetrics
}

// NewTranscriptionGateway wraps backend with a per-call timeout. disposer may
// be nil, in which case artifacts are left in place after transcription.
func NewTranscriptionGateway(backend Transcriber, timeout time.Duration, disposer ArtifactDisposer, logger *slog.Logger) *TranscriptionGateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TranscriptionGateway{
		backend:  backend,
		timeout:  timeout,
		disposer: disposer,
		logger:   logger,
		metrics:  newPipelineMetrics(logger),
	}
}

func (g *TranscriptionGateway) Transcribe(ctx context.Context, artifact domain.RecordingArtifact) (domain.TranscriptionResult, error) {
	provider := g.backend.Name()

	if !artifact.Succeeded {
		reason := artifact.FailureReason
		if reason == "" {
			reason = "recording did not succeed"
		}
		add(ctx, g.metrics.transcriptions, attribute.String("backend", provider), attribute.String("outcome", "bad_artifact"))
		return domain.TranscriptionResult{}, domain.NewError(domain.KindTranscriptionFailed, "transcribe", reason)
	}
	defer g.dispose(artifact.Locator)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	text, err := g.backend.Transcribe(callCtx, artifact.Locator)
	if err != nil {
		msg := "backend unreachable"
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			msg = "backend timed out"
		}
		add(ctx, g.metrics.transcriptions, attribute.String("backend", provider), attribute.String("outcome", "error"))
		return domain.TranscriptionResult{}, domain.WrapError(domain.KindTranscriptionFailed, "transcribe", msg, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		add(ctx, g.metrics.transcriptions, attribute.String("backend", provider), attribute.String("outcome", "empty"))
		return domain.TranscriptionResult{}, domain.NewError(domain.KindTranscriptionFailed, "transcribe", "no usable text returned")
	}

	g.logger.Info("transcribed",
		"provider", provider,
		"chars", len(text),
		"elapsed", time.Since(started),
	)
	add(ctx, g.metrics.transcriptions, attribute.String("backend", provider), attribute.String("outcome", "ok"))
	return domain.TranscriptionResult{Text: text, Provider: provider}, nil
}

func (g *TranscriptionGateway) dispose(locator string) {
	if g.disposer == nil || locator == "" {
		return
	}
	if err := g.disposer.Dispose(locator); err != nil {
		g.logger.Warn("disposing artifact", "locator", locator, "error", err)
	}
}
