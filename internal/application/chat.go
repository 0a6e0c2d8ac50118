package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"voicebridge/internal/domain"
)

const (
	DefaultAttemptTimeout = 15 * time.Second
	DefaultApology        = "Sorry, I can't answer right now. Please try again in a moment."
)

// ReplyGenerator issues one call to a single model and returns its text.
type ReplyGenerator interface {
	Generate(ctx context.Context, model, message string) (string, error)
}

// FallbackChain asks each model of a chain in order until one answers.
type FallbackChain struct {
	generator ReplyGenerator
	timeout   time.Duration
	apology   string
	logger    *slog.Logger
	metrics   *pipelineMetrics
}

func NewFallbackChain(generator ReplyGenerator, attemptTimeout time.Duration, apology string, logger *slog.Logger) *FallbackChain {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	if strings.TrimSpace(apology) == "" {
		apology = DefaultApology
	}
	return &FallbackChain{
		generator: generator,
		timeout:   attemptTimeout,
		apology:   apology,
		logger:    logger,
		metrics:   newPipelineMetrics(logger),
	}
}

type attemptResult struct {
	model   string
	text    string
	err     error
	elapsed time.Duration
}

// Reply never fails: when every attempt fails it returns the apology with
// Exhausted set and no source model.
func (c *FallbackChain) Reply(ctx context.Context, message string, chain domain.FallbackChain) domain.ChatReply {
	results := make([]attemptResult, 0, len(chain))

	for _, attempt := range chain {
		if ctx.Err() != nil {
			break
		}

		result := c.try(ctx, attempt.ModelIdentifier, message)
		results = append(results, result)

		if result.err == nil {
			add(ctx, c.metrics.chainAttempts, attribute.String("model", result.model), attribute.String("outcome", "ok"))
			add(ctx, c.metrics.chainReplies, attribute.Bool("exhausted", false))
			c.logger.Info("chat reply",
				"model", result.model,
				"attempt", len(results),
				"elapsed", result.elapsed,
			)
			return domain.ChatReply{Text: result.text, SourceModel: result.model}
		}

		add(ctx, c.metrics.chainAttempts, attribute.String("model", result.model), attribute.String("outcome", "error"))
		c.logger.Warn("chat attempt failed",
			"model", result.model,
			"attempt", len(results),
			"elapsed", result.elapsed,
			"error", result.err,
		)
	}

	add(ctx, c.metrics.chainReplies, attribute.Bool("exhausted", true))
	c.logger.Warn("chat fallback chain exhausted",
		"kind", domain.KindChainExhausted,
		"attempts", len(results),
		"chain_length", len(chain),
	)
	return domain.ChatReply{Text: c.apology, Exhausted: true}
}

func (c *FallbackChain) try(ctx context.Context, model, message string) attemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	text, err := c.generator.Generate(attemptCtx, model, message)
	result := attemptResult{model: model, elapsed: time.Since(started)}

	switch {
	case err != nil:
		result.err = err
	case strings.TrimSpace(text) == "":
		result.err = fmt.Errorf("model %s returned empty text", model)
	default:
		result.text = strings.TrimSpace(text)
	}
	return result
}
