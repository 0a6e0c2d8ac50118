package application

import (
	"context"

	"voicebridge/internal/domain"
)

// Translator relays one translation request to a provider. Implementations
// make exactly one upstream attempt; retries belong to the caller.
type Translator interface {
	Translate(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResponse, error)
}
