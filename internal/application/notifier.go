package application

import (
	"context"
	"errors"

	"voicebridge/internal/domain"
)

// Notifier delivers a message to the user.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

// UserMessage turns a pipeline failure into something the user can act on.
func UserMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Recording was cancelled."
	}

	derr, ok := domain.AsError(err)
	if !ok {
		return "Something went wrong. Please try again."
	}

	switch derr.Kind {
	case domain.KindPermissionDenied:
		return "Microphone access was denied. Allow microphone access and try again."
	case domain.KindDeviceUnavailable:
		return "No microphone is available. Check your audio device and try again."
	case domain.KindSessionBusy:
		return "A recording is already in progress. Stop it before starting a new one."
	case domain.KindNoActiveRecording:
		return "There is no recording to stop. Start a recording first."
	case domain.KindTranscriptionFailed:
		return "We couldn't understand the recording. Please speak clearly and try again."
	case domain.KindInvalidRequest:
		return "There was nothing to translate. Please record again."
	case domain.KindUpstreamFailure:
		return "Translation failed. Please try again in a moment."
	default:
		return "Something went wrong. Please try again."
	}
}
