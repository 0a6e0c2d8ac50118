//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"errors"
	"log/slog"

	"voicebridge/internal/application"
)

var errNoPortAudio = errors.New("microphone not available: rebuild with -tags portaudio")

// Microphone stub when portaudio is not available
type Microphone struct {
	logger *slog.Logger
}

func NewMicrophone(_ string, logger *slog.Logger) *Microphone {
	return &Microphone{logger: logger}
}

func NewMicrophoneMode() *ModeGuard {
	return NewNoopModeGuard()
}

func (m *Microphone) Name() string {
	return "microphone"
}

func (m *Microphone) RequestMicrophone(_ context.Context) (bool, error) {
	return false, errNoPortAudio
}

func (m *Microphone) Open(_ context.Context, _ application.CaptureFormat) (application.CaptureHandle, error) {
	return nil, errNoPortAudio
}
