//go:build !portaudio
// +build !portaudio

package audio_test

import (
	"context"
	"testing"

	"voicebridge/internal/application"
	"voicebridge/internal/infra/audio"
)

func TestMicrophoneStub_ReportsUnavailable(t *testing.T) {
	mic := audio.NewMicrophone(t.TempDir(), discardLogger())

	if _, err := mic.RequestMicrophone(context.Background()); err == nil {
		t.Error("expected error without portaudio")
	}
	if _, err := mic.Open(context.Background(), application.DefaultCaptureFormat()); err == nil {
		t.Error("expected error without portaudio")
	}
}
