package simulated

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Transcriber returns canned text for a recording. When a sidecar file
// named "<recording>.txt" exists next to the recording, its contents win over
// the configured text.
type Transcriber struct {
	text string
}

func NewTranscriber(text string) *Transcriber {
	return &Transcriber{text: text}
}

func (t *Transcriber) Name() string {
	return "simulated"
}

func (t *Transcriber) Transcribe(ctx context.Context, locator string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := strings.TrimPrefix(locator, "file://")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("opening recording: %w", err)
	}

	sidecar, err := os.ReadFile(path + ".txt")
	switch {
	case err == nil:
		return strings.TrimSpace(string(sidecar)), nil
	case os.IsNotExist(err):
		return t.text, nil
	default:
		return "", fmt.Errorf("reading transcript: %w", err)
	}
}
