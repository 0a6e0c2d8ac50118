package application

import (
	"context"
	"time"
)

// CaptureFormat describes how the microphone is opened. The defaults are
// tuned for speech recognition.
type CaptureFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultCaptureFormat() CaptureFormat {
	return CaptureFormat{
		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
	}
}

// Permissions asks the host for microphone access.
type Permissions interface {
	RequestMicrophone(ctx context.Context) (bool, error)
}

// AudioMode is the process-wide audio configuration toggled while recording.
// Acquire configures it for capture; the returned release restores the
// previous configuration and must be safe to call more than once.
type AudioMode interface {
	Acquire(ctx context.Context) (release func() error, err error)
}

type CaptureDevice interface {
	Open(ctx context.Context, format CaptureFormat) (CaptureHandle, error)
}

// CaptureHandle is an open capture stream. Stop flushes and releases it;
// Locator is valid only after a successful Stop. Discard stops if needed and
// removes anything written.
type CaptureHandle interface {
	Stop(ctx context.Context) error
	Locator() (string, error)
	Discard() error
}

// ArtifactDisposer removes a consumed artifact.
type ArtifactDisposer interface {
	Dispose(locator string) error
}

type clock func() time.Time
