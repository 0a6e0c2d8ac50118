package domain

import "time"

// RecordingArtifact is the captured audio produced when a recording stops.
type RecordingArtifact struct {
	Locator        string
	DurationMillis int64
	Succeeded      bool
	FailureReason  string
}

func (a RecordingArtifact) Duration() time.Duration {
	return time.Duration(a.DurationMillis) * time.Millisecond
}

type TranscriptionResult struct {
	Text     string
	Provider string
}
