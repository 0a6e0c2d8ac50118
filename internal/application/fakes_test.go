package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"voicebridge/internal/application"
	"voicebridge/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePermissions struct {
	granted bool
	err     error
	calls   int
}

func (f *fakePermissions) RequestMicrophone(_ context.Context) (bool, error) {
	f.calls++
	return f.granted, f.err
}

type fakeAudioMode struct {
	err      error
	acquired int
	released int
}

func (f *fakeAudioMode) Acquire(_ context.Context) (func() error, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.acquired++
	var once sync.Once
	return func() error {
		once.Do(func() { f.released++ })
		return nil
	}, nil
}

func (f *fakeAudioMode) held() bool {
	return f.acquired > f.released
}

type fakeHandle struct {
	locator    string
	stopErr    error
	locatorErr error
	stopped    bool
	discarded  bool
}

func (h *fakeHandle) Stop(_ context.Context) error {
	h.stopped = true
	return h.stopErr
}

func (h *fakeHandle) Locator() (string, error) {
	if h.locatorErr != nil {
		return "", h.locatorErr
	}
	return h.locator, nil
}

func (h *fakeHandle) Discard() error {
	h.discarded = true
	return nil
}

type fakeDevice struct {
	openErr error
	handle  *fakeHandle
	opened  []application.CaptureFormat
}

func (d *fakeDevice) Open(_ context.Context, format application.CaptureFormat) (application.CaptureHandle, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opened = append(d.opened, format)
	if d.handle == nil {
		d.handle = &fakeHandle{locator: "file:///tmp/recording.wav"}
	}
	return d.handle, nil
}

type fakeTranscriber struct {
	text  string
	err   error
	calls []string
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(_ context.Context, locator string) (string, error) {
	f.calls = append(f.calls, locator)
	return f.text, f.err
}

type fakeTranslator struct {
	requests []domain.TranslationRequest
	err      error
	prefix   string
}

func (f *fakeTranslator) Translate(_ context.Context, req domain.TranslationRequest) (domain.TranslationResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return domain.TranslationResponse{}, f.err
	}
	return domain.TranslationResponse{TranslatedText: f.prefix + req.SourceText, DetectedLanguage: "en"}, nil
}

type spokenUtterance struct {
	backend string
	u       application.Utterance
}

type fakeSynth struct {
	name      string
	available bool
	err       error

	mu     sync.Mutex
	spoken []spokenUtterance
}

func (f *fakeSynth) Name() string    { return f.name }
func (f *fakeSynth) Available() bool { return f.available }

func (f *fakeSynth) Synthesize(_ context.Context, u application.Utterance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, spokenUtterance{backend: f.name, u: u})
	return f.err
}

func (f *fakeSynth) utterances() []spokenUtterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]spokenUtterance(nil), f.spoken...)
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

var errBoom = errors.New("boom")
