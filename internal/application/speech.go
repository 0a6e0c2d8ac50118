package application

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"voicebridge/internal/domain"
)

// Utterance is what a synthesis backend is asked to render.
type Utterance struct {
	Text   string
	Locale string
	Voice  string
	Rate   float64
	Pitch  float64
}

// Synthesizer renders text aloud. Available reports whether the backend can
// be used on this host.
type Synthesizer interface {
	Name() string
	Available() bool
	Synthesize(ctx context.Context, u Utterance) error
}

type SpeechSettings struct {
	Rate    float64
	Pitch   float64
	Timeout time.Duration
}

func DefaultSpeechSettings() SpeechSettings {
	return SpeechSettings{Rate: 1.0, Pitch: 1.0, Timeout: 60 * time.Second}
}

// SpeechDispatcher vocalizes text without blocking the caller. Backends are
// listed in order of preference; when none is available the utterance is
// dropped with a log line. In-flight utterances cannot be cancelled.
type SpeechDispatcher struct {
	backends []Synthesizer
	voices   domain.VoiceProfile
	settings SpeechSettings
	logger   *slog.Logger
	metrics  *pipelineMetrics
	wg       sync.WaitGroup
}

func NewSpeechDispatcher(backends []Synthesizer, voices domain.VoiceProfile, settings SpeechSettings, logger *slog.Logger) *SpeechDispatcher {
	if len(voices) == 0 {
		voices = domain.DefaultVoiceProfile()
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultSpeechSettings().Timeout
	}
	return &SpeechDispatcher{
		backends: backends,
		voices:   voices,
		settings: settings,
		logger:   logger,
		metrics:  newPipelineMetrics(logger),
	}
}

// Utterance builds the utterance Speak would dispatch for languageCode.
func (d *SpeechDispatcher) Utterance(text, languageCode string) Utterance {
	voice, mapped := d.voices.Resolve(languageCode)
	if !mapped {
		d.logger.Debug("no voice for language, using default", "language", languageCode)
	}
	return Utterance{
		Text:   text,
		Locale: voice.RecognitionLocale,
		Voice:  voice.SynthesisVoice,
		Rate:   d.settings.Rate,
		Pitch:  d.settings.Pitch,
	}
}

// Speak returns immediately; synthesis runs in the background.
func (d *SpeechDispatcher) Speak(text, languageCode string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	u := d.Utterance(text, languageCode)

	backend := d.selectBackend()
	if backend == nil {
		d.logger.Info("speech synthesis unavailable, skipping", "language", languageCode, "chars", len(text))
		add(context.Background(), d.metrics.utterances, attribute.String("backend", "none"), attribute.String("outcome", "skipped"))
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.settings.Timeout)
		defer cancel()

		if err := backend.Synthesize(ctx, u); err != nil {
			d.logger.Warn("speech synthesis failed", "backend", backend.Name(), "locale", u.Locale, "error", err)
			add(ctx, d.metrics.utterances, attribute.String("backend", backend.Name()), attribute.String("outcome", "error"))
			return
		}
		d.logger.Debug("spoke", "backend", backend.Name(), "locale", u.Locale, "voice", u.Voice)
		add(ctx, d.metrics.utterances, attribute.String("backend", backend.Name()), attribute.String("outcome", "ok"))
	}()
}

// Wait blocks until dispatched utterances finish.
func (d *SpeechDispatcher) Wait() {
	d.wg.Wait()
}

func (d *SpeechDispatcher) selectBackend() Synthesizer {
	for _, b := range d.backends {
		if b != nil && b.Available() {
			return b
		}
	}
	return nil
}
