package application_test

import (
	"testing"

	"voicebridge/internal/application"
	"voicebridge/internal/domain"
)

func TestSpeechDispatcher_UnmappedLanguageUsesEnglish(t *testing.T) {
	synth := &fakeSynth{name: "platform", available: true}
	d := application.NewSpeechDispatcher([]application.Synthesizer{synth}, domain.DefaultVoiceProfile(), application.DefaultSpeechSettings(), discardLogger())

	d.Speak("hello there", "xx")
	d.Wait()

	spoken := synth.utterances()
	if len(spoken) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(spoken))
	}
	if spoken[0].u.Locale != "en-US" {
		t.Errorf("locale: got %s, want en-US", spoken[0].u.Locale)
	}
	if spoken[0].u.Voice != "en-US-AriaNeural" {
		t.Errorf("voice: got %s", spoken[0].u.Voice)
	}
}

func TestSpeechDispatcher_FixedParameters(t *testing.T) {
	synth := &fakeSynth{name: "platform", available: true}
	settings := application.SpeechSettings{Rate: 0.9, Pitch: 1.1}
	d := application.NewSpeechDispatcher([]application.Synthesizer{synth}, nil, settings, discardLogger())

	d.Speak("hola", "es")
	d.Speak("a much longer sentence that should not change the rate", "es")
	d.Wait()

	for _, s := range synth.utterances() {
		if s.u.Rate != 0.9 || s.u.Pitch != 1.1 {
			t.Errorf("rate/pitch must come from configuration, got %v/%v", s.u.Rate, s.u.Pitch)
		}
		if s.u.Locale != "es-ES" {
			t.Errorf("locale: got %s, want es-ES", s.u.Locale)
		}
	}
}

func TestSpeechDispatcher_BackendSelection(t *testing.T) {
	missing := &fakeSynth{name: "platform", available: false}
	cloud := &fakeSynth{name: "cloud", available: true}
	d := application.NewSpeechDispatcher([]application.Synthesizer{missing, cloud}, nil, application.DefaultSpeechSettings(), discardLogger())

	d.Speak("bonjour", "fr")
	d.Wait()

	if len(missing.utterances()) != 0 {
		t.Error("unavailable backend must not be used")
	}
	if len(cloud.utterances()) != 1 {
		t.Error("expected the next available backend to speak")
	}
}

func TestSpeechDispatcher_NoBackendIsSilent(t *testing.T) {
	missing := &fakeSynth{name: "platform", available: false}
	d := application.NewSpeechDispatcher([]application.Synthesizer{missing}, nil, application.DefaultSpeechSettings(), discardLogger())

	d.Speak("hello", "en")
	d.Speak("hello", "en")
	d.Wait()

	if len(missing.utterances()) != 0 {
		t.Error("no synthesis expected")
	}
}

func TestSpeechDispatcher_BackendErrorIsSwallowed(t *testing.T) {
	broken := &fakeSynth{name: "platform", available: true, err: errBoom}
	d := application.NewSpeechDispatcher([]application.Synthesizer{broken}, nil, application.DefaultSpeechSettings(), discardLogger())

	d.Speak("hello", "en")
	d.Wait()

	if len(broken.utterances()) != 1 {
		t.Error("backend should have been attempted")
	}
}

func TestSpeechDispatcher_EmptyTextSkipped(t *testing.T) {
	synth := &fakeSynth{name: "platform", available: true}
	d := application.NewSpeechDispatcher([]application.Synthesizer{synth}, nil, application.DefaultSpeechSettings(), discardLogger())

	d.Speak("   ", "en")
	d.Wait()

	if len(synth.utterances()) != 0 {
		t.Error("empty text must not be spoken")
	}
}
