package speech

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voicebridge/internal/application"
)

func TestEdgeSynth_WritesAudio(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "speech")
	synth := NewEdgeSynth(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var gotVoice, gotText string
	synth.render = func(voice, text string) ([]byte, error) {
		gotVoice, gotText = voice, text
		return []byte("ID3fake"), nil
	}

	err := synth.Synthesize(context.Background(), application.Utterance{Text: "Bonjour", Voice: "fr-FR-DeniseNeural"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotVoice != "fr-FR-DeniseNeural" || gotText != "Bonjour" {
		t.Errorf("render called with %q, %q", gotVoice, gotText)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".mp3" {
		t.Fatalf("expected one mp3, got %v", entries)
	}
}

func TestEdgeSynth_Failures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("render error", func(t *testing.T) {
		synth := NewEdgeSynth(t.TempDir(), logger)
		synth.render = func(string, string) ([]byte, error) { return nil, errors.New("ws closed") }
		if err := synth.Synthesize(context.Background(), application.Utterance{Text: "x"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("no audio", func(t *testing.T) {
		synth := NewEdgeSynth(t.TempDir(), logger)
		synth.render = func(string, string) ([]byte, error) { return nil, nil }
		if err := synth.Synthesize(context.Background(), application.Utterance{Text: "x"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("deadline", func(t *testing.T) {
		synth := NewEdgeSynth(t.TempDir(), logger)
		synth.render = func(string, string) ([]byte, error) {
			time.Sleep(200 * time.Millisecond)
			return []byte("late"), nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := synth.Synthesize(ctx, application.Utterance{Text: "x"}); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("unavailable without output dir", func(t *testing.T) {
		if NewEdgeSynth("", logger).Available() {
			t.Error("edge synth needs an output dir")
		}
	})
}
