package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"voicebridge/internal/application"
)

// EdgeSynth renders utterances with the Edge neural voices and writes each
// result as an mp3 under outputDir.
type EdgeSynth struct {
	outputDir string
	logger    *slog.Logger
	render    func(voice, text string) ([]byte, error)
}

func NewEdgeSynth(outputDir string, logger *slog.Logger) *EdgeSynth {
	return &EdgeSynth{
		outputDir: outputDir,
		logger:    logger,
		render:    renderEdge,
	}
}

func (e *EdgeSynth) Name() string {
	return "edge"
}

func (e *EdgeSynth) Available() bool {
	return e.outputDir != ""
}

func (e *EdgeSynth) Synthesize(ctx context.Context, u application.Utterance) error {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	type result struct {
		audio []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		audio, err := e.render(u.Voice, u.Text)
		done <- result{audio, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return fmt.Errorf("edge synthesis: %w", res.err)
	}
	if len(res.audio) == 0 {
		return fmt.Errorf("edge synthesis returned no audio")
	}

	path := filepath.Join(e.outputDir, uuid.NewString()+".mp3")
	if err := os.WriteFile(path, res.audio, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	e.logger.Info("speech written", "path", path, "voice", u.Voice, "bytes", len(res.audio))
	return nil
}

func renderEdge(voice, text string) ([]byte, error) {
	communicate, err := edge_tts.New(voice)
	if err != nil {
		return nil, fmt.Errorf("creating edge tts session: %w", err)
	}
	defer communicate.Close()

	return communicate.Output(text)
}
