package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voicebridge/internal/domain"
)

type Mode string

const (
	ModeTranslate Mode = "translate"
	ModeChat      Mode = "chat"
)

type TurnRequest struct {
	Mode           Mode
	TargetLanguage string
	SourceLanguage string
	Models         domain.FallbackChain
	MaxDuration    time.Duration
	// Until ends the capture early when closed or signalled.
	Until <-chan struct{}
	// Silent skips speech synthesis of the result.
	Silent bool
}

type TurnResult struct {
	Transcript  domain.TranscriptionResult
	Translation *domain.TranslationResponse
	Reply       *domain.ChatReply
	Spoken      string
	Language    string
}

// Pipeline runs one spoken turn: record, transcribe, translate or chat, speak.
type Pipeline struct {
	session    *RecordingSession
	gateway    *TranscriptionGateway
	translator Translator
	chain      *FallbackChain
	speech     *SpeechDispatcher
	notifier   Notifier
	logger     *slog.Logger
}

func NewPipeline(
	session *RecordingSession,
	gateway *TranscriptionGateway,
	translator Translator,
	chain *FallbackChain,
	speech *SpeechDispatcher,
	notifier Notifier,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		session:    session,
		gateway:    gateway,
		translator: translator,
		chain:      chain,
		speech:     speech,
		notifier:   notifier,
		logger:     logger,
	}
}

func (p *Pipeline) RunTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	result, err := p.runTurn(ctx, req)
	if err != nil {
		if notifyErr := p.notifier.Notify(ctx, UserMessage(err)); notifyErr != nil {
			p.logger.Error("notifying failure", "error", notifyErr)
		}
		return result, err
	}
	return result, nil
}

func (p *Pipeline) runTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	var result TurnResult

	if req.Mode != ModeTranslate && req.Mode != ModeChat {
		return result, domain.NewError(domain.KindInvalidRequest, "turn", fmt.Sprintf("unknown mode %q", req.Mode))
	}

	defer func() {
		if err := p.session.Cleanup(context.Background()); err != nil {
			p.logger.Warn("recording cleanup", "error", err)
		}
	}()

	artifact, err := p.record(ctx, req)
	if err != nil {
		return result, err
	}

	transcript, err := p.gateway.Transcribe(ctx, artifact)
	if err != nil {
		return result, fmt.Errorf("transcribing: %w", err)
	}
	result.Transcript = transcript
	p.logger.Info("heard", "text", transcript.Text, "provider", transcript.Provider)

	switch req.Mode {
	case ModeChat:
		reply := p.chain.Reply(ctx, transcript.Text, req.Models)
		result.Reply = &reply
		result.Spoken = reply.Text
		result.Language = req.TargetLanguage

	case ModeTranslate:
		translation, err := p.translator.Translate(ctx, domain.TranslationRequest{
			SourceText:     transcript.Text,
			TargetLanguage: req.TargetLanguage,
			SourceLanguage: req.SourceLanguage,
		})
		if err != nil {
			return result, fmt.Errorf("translating: %w", err)
		}
		result.Translation = &translation
		result.Spoken = translation.TranslatedText
		result.Language = req.TargetLanguage
	}

	if result.Language == "" {
		result.Language = domain.DefaultLanguage
	}
	if !req.Silent {
		p.speech.Speak(result.Spoken, result.Language)
	}
	return result, nil
}

func (p *Pipeline) record(ctx context.Context, req TurnRequest) (domain.RecordingArtifact, error) {
	if err := p.session.RequestStart(ctx); err != nil {
		return domain.RecordingArtifact{}, fmt.Errorf("starting recording: %w", err)
	}

	maxDuration := req.MaxDuration
	if maxDuration <= 0 {
		maxDuration = 10 * time.Second
	}
	timer := time.NewTimer(maxDuration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return domain.RecordingArtifact{}, ctx.Err()
	case <-timer.C:
	case <-req.Until:
	}

	artifact, err := p.session.RequestStop(ctx)
	if err != nil {
		return domain.RecordingArtifact{}, fmt.Errorf("stopping recording: %w", err)
	}
	return artifact, nil
}

// WaitForSpeech blocks until any dispatched utterance has finished.
func (p *Pipeline) WaitForSpeech() {
	p.speech.Wait()
}
