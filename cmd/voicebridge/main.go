package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"voicebridge/config"
	"voicebridge/internal/application"
	"voicebridge/internal/domain"
	"voicebridge/internal/infra/anthropic"
	"voicebridge/internal/infra/audio"
	"voicebridge/internal/infra/gemini"
	"voicebridge/internal/infra/httpapi"
	"voicebridge/internal/infra/inference"
	"voicebridge/internal/infra/openai"
	"voicebridge/internal/infra/pushover"
	"voicebridge/internal/infra/simulated"
	"voicebridge/internal/infra/speech"
	"voicebridge/internal/infra/translator"
	"voicebridge/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	mode := flag.String("mode", "serve", "serve, translate or chat")
	to := flag.String("to", "es", "target language for translate mode")
	from := flag.String("from", domain.AutoDetect, "source language for translate mode")
	duration := flag.Duration("duration", 0, "maximum capture length, overrides audio.max_duration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	shutdownTelemetry, metricsHandler, err := telemetry.Setup("voicebridge", os.Getenv("VOICEBRIDGE_ENV"), logger)
	if err != nil {
		logger.Error("telemetry setup", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	relay := translator.NewClientWithURL(
		cfg.Translation.APIKey,
		cfg.Translation.Region,
		endpointOr(cfg.Translation.Endpoint, "https://api.cognitive.microsofttranslator.com"),
		cfg.Translation.TimeoutValue(),
		logger,
	)
	chain := application.NewFallbackChain(
		createGenerator(cfg.Chat),
		cfg.Chat.AttemptTimeoutValue(),
		cfg.Chat.Apology,
		logger,
	)

	switch *mode {
	case "serve":
		err = serve(ctx, cfg, relay, chain, metricsHandler, logger)
	case "translate", "chat":
		maxDuration := cfg.Audio.MaxDurationValue()
		if *duration > 0 {
			maxDuration = *duration
		}
		req := application.TurnRequest{
			Mode:           application.Mode(*mode),
			TargetLanguage: *to,
			SourceLanguage: *from,
			Models:         domain.ChainOf(cfg.Chat.Models...),
			MaxDuration:    maxDuration,
		}
		if req.Mode == application.ModeChat {
			req.TargetLanguage = cfg.Speech.DefaultLanguage
		}
		req.Until = enterPressed()
		fmt.Fprintf(os.Stderr, "Recording for up to %s, press Enter to stop.\n", maxDuration)
		err = runTurn(ctx, cfg, relay, chain, req, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	if err != nil && err != context.Canceled {
		logger.Error("voicebridge error", "mode", *mode, "error", err)
		os.Exit(1)
	}
}

func serve(
	ctx context.Context,
	cfg *config.Config,
	relay application.Translator,
	chain *application.FallbackChain,
	metrics http.Handler,
	logger *slog.Logger,
) error {
	server := httpapi.NewServer(relay, chain, httpapi.Options{
		Addr:               cfg.Server.Addr,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		AuthToken:          cfg.Server.AuthToken,
		Models:             domain.ChainOf(cfg.Chat.Models...),
		Metrics:            metrics,
	}, logger)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	logger.Info("starting voicebridge proxy", "addr", cfg.Server.Addr, "models", len(cfg.Chat.Models))

	<-ctx.Done()
	return server.Stop()
}

// runTurn records one utterance from the configured device and runs it
// through the pipeline.
func runTurn(
	ctx context.Context,
	cfg *config.Config,
	relay application.Translator,
	chain *application.FallbackChain,
	req application.TurnRequest,
	logger *slog.Logger,
) error {
	logger = logger.With("turn", uuid.NewString())

	permissions, device, mode := createCaptureDevice(cfg.Audio, logger)
	session := application.NewRecordingSession(permissions, device, mode, application.CaptureFormat{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		BitDepth:   16,
	}, logger)

	gateway := application.NewTranscriptionGateway(
		createTranscriber(cfg.Transcription),
		cfg.Transcription.TimeoutValue(),
		audio.NewDisposer(cfg.Audio.RecordingsDir),
		logger,
	)

	dispatcher := application.NewSpeechDispatcher(
		createSynthesizers(cfg.Speech, logger),
		cfg.Voices,
		application.SpeechSettings{Rate: cfg.Speech.Rate, Pitch: cfg.Speech.Pitch},
		logger,
	)

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(pushover.Options{
			Token:    cfg.Pushover.Token,
			UserKey:  cfg.Pushover.UserKey,
			Priority: cfg.Pushover.Priority,
			Device:   cfg.Pushover.Device,
		})
	} else {
		notifier = &application.NoopNotifier{}
	}

	pipeline := application.NewPipeline(session, gateway, relay, chain, dispatcher, notifier, logger)

	result, err := pipeline.RunTurn(ctx, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, application.UserMessage(err))
		return err
	}

	fmt.Printf("heard: %s\n", result.Transcript.Text)
	if result.Translation != nil && result.Translation.DetectedLanguage != "" {
		fmt.Printf("detected: %s\n", result.Translation.DetectedLanguage)
	}
	fmt.Printf("%s: %s\n", req.Mode, result.Spoken)

	pipeline.WaitForSpeech()
	return nil
}

func enterPressed() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(done)
	}()
	return done
}

func createCaptureDevice(cfg config.AudioConfig, logger *slog.Logger) (application.Permissions, application.CaptureDevice, application.AudioMode) {
	switch cfg.Device {
	case "microphone":
		mic := audio.NewMicrophone(cfg.RecordingsDir, logger)
		logger.Info("capturing from microphone", "device", mic.Name())
		return mic, mic, audio.NewMicrophoneMode()
	default:
		inbox := audio.NewInboxDevice(cfg.InboxDir, cfg.RecordingsDir, logger)
		logger.Info("capturing from inbox", "dir", cfg.InboxDir)
		return inbox, inbox, audio.NewNoopModeGuard()
	}
}

func createTranscriber(cfg config.TranscriptionConfig) application.Transcriber {
	switch cfg.Backend {
	case "simulated":
		return simulated.NewTranscriber(cfg.SimulatedText)
	default:
		return openai.NewWhisperClientWithURL(cfg.APIKey, cfg.Language, cfg.BaseURL)
	}
}

func createGenerator(cfg config.ChatConfig) application.ReplyGenerator {
	return inference.NewRouter(inference.NewHuggingFaceClientWithURL(cfg.APIKey, cfg.Endpoint)).
		Route("anthropic", anthropic.NewClaudeClient(cfg.AnthropicAPIKey, cfg.SystemPrompt)).
		Route("gemini", gemini.NewClient(cfg.GeminiAPIKey, cfg.SystemPrompt))
}

func createSynthesizers(cfg config.SpeechConfig, logger *slog.Logger) []application.Synthesizer {
	switch cfg.Backend {
	case "none":
		return nil
	case "edge":
		return []application.Synthesizer{speech.NewEdgeSynth(cfg.OutputDir, logger)}
	default:
		synth, err := speech.NewCommandSynth(cfg.Command)
		if err != nil {
			logger.Warn("invalid speech command, speech disabled", "command", cfg.Command, "error", err)
			return nil
		}
		return []application.Synthesizer{synth}
	}
}

func endpointOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
