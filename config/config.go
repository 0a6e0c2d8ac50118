package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"voicebridge/internal/domain"
)

type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Translation   TranslationConfig   `yaml:"translation"`
	Chat          ChatConfig          `yaml:"chat"`
	Speech        SpeechConfig        `yaml:"speech"`
	Voices        domain.VoiceProfile `yaml:"voices"`
	Server        ServerConfig        `yaml:"server"`
	Pushover      PushoverConfig      `yaml:"pushover"`
	Log           LogConfig           `yaml:"log"`
}

type AudioConfig struct {
	// Device is "microphone" (portaudio builds only) or "file".
	Device        string `yaml:"device"`
	InboxDir      string `yaml:"inbox_dir"`
	RecordingsDir string `yaml:"recordings_dir"`
	SampleRate    int    `yaml:"sample_rate"`
	Channels      int    `yaml:"channels"`
	MaxDuration   string `yaml:"max_duration"`
}

type TranscriptionConfig struct {
	// Backend is "whisper" or "simulated".
	Backend       string `yaml:"backend"`
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Language      string `yaml:"language"`
	Timeout       string `yaml:"timeout"`
	SimulatedText string `yaml:"simulated_text"`
}

type TranslationConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Region   string `yaml:"region"`
	Timeout  string `yaml:"timeout"`
}

type ChatConfig struct {
	Endpoint        string   `yaml:"endpoint"`
	APIKey          string   `yaml:"api_key"`
	Models          []string `yaml:"models"`
	AttemptTimeout  string   `yaml:"attempt_timeout"`
	Apology         string   `yaml:"apology"`
	SystemPrompt    string   `yaml:"system_prompt"`
	AnthropicAPIKey string   `yaml:"anthropic_api_key"`
	GeminiAPIKey    string   `yaml:"gemini_api_key"`
}

type SpeechConfig struct {
	// Backend is "command", "edge" or "none".
	Backend         string  `yaml:"backend"`
	Command         string  `yaml:"command"`
	OutputDir       string  `yaml:"output_dir"`
	Rate            float64 `yaml:"rate"`
	Pitch           float64 `yaml:"pitch"`
	DefaultLanguage string  `yaml:"default_language"`
}

type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	AuthToken          string   `yaml:"auth_token"`
}

type PushoverConfig struct {
	Token    string `yaml:"token"`
	UserKey  string `yaml:"user_key"`
	Enabled  bool   `yaml:"enabled"`
	Priority int    `yaml:"priority"`
	Device   string `yaml:"device"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config, expanding ${VAR} references from the environment.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.Device == "" {
		c.Audio.Device = "file"
	}
	if c.Audio.InboxDir == "" {
		c.Audio.InboxDir = "./audio/inbox"
	}
	if c.Audio.RecordingsDir == "" {
		c.Audio.RecordingsDir = "./audio/recordings"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.MaxDuration == "" {
		c.Audio.MaxDuration = "10s"
	}
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = "whisper"
	}
	if c.Transcription.Timeout == "" {
		c.Transcription.Timeout = "30s"
	}
	if c.Translation.Timeout == "" {
		c.Translation.Timeout = "10s"
	}
	if c.Chat.AttemptTimeout == "" {
		c.Chat.AttemptTimeout = "15s"
	}
	if c.Speech.Backend == "" {
		c.Speech.Backend = "command"
	}
	if c.Speech.Command == "" {
		c.Speech.Command = "espeak-ng -v {lang} {text}"
	}
	if c.Speech.OutputDir == "" {
		c.Speech.OutputDir = "./audio/speech"
	}
	if c.Speech.Rate == 0 {
		c.Speech.Rate = 1.0
	}
	if c.Speech.Pitch == 0 {
		c.Speech.Pitch = 1.0
	}
	if c.Speech.DefaultLanguage == "" {
		c.Speech.DefaultLanguage = domain.DefaultLanguage
	}
	if len(c.Voices) == 0 {
		c.Voices = domain.DefaultVoiceProfile()
	}
	if _, ok := c.Voices[domain.DefaultLanguage]; !ok {
		c.Voices[domain.DefaultLanguage] = domain.DefaultVoiceProfile()[domain.DefaultLanguage]
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateLimitPerMinute == 0 {
		c.Server.RateLimitPerMinute = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	var errs []error

	switch c.Audio.Device {
	case "microphone", "file":
	default:
		errs = append(errs, fmt.Errorf("audio.device must be microphone or file, got %q", c.Audio.Device))
	}
	switch c.Transcription.Backend {
	case "whisper", "simulated":
	default:
		errs = append(errs, fmt.Errorf("transcription.backend must be whisper or simulated, got %q", c.Transcription.Backend))
	}
	switch c.Speech.Backend {
	case "command", "edge", "none":
	default:
		errs = append(errs, fmt.Errorf("speech.backend must be command, edge or none, got %q", c.Speech.Backend))
	}

	durations := map[string]string{
		"audio.max_duration":    c.Audio.MaxDuration,
		"transcription.timeout": c.Transcription.Timeout,
		"translation.timeout":   c.Translation.Timeout,
		"chat.attempt_timeout":  c.Chat.AttemptTimeout,
	}
	for name, value := range durations {
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration, got %q", name, value))
		}
	}

	if len(c.Chat.Models) == 0 {
		errs = append(errs, errors.New("chat.models must list at least one model"))
	}
	for i, model := range c.Chat.Models {
		if strings.TrimSpace(model) == "" {
			errs = append(errs, fmt.Errorf("chat.models[%d] is empty", i))
		}
	}
	if c.Audio.SampleRate < 0 || c.Audio.Channels < 0 {
		errs = append(errs, errors.New("audio.sample_rate and audio.channels must be positive"))
	}

	return errors.Join(errs...)
}

func (a AudioConfig) MaxDurationValue() time.Duration {
	return mustDuration(a.MaxDuration)
}

func (t TranscriptionConfig) TimeoutValue() time.Duration {
	return mustDuration(t.Timeout)
}

func (t TranslationConfig) TimeoutValue() time.Duration {
	return mustDuration(t.Timeout)
}

func (c ChatConfig) AttemptTimeoutValue() time.Duration {
	return mustDuration(c.AttemptTimeout)
}

// mustDuration is only used on values that passed validate.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
