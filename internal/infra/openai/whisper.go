package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"voicebridge/internal/infra"
)

// WhisperClient transcribes recordings with the OpenAI audio API.
type WhisperClient struct {
	client   *goopenai.Client
	language string
	retry    infra.RetryConfig
}

func NewWhisperClient(apiKey, language string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, language, "")
}

func NewWhisperClientWithURL(apiKey, language, baseURL string) *WhisperClient {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}

	return &WhisperClient{
		client:   goopenai.NewClientWithConfig(cfg),
		language: language,
		retry:    infra.DefaultRetryConfig(),
	}
}

func (c *WhisperClient) Name() string {
	return "whisper"
}

func (c *WhisperClient) Transcribe(ctx context.Context, locator string) (string, error) {
	path := strings.TrimPrefix(locator, "file://")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("opening recording: %w", err)
	}

	var text string
	err := infra.WithRetry(ctx, c.retry, func() error {
		resp, err := c.client.CreateTranscription(ctx, goopenai.AudioRequest{
			Model:    goopenai.Whisper1,
			FilePath: path,
			Language: c.language,
		})
		if err != nil {
			if status := statusOf(err); status != 0 && !infra.IsRetryableHTTPStatus(status) {
				return infra.Permanent(fmt.Errorf("whisper API error %d: %w", status, err))
			}
			return fmt.Errorf("whisper request: %w", err)
		}
		text = resp.Text
		return nil
	})
	if err != nil {
		return "", err
	}

	return text, nil
}

func statusOf(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
