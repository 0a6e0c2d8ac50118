package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultMaxTokens = 512

// ClaudeClient answers chat messages with the Anthropic Messages API. It makes
// a single call per Generate; fallback across models is the caller's job.
type ClaudeClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	system     string
}

func NewClaudeClient(apiKey, system string) *ClaudeClient {
	return NewClaudeClientWithURL(apiKey, system, "https://api.anthropic.com/v1")
}

func NewClaudeClientWithURL(apiKey, system, baseURL string) *ClaudeClient {
	return &ClaudeClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		system:     system,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *ClaudeClient) Generate(ctx context.Context, model, text string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("anthropic api key not configured")
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	bodyBytes, err := json.Marshal(request{
		Model:     model,
		MaxTokens: defaultMaxTokens,
		System:    c.system,
		Messages: []message{
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("claude API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result response
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("claude error: %s", result.Error.Message)
	}

	var parts []string
	for _, block := range result.Content {
		if block.Type == "" || block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	reply := strings.TrimSpace(strings.Join(parts, ""))
	if reply == "" {
		return "", fmt.Errorf("empty response from claude")
	}

	return reply, nil
}
