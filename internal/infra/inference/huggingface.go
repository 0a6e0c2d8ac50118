package inference

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

const defaultEndpoint = "https://api-inference.huggingface.co/models"

// HuggingFaceClient posts {"inputs": message} to <endpoint>/<model>.
type HuggingFaceClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewHuggingFaceClient(apiKey string) *HuggingFaceClient {
	return NewHuggingFaceClientWithURL(apiKey, defaultEndpoint)
}

func NewHuggingFaceClientWithURL(apiKey, endpoint string) *HuggingFaceClient {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &HuggingFaceClient{
		apiKey:     apiKey,
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type inputsRequest struct {
	Inputs string `json:"inputs"`
}

type generated struct {
	GeneratedText string `json:"generated_text"`
}

func (c *HuggingFaceClient) Generate(ctx context.Context, model, message string) (string, error) {
	if model == "" {
		return "", errors.New("model identifier is required")
	}

	body, err := json.Marshal(inputsRequest{Inputs: message})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+model, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("inference API error %d: %s", resp.StatusCode, string(respBody))
	}

	return generatedText(respBody)
}

// generatedText accepts [{"generated_text": ...}] and, failing that,
// {"generated_text": ...}.
func generatedText(body []byte) (string, error) {
	var list []generated
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return "", errors.New("empty generation list")
		}
		return list[0].GeneratedText, nil
	}

	var single struct {
		generated
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &single); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if single.Error != "" {
		return "", fmt.Errorf("inference error: %s", single.Error)
	}
	return single.GeneratedText, nil
}
