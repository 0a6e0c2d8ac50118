package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"voicebridge/internal/domain"
)

const (
	defaultEndpoint = "https://api.cognitive.microsofttranslator.com"
	apiVersion      = "3.0"
	op              = "translate"
)

// Client relays translation requests to a Microsoft Translator compatible
// provider. It makes exactly one upstream attempt per call.
type Client struct {
	apiKey     string
	region     string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	requests   metric.Int64Counter
}

func NewClient(apiKey, region string, timeout time.Duration, logger *slog.Logger) *Client {
	return NewClientWithURL(apiKey, region, defaultEndpoint, timeout, logger)
}

func NewClientWithURL(apiKey, region, endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	requests, err := otel.Meter("voicebridge/translator").Int64Counter("voicebridge.translations",
		metric.WithDescription("Translation relay calls by outcome"))
	if err != nil {
		logger.Warn("failed to initialize metric", "metric", "translations", "error", err)
	}
	return &Client{
		apiKey:     apiKey,
		region:     region,
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		requests:   requests,
	}
}

type textItem struct {
	Text string `json:"Text"`
}

type translationItem struct {
	DetectedLanguage *struct {
		Language string  `json:"language"`
		Score    float64 `json:"score"`
	} `json:"detectedLanguage"`
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

func (c *Client) Translate(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResponse, error) {
	if strings.TrimSpace(req.SourceText) == "" {
		return domain.TranslationResponse{}, domain.NewError(domain.KindInvalidRequest, op, "text is required")
	}
	if strings.TrimSpace(req.TargetLanguage) == "" {
		return domain.TranslationResponse{}, domain.NewError(domain.KindInvalidRequest, op, "target language is required")
	}

	body, err := json.Marshal([]textItem{{Text: req.SourceText}})
	if err != nil {
		return domain.TranslationResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(req), bytes.NewReader(body))
	if err != nil {
		return domain.TranslationResponse{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	}
	if c.region != "" {
		httpReq.Header.Set("Ocp-Apim-Subscription-Region", c.region)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record(ctx, "unreachable")
		e := domain.WrapError(domain.KindUpstreamFailure, op, "translation provider unreachable", err)
		e.Details = err.Error()
		return domain.TranslationResponse{}, e
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(ctx, "unreachable")
		e := domain.WrapError(domain.KindUpstreamFailure, op, "reading provider response", err)
		e.Details = err.Error()
		return domain.TranslationResponse{}, e
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(ctx, "rejected")
		e := domain.NewError(domain.KindUpstreamFailure, op, fmt.Sprintf("translation provider returned %d", resp.StatusCode))
		e.Payload = payload
		e.Details = extractDetails(payload, resp.Status)
		c.logger.Warn("translation rejected", "status", resp.StatusCode, "details", e.Details)
		return domain.TranslationResponse{}, e
	}

	var items []translationItem
	if err := json.Unmarshal(payload, &items); err != nil || len(items) == 0 {
		c.record(ctx, "malformed")
		e := domain.NewError(domain.KindUpstreamFailure, op, "malformed provider response")
		if err != nil {
			e.Cause = err
		}
		e.Payload = payload
		e.Details = "unexpected response shape"
		return domain.TranslationResponse{}, e
	}

	out := domain.TranslationResponse{RawProviderPayload: json.RawMessage(payload)}
	first := items[0]
	if len(first.Translations) > 0 {
		out.TranslatedText = first.Translations[0].Text
	}
	if first.DetectedLanguage != nil {
		out.DetectedLanguage = first.DetectedLanguage.Language
	}

	c.record(ctx, "ok")
	c.logger.Debug("translated", "to", req.TargetLanguage, "detected", out.DetectedLanguage)
	return out, nil
}

// requestURL always sets "to" first and adds "from" only for an explicit
// source language.
func (c *Client) requestURL(req domain.TranslationRequest) string {
	var b strings.Builder
	b.WriteString(c.endpoint)
	b.WriteString("/translate?api-version=")
	b.WriteString(apiVersion)
	b.WriteString("&to=")
	b.WriteString(url.QueryEscape(req.TargetLanguage))

	from := strings.TrimSpace(req.SourceLanguage)
	if from != "" && !strings.EqualFold(from, domain.AutoDetect) {
		b.WriteString("&from=")
		b.WriteString(url.QueryEscape(from))
	}
	return b.String()
}

func (c *Client) record(ctx context.Context, outcome string) {
	if c.requests == nil {
		return
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// extractDetails pulls a human readable message out of a provider error body.
func extractDetails(payload []byte, fallback string) string {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err == nil {
		switch v := body["error"].(type) {
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		case string:
			if v != "" {
				return v
			}
		}
		if msg, ok := body["message"].(string); ok && msg != "" {
			return msg
		}
	}

	if text := strings.TrimSpace(string(payload)); text != "" && len(text) <= 512 {
		return text
	}
	return fallback
}
