package pushover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"voicebridge/internal/domain"
	"voicebridge/internal/infra"
)

const (
	defaultURL   = "https://api.pushover.net/1/messages.json"
	defaultTitle = "voicebridge"

	// Pushover rejects messages longer than this many characters.
	maxMessageRunes = 1024
)

type Options struct {
	Token   string
	UserKey string
	Title   string
	// Priority ranges from -2 (silent) to 1 (high). 2 needs retry/expire
	// parameters and is not supported.
	Priority int
	// Device limits delivery to one of the user's devices.
	Device   string
	Endpoint string
}

// Client pushes actionable failure messages to the user's phone. It is a
// no-op until both token and user key are configured.
type Client struct {
	opts       Options
	retry      infra.RetryConfig
	httpClient *http.Client
}

type apiResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = defaultURL
	}
	if strings.TrimSpace(opts.Title) == "" {
		opts.Title = defaultTitle
	}
	opts.Priority = max(-2, min(opts.Priority, 1))

	return &Client{
		opts:       opts,
		retry:      infra.DefaultRetryConfig(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return c.opts.Token != "" && c.opts.UserKey != ""
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if !c.Configured() {
		return nil
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	form := c.form(message).Encode()
	return infra.WithRetry(ctx, c.retry, func() error {
		return c.send(ctx, form)
	})
}

func (c *Client) form(message string) url.Values {
	data := url.Values{}
	data.Set("token", c.opts.Token)
	data.Set("user", c.opts.UserKey)
	data.Set("title", c.opts.Title)
	data.Set("message", truncate(message, maxMessageRunes))
	if c.opts.Priority != 0 {
		data.Set("priority", strconv.Itoa(c.opts.Priority))
	}
	if c.opts.Device != "" {
		data.Set("device", c.opts.Device)
	}
	return data
}

func (c *Client) send(ctx context.Context, form string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, strings.NewReader(form))
	if err != nil {
		return infra.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var parsed apiResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode == http.StatusOK && parsed.Status == 1 {
		return nil
	}

	details := strings.Join(parsed.Errors, "; ")
	if details == "" {
		details = resp.Status
	}
	failure := &domain.Error{
		Kind:    domain.KindUpstreamFailure,
		Op:      "notify",
		Message: "pushover rejected notification",
		Details: details,
		Payload: body,
	}
	if resp.StatusCode == http.StatusOK || !infra.IsRetryableHTTPStatus(resp.StatusCode) {
		return infra.Permanent(failure)
	}
	return failure
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
