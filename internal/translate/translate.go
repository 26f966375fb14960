// Package translate calls a RapidAPI hosted machine translation endpoint.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"commentboard/internal/observability"
)

// DefaultTimeout bounds a single translation request.
const DefaultTimeout = 8 * time.Second

// NoTranslation is returned when the upstream answers without a usable field.
const NoTranslation = "N/A"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("translation API key is not configured")

// Client talks to the free-google-translator API on RapidAPI.
//
// Client is safe for concurrent use.
type Client struct {
	endpoint   string
	apiKey     string
	apiHost    string
	httpClient *http.Client
}

// NewClient creates a translation client.
func NewClient(endpoint, apiKey, apiHost string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		apiHost:    apiHost,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// response lists the fields the upstream has been seen to use, in order of
// preference.
type response struct {
	Translation    string `json:"translation"`
	TranslatedText string `json:"translated_text"`
	Result         string `json:"result"`
}

func (r response) text() string {
	for _, s := range []string{r.Translation, r.TranslatedText, r.Result} {
		if s != "" {
			return s
		}
	}
	return NoTranslation
}

// Translate translates text from source ("auto" to detect) into target.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	if source == "" {
		source = "auto"
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse translate endpoint: %w", err)
	}
	q := u.Query()
	q.Set("from", source)
	q.Set("to", target)
	q.Set("query", text)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(`{"translate":"rapidapi"}`))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-rapidapi-key", c.apiKey)
	if c.apiHost != "" {
		req.Header.Set("x-rapidapi-host", c.apiHost)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.UpstreamRequests.WithLabelValues("translate", "error").Inc()
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		observability.UpstreamRequests.WithLabelValues("translate", "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translation API error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		observability.UpstreamRequests.WithLabelValues("translate", "error").Inc()
		return "", fmt.Errorf("decode translation: %w", err)
	}
	observability.UpstreamRequests.WithLabelValues("translate", "ok").Inc()
	return out.text(), nil
}
