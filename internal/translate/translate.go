// Package translate wraps the MyMemory translation API. Every failure
// falls back to the input text.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Translate converts text between language codes such as "en" or "hi-IN".
// It returns text unchanged when from and to match or the API fails.
func (c *Client) Translate(ctx context.Context, text, from, to string) string {
	from, to = baseLang(from), baseLang(to)
	if from == to || strings.TrimSpace(text) == "" {
		return text
	}

	out, err := c.translate(ctx, text, from, to)
	if err != nil {
		c.logger.Warn("translation failed", zap.String("from", from), zap.String("to", to), zap.Error(err))
		return text
	}
	if out == "" {
		return text
	}
	return out
}

func (c *Client) translate(ctx context.Context, text, from, to string) (string, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", from+"|"+to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation API status %d", resp.StatusCode)
	}

	var body struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("parse translation: %w", err)
	}
	return body.ResponseData.TranslatedText, nil
}

func baseLang(code string) string {
	code, _, _ = strings.Cut(code, "-")
	return strings.ToLower(code)
}
