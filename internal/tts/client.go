// Package tts turns assistant answers into speech with the CAMB.AI API.
package tts

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

	"go.uber.org/zap"
)

var (
	ErrTimedOut   = errors.New("tts task did not finish in time")
	ErrTaskFailed = errors.New("tts task failed")
	ErrSkipped    = errors.New("tts skipped for English text")
)

type Outcome int

const (
	Succeeded Outcome = iota
	Failed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "timed out"
	}
}

// PollResult is the final state of a task. RunID is set only on success.
type PollResult struct {
	Outcome Outcome
	RunID   int64
}

type Options struct {
	BaseURL      string
	APIKey       string
	VoiceID      int
	MaxAttempts  int
	PollInterval time.Duration
	Timeout      time.Duration
}

type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	voiceID      int
	maxAttempts  int
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 30
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: opts.Timeout},
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		voiceID:      opts.VoiceID,
		maxAttempts:  opts.MaxAttempts,
		pollInterval: opts.PollInterval,
		logger:       logger,
	}
}

// Synthesize creates a task, waits for it and downloads the audio. An
// empty lang is detected from the text. English returns ErrSkipped.
func (c *Client) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if lang == "" {
		lang = DetectLanguage(text)
	}
	if lang == "en" {
		return nil, ErrSkipped
	}

	taskID, err := c.CreateTask(ctx, text, LanguageID(lang))
	if err != nil {
		return nil, err
	}
	res, err := c.Poll(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return c.Download(ctx, res.RunID)
}

func (c *Client) CreateTask(ctx context.Context, text string, languageID int) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"voice_id": c.voiceID,
		"language": languageID,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		TaskID string `json:"task_id"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", fmt.Errorf("create tts task: %w", err)
	}
	if out.TaskID == "" {
		return "", errors.New("create tts task: response did not include a task_id")
	}
	c.logger.Debug("tts task created", zap.String("task_id", out.TaskID), zap.Int("language", languageID))
	return out.TaskID, nil
}

// Poll checks the task status at most MaxAttempts times, PollInterval
// apart. Failed checks count as attempts.
func (c *Client) Poll(ctx context.Context, taskID string) (PollResult, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		status, runID, err := c.status(ctx, taskID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return PollResult{Outcome: TimedOut}, ctx.Err()
			}
			lastErr = err
			c.logger.Debug("tts status check failed", zap.Int("attempt", attempt), zap.Error(err))
		case status == "SUCCESS":
			if runID == 0 {
				return PollResult{Outcome: Failed}, fmt.Errorf("%w: success without run_id", ErrTaskFailed)
			}
			return PollResult{Outcome: Succeeded, RunID: runID}, nil
		case status == "FAILED":
			return PollResult{Outcome: Failed}, ErrTaskFailed
		}

		if attempt == c.maxAttempts {
			break
		}
		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return PollResult{Outcome: TimedOut}, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr != nil {
		return PollResult{Outcome: TimedOut}, fmt.Errorf("%w after %d attempts: %v", ErrTimedOut, c.maxAttempts, lastErr)
	}
	return PollResult{Outcome: TimedOut}, fmt.Errorf("%w after %d attempts", ErrTimedOut, c.maxAttempts)
}

func (c *Client) status(ctx context.Context, taskID string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tts/"+taskID, nil)
	if err != nil {
		return "", 0, err
	}
	var out struct {
		Status string `json:"status"`
		RunID  int64  `json:"run_id"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return "", 0, err
	}
	return out.Status, out.RunID, nil
}

func (c *Client) Download(ctx context.Context, runID int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/tts-result/%d", c.baseURL, runID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	return audio, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// send adds the API key and turns non-2xx replies into errors.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	req.Header.Set("x-api-key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}
