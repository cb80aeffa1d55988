package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

var ErrMissingQuery = errors.New("query is required")

// Image is an uploaded image attached to a query.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// QueryRequest is a parsed /query form. Fields keeps every submitted value
// so forwarding backends can pass the form through untouched.
type QueryRequest struct {
	Query    string
	Language string
	Fields   url.Values
	Image    *Image
}

// QueryResponse is the answer shape shared by all inference backends.
type QueryResponse struct {
	Response   string   `json:"response"`
	AgentsUsed []string `json:"agents_used,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	QueryEN    string   `json:"query_en,omitempty"`
}

// BackendError reports a non-2xx answer from the inference backend.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("inference backend returned status %d", e.StatusCode)
}

// Backend answers a query with a JSON document.
type Backend interface {
	Answer(ctx context.Context, req *QueryRequest) (json.RawMessage, error)
}

type QueryService struct {
	backend Backend
	logger  *zap.Logger
}

func NewQueryService(backend Backend, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{backend: backend, logger: logger}
}

func (s *QueryService) Query(ctx context.Context, req *QueryRequest) (json.RawMessage, error) {
	if req == nil || req.Query == "" {
		return nil, ErrMissingQuery
	}

	start := time.Now()
	resp, err := s.backend.Answer(ctx, req)
	if err != nil {
		var be *BackendError
		if errors.As(err, &be) {
			s.logger.Error("inference backend error", zap.Int("status", be.StatusCode), zap.String("body", be.Body))
		} else {
			s.logger.Error("inference request failed", zap.Error(err))
		}
		return nil, err
	}
	s.logger.Debug("query answered",
		zap.String("language", req.Language),
		zap.Bool("image", req.Image != nil),
		zap.Duration("took", time.Since(start)))
	return resp, nil
}

// HTTPBackend forwards the query form to a remote inference service.
type HTTPBackend struct {
	url        string
	httpClient *http.Client
}

func NewHTTPBackend(url string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) Answer(ctx context.Context, req *QueryRequest) (json.RawMessage, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach inference backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("inference backend returned invalid JSON")
	}
	return json.RawMessage(data), nil
}

func encodeForm(req *QueryRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if req.Fields.Get("query") == "" {
		if err := w.WriteField("query", req.Query); err != nil {
			return nil, "", fmt.Errorf("failed to encode field query: %w", err)
		}
	}
	for key, values := range req.Fields {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				return nil, "", fmt.Errorf("failed to encode field %s: %w", key, err)
			}
		}
	}

	if req.Image != nil {
		name := req.Image.Filename
		if name == "" {
			name = "image.jpg"
		}
		part, err := w.CreateFormFile("image", name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode image: %w", err)
		}
		if _, err := part.Write(req.Image.Data); err != nil {
			return nil, "", fmt.Errorf("failed to encode image: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
