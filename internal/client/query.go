package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

type QueryRequest struct {
	Query       string
	Language    string
	Latitude    float64
	Longitude   float64
	StateID     int
	DistrictIDs []int
	// ImagePath is a local file attached as the "image" part when set.
	ImagePath string
}

type QueryResponse struct {
	Response   string   `json:"response"`
	AgentsUsed []string `json:"agents_used,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	QueryEN    string   `json:"query_en,omitempty"`
}

func (c *Client) Query(ctx context.Context, q QueryRequest) (*QueryResponse, error) {
	body, contentType, err := encodeQuery(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/query", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var out QueryResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func encodeQuery(q QueryRequest) (io.Reader, string, error) {
	districts := q.DistrictIDs
	if districts == nil {
		districts = []int{}
	}
	districtJSON, err := json.Marshal(districts)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"query", q.Query},
		{"language", q.Language},
		{"latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64)},
		{"longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64)},
		{"stateId", strconv.Itoa(q.StateID)},
		{"districtId", string(districtJSON)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", f[0], err)
		}
	}

	if q.ImagePath != "" {
		data, err := os.ReadFile(q.ImagePath)
		if err != nil {
			return nil, "", fmt.Errorf("read image: %w", err)
		}
		part, err := w.CreateFormFile("image", filepath.Base(q.ImagePath))
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
