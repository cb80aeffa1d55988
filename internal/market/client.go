package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
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

// Commodities lists tradeable commodities. On failure it returns an empty
// list together with the error.
func (c *Client) Commodities(ctx context.Context) ([]Commodity, error) {
	var out struct {
		Commodities []Commodity `json:"commodities"`
	}
	if err := c.get(ctx, "/commodities", &out); err != nil {
		return []Commodity{}, fmt.Errorf("fetch commodities: %w", err)
	}
	return nonNil(out.Commodities), nil
}

func (c *Client) States(ctx context.Context) ([]State, error) {
	var out struct {
		States []State `json:"states"`
	}
	if err := c.get(ctx, "/states", &out); err != nil {
		return []State{}, fmt.Errorf("fetch states: %w", err)
	}
	return nonNil(out.States), nil
}

func (c *Client) Districts(ctx context.Context, stateID int) ([]District, error) {
	var out struct {
		Districts []District `json:"districts"`
	}
	if err := c.get(ctx, "/districts/"+strconv.Itoa(stateID), &out); err != nil {
		return []District{}, fmt.Errorf("fetch districts for state %d: %w", stateID, err)
	}
	return nonNil(out.Districts), nil
}

func (c *Client) Prices(ctx context.Context, q Query) ([]PricePoint, error) {
	var out struct {
		Prices []PricePoint `json:"prices"`
	}
	if err := c.post(ctx, "/prices", q, &out); err != nil {
		return []PricePoint{}, fmt.Errorf("fetch prices: %w", err)
	}
	return nonNil(out.Prices), nil
}

func (c *Client) Quantities(ctx context.Context, q Query) ([]QuantityPoint, error) {
	var out struct {
		Quantities []QuantityPoint `json:"quantities"`
	}
	if err := c.post(ctx, "/quantities", q, &out); err != nil {
		return []QuantityPoint{}, fmt.Errorf("fetch quantities: %w", err)
	}
	return nonNil(out.Quantities), nil
}

// Fetch loads prices and quantities for q in parallel.
func (c *Client) Fetch(ctx context.Context, q Query) (Data, error) {
	var data Data
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Prices, err = c.Prices(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		data.Quantities, err = c.Quantities(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return Data{Prices: []PricePoint{}, Quantities: []QuantityPoint{}}, err
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("market api",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
