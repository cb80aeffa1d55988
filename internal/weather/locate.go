package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrLocateTimeout = errors.New("location lookup timed out")

// Fallback is used when the device location cannot be resolved
// (Kanpur, Uttar Pradesh).
var Fallback = Location{Latitude: 26.4499, Longitude: 80.3319, Name: "Kanpur"}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

type Locator interface {
	Locate(ctx context.Context) (Location, error)
}

// IPLocator resolves an approximate location from the public IP address
// using an ip-api.com compatible endpoint.
type IPLocator struct {
	httpClient *http.Client
	url        string
}

func NewIPLocator(url string) *IPLocator {
	return &IPLocator{httpClient: &http.Client{}, url: url}
}

func (l *IPLocator) Locate(ctx context.Context) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return Location{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("locate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("locate: status %d", resp.StatusCode)
	}

	var body struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		City    string  `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("parse location: %w", err)
	}
	if body.Status != "success" {
		return Location{}, fmt.Errorf("locate: %s", body.Message)
	}
	return Location{Latitude: body.Lat, Longitude: body.Lon, Name: body.City}, nil
}

// Resolve asks l for a location, waiting at most timeout. On any failure
// it returns Fallback together with the reason.
func Resolve(ctx context.Context, l Locator, timeout time.Duration) (Location, error) {
	if l == nil {
		return Fallback, errors.New("no locator configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		loc Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := l.Locate(ctx)
		ch <- result{loc, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return Fallback, ErrLocateTimeout
			}
			return Fallback, r.err
		}
		return r.loc, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Fallback, ErrLocateTimeout
		}
		return Fallback, ctx.Err()
	}
}
