package main

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrisahayak.in/agri-sahayak/internal/app"
	"agrisahayak.in/agri-sahayak/internal/cache"
	"agrisahayak.in/agri-sahayak/internal/client"
	"agrisahayak.in/agri-sahayak/internal/market"
	"agrisahayak.in/agri-sahayak/internal/session"
)

type memPrefs struct {
	mu sync.Mutex
	m  map[string]string
}

func (p *memPrefs) Get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[key]
	return v, ok
}

func (p *memPrefs) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = value
	return nil
}

func (p *memPrefs) Delete(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, key)
	return nil
}

type stubDirectory struct{}

func (stubDirectory) Login(_ context.Context, username, password string) error {
	if username != "ravi" || password != "pass123" {
		return &client.StatusError{StatusCode: http.StatusUnauthorized}
	}
	return nil
}

func (stubDirectory) Signup(context.Context, client.SignupRequest) error {
	return &client.StatusError{StatusCode: http.StatusConflict}
}

func (stubDirectory) User(_ context.Context, username string) (*client.User, error) {
	return &client.User{Username: username, StateID: 8, DistrictID: 104}, nil
}

func (stubDirectory) Update(context.Context, client.UpdateRequest) error { return nil }

type stubMarket struct{}

func (stubMarket) Commodities(context.Context) ([]market.Commodity, error) {
	return []market.Commodity{{ID: 1, Name: "Wheat"}}, nil
}

func (stubMarket) States(context.Context) ([]market.State, error) {
	return []market.State{{ID: 8, Name: "Uttar Pradesh"}}, nil
}

func (stubMarket) Districts(context.Context, int) ([]market.District, error) {
	return []market.District{{ID: 104, Name: "Kanpur Nagar"}}, nil
}

func (stubMarket) Fetch(_ context.Context, q market.Query) (market.Data, error) {
	return market.Data{Prices: []market.PricePoint{{
		Date:       q.To,
		MinPrice:   decimal.NewFromInt(2100),
		MaxPrice:   decimal.NewFromInt(2300),
		ModalPrice: decimal.NewFromInt(2250),
	}}}, nil
}

func runScript(t *testing.T, script ...string) string {
	t.Helper()
	p := &memPrefs{m: map[string]string{}}
	a := app.New(app.Deps{
		Session: session.NewManager(stubDirectory{}, p, nil),
		Cache:   cache.New(),
		Market:  stubMarket{},
		Prefs:   p,
	})
	t.Cleanup(a.Close)

	var out bytes.Buffer
	sh := newShell(a, strings.NewReader(strings.Join(script, "\n")+"\n"), newConsole(&out))
	require.NoError(t, sh.Run(context.Background()))
	return out.String()
}

func TestShell_Basics(t *testing.T) {
	out := runScript(t,
		"help",
		"lang",
		"lang hi",
		"lang",
		"lang fr",
		"bogus",
		"whoami",
		"quit",
		"lang en",
	)

	assert.Contains(t, out, "Commands:")
	assert.Contains(t, out, "Language: en")
	assert.Contains(t, out, "Language set to hi.")
	assert.Contains(t, out, "Language: hi")
	assert.Contains(t, out, "Supported languages")
	assert.Contains(t, out, `Unknown command "bogus"`)
	assert.Contains(t, out, "Not signed in.")
	assert.NotContains(t, out, "Language set to en.", "nothing runs after quit")
}

func TestShell_FeaturesNeedLogin(t *testing.T) {
	gated := []string{"ask how to water wheat", "history", "market", "weather", "profile", "fertilizer"}
	out := runScript(t, gated...)

	assert.Equal(t, len(gated), strings.Count(out, "Please log in first."))
	assert.NotContains(t, out, app.FertilizerURL)
	assert.NotContains(t, out, "Wheat")
}

func TestShell_Session(t *testing.T) {
	out := runScript(t,
		"login ravi wrong",
		"login ravi pass123",
		"whoami",
		"fertilizer",
		"profile",
		"signup ravi pw 8 104",
		"signup ravi pw x 104",
		"logout",
		"whoami",
	)

	assert.Contains(t, out, "Invalid username or password.")
	assert.Contains(t, out, "Welcome, ravi!")
	assert.Contains(t, out, "Session: verified")
	assert.Contains(t, out, app.FertilizerURL)
	assert.Contains(t, out, "State: Uttar Pradesh (8)")
	assert.Contains(t, out, "District: Kanpur Nagar (104)")
	assert.Contains(t, out, "That username is already taken.")
	assert.Contains(t, out, "Invalid arguments.")
	assert.Contains(t, out, "Signed out.")
	assert.Contains(t, out, "Not signed in.")
}

func TestShell_Market(t *testing.T) {
	out := runScript(t,
		"login ravi pass123",
		"market commodities",
		"market range 2024-01-01 2024-03-31",
		"market",
		"market range 2024-03-31 2024-01-01",
		"cache stats",
	)

	assert.Contains(t, out, "Wheat")
	assert.Contains(t, out, "Market 2024-01-01 to 2024-03-31")
	assert.Contains(t, out, "Rs 2250.00/quintal on 2024-03-31")
	assert.Contains(t, out, "The start date must be before the end date.")
	assert.Contains(t, out, "market: 1")
}

func TestShell_EndOfInput(t *testing.T) {
	out := runScript(t, "")
	assert.Contains(t, out, "Agri Sahayak")
}
