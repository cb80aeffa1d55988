// Package app wires the session, the result cache and the external
// providers into the views the terminal client drives.
package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"agrisahayak.in/agri-sahayak/internal/cache"
	"agrisahayak.in/agri-sahayak/internal/client"
	"agrisahayak.in/agri-sahayak/internal/market"
	"agrisahayak.in/agri-sahayak/internal/prefs"
	"agrisahayak.in/agri-sahayak/internal/session"
	"agrisahayak.in/agri-sahayak/internal/weather"
)

const (
	DefaultStateID    = 8   // Uttar Pradesh
	DefaultDistrictID = 104 // Kanpur Nagar
	DefaultLanguage   = "en"

	FertilizerURL = "https://soilhealth.dac.gov.in/fertilizer-dosage"
)

var SupportedLanguages = []string{"en", "hi", "mr", "pa", "te", "ta"}

var ErrUnsupportedLanguage = errors.New("unsupported language")

type QueryClient interface {
	Query(ctx context.Context, q client.QueryRequest) (*client.QueryResponse, error)
}

type MarketSource interface {
	Commodities(ctx context.Context) ([]market.Commodity, error)
	States(ctx context.Context) ([]market.State, error)
	Districts(ctx context.Context, stateID int) ([]market.District, error)
	Fetch(ctx context.Context, q market.Query) (market.Data, error)
}

type ForecastSource interface {
	Forecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
}

type Speaker interface {
	Speak(ctx context.Context, text, lang string) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text, from, to string) string
}

type Preferences interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Deps are the collaborators of an App. Speaker, Translator and Locator
// are optional.
type Deps struct {
	Session       *session.Manager
	Cache         *cache.Store
	Query         QueryClient
	Market        MarketSource
	Forecasts     ForecastSource
	Locator       weather.Locator
	LocateTimeout time.Duration
	Speaker       Speaker
	Translator    Translator
	Prefs         Preferences
	Logger        *zap.Logger

	// OnAudio is called with the path of each synthesized answer.
	OnAudio func(path string)
}

type App struct {
	deps   Deps
	logger *zap.Logger

	Chat    *ChatView
	Market  *MarketView
	Weather *WeatherView
	Profile *ProfileView

	mu     sync.Mutex
	epoch  context.Context
	cancel context.CancelFunc
	speech sync.WaitGroup
}

func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.LocateTimeout <= 0 {
		d.LocateTimeout = 10 * time.Second
	}

	a := &App{deps: d, logger: d.Logger}
	a.epoch, a.cancel = context.WithCancel(context.Background())
	a.Chat = &ChatView{app: a}
	a.Market = &MarketView{app: a}
	a.Weather = &WeatherView{app: a}
	a.Profile = &ProfileView{app: a}

	// A revoked or replaced session must not leave the previous user's
	// data or requests behind.
	d.Session.OnChange(func(s session.State) {
		if s.Status == session.Anonymous {
			a.resetScope()
			d.Cache.ClearAll()
		}
	})
	return a
}

func (a *App) Session() *session.Manager { return a.deps.Session }

func (a *App) Cache() *cache.Store { return a.deps.Cache }

func (a *App) Login(ctx context.Context, username, password string) error {
	return a.deps.Session.Login(ctx, username, password)
}

func (a *App) Signup(ctx context.Context, username, password string, stateID, districtID int) error {
	return a.deps.Session.Signup(ctx, username, password, stateID, districtID)
}

// Logout ends the session, cancels in-flight requests and clears every
// cached result.
func (a *App) Logout() {
	a.resetScope()
	a.deps.Session.Logout()
	a.deps.Cache.ClearAll()
}

// resetScope cancels every request started under the current epoch.
func (a *App) resetScope() {
	a.mu.Lock()
	a.cancel()
	a.epoch, a.cancel = context.WithCancel(context.Background())
	a.mu.Unlock()
}

// requireSession gates the feature views on a signed-in user.
func (a *App) requireSession() error {
	if !a.deps.Session.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}
	return nil
}

// Close waits for background speech synthesis to finish.
func (a *App) Close() {
	a.mu.Lock()
	a.cancel()
	a.mu.Unlock()
	a.speech.Wait()
}

func (a *App) Language() string {
	if a.deps.Prefs == nil {
		return DefaultLanguage
	}
	if lang, ok := a.deps.Prefs.Get(prefs.KeyLanguage); ok && slices.Contains(SupportedLanguages, lang) {
		return lang
	}
	return DefaultLanguage
}

func (a *App) SetLanguage(lang string) error {
	if !slices.Contains(SupportedLanguages, lang) {
		return ErrUnsupportedLanguage
	}
	if a.deps.Prefs == nil {
		return nil
	}
	return a.deps.Prefs.Set(prefs.KeyLanguage, lang)
}

// scope derives a request context that is also cancelled by Logout.
func (a *App) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	a.mu.Lock()
	epoch := a.epoch
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(epoch, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// location returns the cached location, or resolves and caches a new
// one. On failure it returns the fallback and the reason.
func (a *App) location(ctx context.Context) (weather.Location, error) {
	if loc, ok := a.deps.Cache.Location(); ok {
		return loc, nil
	}
	loc, err := weather.Resolve(ctx, a.deps.Locator, a.deps.LocateTimeout)
	if err != nil {
		a.logger.Debug("using fallback location", zap.Error(err))
		return loc, err
	}
	a.deps.Cache.SetLocation(loc)
	return loc, nil
}

// region is the signed-in user's state and district, or the defaults.
func (a *App) region() (stateID, districtID int) {
	p, ok := a.deps.Session.Profile()
	if !ok || p.StateID == 0 {
		return DefaultStateID, DefaultDistrictID
	}
	if p.DistrictID == 0 {
		return p.StateID, DefaultDistrictID
	}
	return p.StateID, p.DistrictID
}

func (a *App) translate(ctx context.Context, text, lang string) string {
	if a.deps.Translator == nil {
		return text
	}
	return a.deps.Translator.Translate(ctx, text, DefaultLanguage, lang)
}
