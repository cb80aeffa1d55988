package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendHTTP   = "http"
	BackendGemini = "gemini"
)

type ServerConfig struct {
	HTTPPort         string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL      string        `env:"DATABASE_URL" envDefault:"agri_sahayak.db"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"INFO"`
	SeedAdmin        bool          `env:"SEED_ADMIN" envDefault:"true"`
	AllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	InferenceBackend string        `env:"INFERENCE_BACKEND" envDefault:"http"`
	InferenceURL     string        `env:"INFERENCE_URL" envDefault:"http://localhost:8000/api/query"`
	InferenceTimeout time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"60s"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	GeminiModel      string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash-latest"`
}

type ClientConfig struct {
	ServerURL       string        `env:"SAHAYAK_SERVER_URL" envDefault:"http://localhost:8080"`
	PrefsPath       string        `env:"SAHAYAK_PREFS_PATH"`
	HTTPTimeout     time.Duration `env:"SAHAYAK_HTTP_TIMEOUT" envDefault:"30s"`
	MarketAPIURL    string        `env:"MARKET_API_URL" envDefault:"http://agri-sahayak-backend-production.up.railway.app/api/data"`
	WeatherAPIURL   string        `env:"WEATHER_API_URL" envDefault:"https://api.open-meteo.com/v1"`
	TranslateAPIURL string        `env:"TRANSLATE_API_URL" envDefault:"https://api.mymemory.translated.net"`
	GeoAPIURL       string        `env:"GEO_API_URL" envDefault:"http://ip-api.com/json"`
	LocateTimeout   time.Duration `env:"LOCATE_TIMEOUT" envDefault:"10s"`

	TTSAPIURL       string        `env:"CAMB_AI_API_URL" envDefault:"https://client.camb.ai/apis"`
	TTSAPIKey       string        `env:"CAMB_AI_API_KEY"`
	TTSVoiceID      int           `env:"CAMB_AI_VOICE_ID" envDefault:"20305"`
	TTSMaxAttempts  int           `env:"TTS_MAX_ATTEMPTS" envDefault:"30"`
	TTSPollInterval time.Duration `env:"TTS_POLL_INTERVAL" envDefault:"2s"`
	TTSOutputDir    string        `env:"TTS_OUTPUT_DIR"`
}

// LoadServer reads the server configuration from the environment, after
// loading a .env file when one exists.
func LoadServer() (*ServerConfig, error) {
	loadDotEnv()

	cfg := &ServerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *ServerConfig) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL cannot be empty")
	}
	switch c.InferenceBackend {
	case BackendHTTP:
		if c.InferenceURL == "" {
			return fmt.Errorf("INFERENCE_URL is required for the http backend")
		}
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
		}
	default:
		return fmt.Errorf("unknown INFERENCE_BACKEND %q", c.InferenceBackend)
	}
	if c.InferenceTimeout <= 0 {
		return fmt.Errorf("INFERENCE_TIMEOUT must be > 0")
	}
	return nil
}

func (c *ServerConfig) IsDebug() bool {
	return strings.EqualFold(c.LogLevel, "DEBUG")
}

// LoadClient reads the terminal client configuration.
func LoadClient() (*ClientConfig, error) {
	loadDotEnv()

	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.PrefsPath == "" {
		path, err := DefaultPrefsPath()
		if err != nil {
			return nil, err
		}
		cfg.PrefsPath = path
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("SAHAYAK_SERVER_URL cannot be empty")
	}
	if c.TTSMaxAttempts <= 0 {
		return fmt.Errorf("TTS_MAX_ATTEMPTS must be > 0")
	}
	if c.TTSPollInterval <= 0 {
		return fmt.Errorf("TTS_POLL_INTERVAL must be > 0")
	}
	if c.LocateTimeout <= 0 {
		return fmt.Errorf("LOCATE_TIMEOUT must be > 0")
	}
	return nil
}

// DefaultPrefsPath is where the client keeps its identity token and
// language preference when SAHAYAK_PREFS_PATH is not set.
func DefaultPrefsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "agri-sahayak", "prefs.yaml"), nil
}

func loadDotEnv() {
	// A missing .env is normal; the environment is authoritative.
	_ = godotenv.Load()
}
