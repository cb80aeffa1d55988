package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	unsetEnv(t, "INFERENCE_BACKEND", "HTTP_PORT", "INFERENCE_URL", "INFERENCE_TIMEOUT", "CORS_ALLOWED_ORIGINS", "SEED_ADMIN")

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, BackendHTTP, cfg.InferenceBackend)
	assert.Equal(t, 60*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.True(t, cfg.SeedAdmin)
}

func TestLoadServerGeminiRequiresKey(t *testing.T) {
	t.Setenv("INFERENCE_BACKEND", "gemini")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestServerValidate(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		cfg := &ServerConfig{HTTPPort: "1", DatabaseURL: "x", InferenceBackend: "grpc", InferenceTimeout: time.Second}
		assert.Error(t, cfg.Validate())
	})

	t.Run("http backend without url", func(t *testing.T) {
		cfg := &ServerConfig{HTTPPort: "1", DatabaseURL: "x", InferenceBackend: BackendHTTP, InferenceTimeout: time.Second}
		assert.Error(t, cfg.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		cfg := &ServerConfig{HTTPPort: "1", DatabaseURL: "x", InferenceBackend: BackendHTTP, InferenceURL: "http://x", InferenceTimeout: time.Second}
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadClient(t *testing.T) {
	t.Setenv("SAHAYAK_PREFS_PATH", "/tmp/prefs.yaml")
	t.Setenv("TTS_MAX_ATTEMPTS", "5")
	t.Setenv("TTS_POLL_INTERVAL", "10ms")
	unsetEnv(t, "CAMB_AI_VOICE_ID", "LOCATE_TIMEOUT")

	cfg, err := LoadClient()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/prefs.yaml", cfg.PrefsPath)
	assert.Equal(t, 5, cfg.TTSMaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.TTSPollInterval)
	assert.Equal(t, 20305, cfg.TTSVoiceID)
	assert.Equal(t, 10*time.Second, cfg.LocateTimeout)
}

func TestLoadClientRejectsZeroAttempts(t *testing.T) {
	t.Setenv("SAHAYAK_PREFS_PATH", "/tmp/prefs.yaml")
	t.Setenv("TTS_MAX_ATTEMPTS", "0")

	_, err := LoadClient()
	assert.Error(t, err)
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
