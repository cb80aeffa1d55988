package main

import (
	"fmt"

	"go.uber.org/zap"

	"agrisahayak.in/agri-sahayak/internal/app"
	"agrisahayak.in/agri-sahayak/internal/cache"
	"agrisahayak.in/agri-sahayak/internal/client"
	"agrisahayak.in/agri-sahayak/internal/config"
	"agrisahayak.in/agri-sahayak/internal/market"
	"agrisahayak.in/agri-sahayak/internal/prefs"
	"agrisahayak.in/agri-sahayak/internal/session"
	"agrisahayak.in/agri-sahayak/internal/translate"
	"agrisahayak.in/agri-sahayak/internal/tts"
	"agrisahayak.in/agri-sahayak/internal/weather"
)

func buildApp(cfg *config.ClientConfig, logger *zap.Logger, onAudio func(string)) (*app.App, error) {
	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}

	api := client.New(cfg.ServerURL, cfg.HTTPTimeout, logger.Named("client"))
	deps := app.Deps{
		Session:       session.NewManager(api, store, logger.Named("session")),
		Cache:         cache.New(),
		Query:         api,
		Market:        market.NewClient(cfg.MarketAPIURL, cfg.HTTPTimeout, logger.Named("market")),
		Forecasts:     weather.NewClient(cfg.WeatherAPIURL, cfg.HTTPTimeout, logger.Named("weather")),
		Locator:       weather.NewIPLocator(cfg.GeoAPIURL),
		LocateTimeout: cfg.LocateTimeout,
		Translator:    translate.NewClient(cfg.TranslateAPIURL, cfg.HTTPTimeout, logger.Named("translate")),
		Prefs:         store,
		Logger:        logger,
		OnAudio:       onAudio,
	}

	if cfg.TTSAPIKey != "" {
		synth := tts.NewClient(tts.Options{
			BaseURL:      cfg.TTSAPIURL,
			APIKey:       cfg.TTSAPIKey,
			VoiceID:      cfg.TTSVoiceID,
			MaxAttempts:  cfg.TTSMaxAttempts,
			PollInterval: cfg.TTSPollInterval,
			Timeout:      cfg.HTTPTimeout,
		}, logger.Named("tts"))
		deps.Speaker = tts.NewSpeaker(synth, cfg.TTSOutputDir)
	} else {
		logger.Debug("speech disabled, CAMB_AI_API_KEY is not set")
	}

	return app.New(deps), nil
}
