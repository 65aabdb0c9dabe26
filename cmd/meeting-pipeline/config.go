// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/pkg/constants"
)

// flags are the command line flags for the meeting pipeline.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the meeting pipeline.
type environment struct {
	Port           string
	NatsURL        string
	RedisAddr      string
	LFXEnvironment string
	LFXAppOrigin   string
	Pipeline       pipelineConfig
	Whisper        whisperConfig
	Gemini         geminiConfig
	SlackAPIURL    string
	Google         googleConfig
}

// pipelineConfig holds the worker pool and retry settings.
type pipelineConfig struct {
	Workers                 int
	MaxAttempts             int
	InitialBackoff          time.Duration
	MaxBackoff              time.Duration
	ExternalCallTimeout     time.Duration
	NotificationConcurrency int
}

// whisperConfig holds the speech-to-text API settings.
type whisperConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// geminiConfig holds the LLM settings.
type geminiConfig struct {
	APIKey string
	Model  string
}

// googleConfig holds the OAuth client used for calendar reminders.
// Calendar reminders are disabled when ClientID is empty.
type googleConfig struct {
	ClientID     string
	ClientSecret string
}

// parseFlags parses command line flags for the meeting pipeline
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [log.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// parseEnv parses environment variables for the meeting pipeline
func parseEnv() environment {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	lfxAppOrigin := os.Getenv("LFX_APP_ORIGIN")
	if lfxAppOrigin != "" {
		if _, err := url.Parse(lfxAppOrigin); err != nil {
			slog.With(logging.ErrKey, err, "url", lfxAppOrigin).Error("invalid LFX_APP_ORIGIN provided, using environment domain")
			lfxAppOrigin = ""
		}
	}

	return environment{
		Port:           port,
		NatsURL:        natsURL,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		LFXEnvironment: normalizeLFXEnvironment(os.Getenv("LFX_ENVIRONMENT")),
		LFXAppOrigin:   lfxAppOrigin,
		Pipeline:       parsePipelineConfig(),
		Whisper: whisperConfig{
			BaseURL: os.Getenv("WHISPER_BASE_URL"),
			APIKey:  os.Getenv("WHISPER_API_KEY"),
			Model:   os.Getenv("WHISPER_MODEL"),
		},
		Gemini: geminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  os.Getenv("GEMINI_MODEL"),
		},
		SlackAPIURL: os.Getenv("SLACK_API_URL"),
		Google: googleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		},
	}
}

func normalizeLFXEnvironment(raw string) string {
	switch raw {
	case "dev", "development":
		return "dev"
	case "staging", "stg", "stage":
		return "staging"
	case "prod", "production":
		return "prod"
	default:
		return "prod" // Default to production
	}
}

// parsePipelineConfig parses the worker pool and retry settings
func parsePipelineConfig() pipelineConfig {
	return pipelineConfig{
		Workers:                 envInt("PIPELINE_WORKERS", constants.DefaultPipelineWorkers),
		MaxAttempts:             envInt("PIPELINE_MAX_ATTEMPTS", constants.DefaultPipelineMaxAttempts),
		InitialBackoff:          envDuration("PIPELINE_INITIAL_BACKOFF", constants.DefaultPipelineInitialBackoff),
		MaxBackoff:              envDuration("PIPELINE_MAX_BACKOFF", constants.DefaultPipelineMaxBackoff),
		ExternalCallTimeout:     envDuration("EXTERNAL_CALL_TIMEOUT", constants.DefaultExternalCallTimeout),
		NotificationConcurrency: envInt("NOTIFICATION_CONCURRENCY", constants.DefaultNotificationConcurrency),
	}
}

// envInt reads a positive integer, falling back to def when unset or invalid.
func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		slog.Warn("invalid integer environment variable, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return value
}

// envDuration reads a positive Go duration, falling back to def when unset or invalid.
func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		slog.Warn("invalid duration environment variable, using default", "key", key, "value", raw, "default", def.String())
		return def
	}
	return value
}
