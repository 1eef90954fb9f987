package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	internalconfig "github.com/shafin2/skillsphere-backend/internal/config"
)

type envConfig struct {
	Env                        string        `env:"ENV" envDefault:"production"`
	HTTPAddr                   string        `env:"HTTP_ADDR" envDefault:":5000"`
	PublicBaseURL              string        `env:"PUBLIC_BASE_URL"`
	CORSAllowOrigins           string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	DatabaseURL                string        `env:"DATABASE_URL,required"`
	DatabaseMaxConns           int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	JWTAccessSecret            string        `env:"JWT_ACCESS_SECRET,required"`
	BookingTimezone            string        `env:"BOOKING_TIMEZONE" envDefault:"UTC"`
	ProviderTimeout            time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"15s"`
	StreamAPIKey               string        `env:"STREAM_API_KEY,required"`
	StreamAPISecret            string        `env:"STREAM_API_SECRET,required"`
	StreamBaseURL              string        `env:"STREAM_BASE_URL" envDefault:"https://chat.stream-io-api.com"`
	VideoAppID                 string        `env:"VIDEO_APP_ID,required"`
	VideoAppCertificate        string        `env:"VIDEO_APP_CERTIFICATE,required"`
	VideoTokenTTL              time.Duration `env:"VIDEO_TOKEN_TTL" envDefault:"1h"`
	GoogleCloudProjectID       string        `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string        `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string        `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string        `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	DefaultTranscribeLanguage  string        `env:"DEFAULT_TRANSCRIBE_LANGUAGE" envDefault:"en-US"`
	SpeechWebhookSecret        string        `env:"SPEECH_WEBHOOK_SECRET"`
	TranscriptTimezone         string        `env:"TRANSCRIPT_TIMEZONE" envDefault:"UTC"`
	TranscriptWebhookURL       string        `env:"TRANSCRIPT_WEBHOOK_URL"`
	TranscriptWebhookAttempts  int           `env:"TRANSCRIPT_WEBHOOK_ATTEMPTS" envDefault:"3"`
	GeminiAPIKey               string        `env:"GEMINI_API_KEY"`
	GeminiModel                string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	DiscordBotToken            string        `env:"DISCORD_BOT_TOKEN"`
	DiscordActivityChannelID   string        `env:"DISCORD_ACTIVITY_CHANNEL_ID"`
	OTelEndpoint               string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	} else if err == nil {
		slog.Info("loaded environment overrides from .env")
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		HTTPAddr:                   raw.HTTPAddr,
		PublicBaseURL:              raw.PublicBaseURL,
		CORSAllowOrigins:           raw.CORSAllowOrigins,
		DatabaseURL:                raw.DatabaseURL,
		DatabaseMaxConns:           raw.DatabaseMaxConns,
		JWTAccessSecret:            raw.JWTAccessSecret,
		BookingTimezone:            raw.BookingTimezone,
		ProviderTimeout:            raw.ProviderTimeout,
		StreamAPIKey:               raw.StreamAPIKey,
		StreamAPISecret:            raw.StreamAPISecret,
		StreamBaseURL:              raw.StreamBaseURL,
		VideoAppID:                 raw.VideoAppID,
		VideoAppCertificate:        raw.VideoAppCertificate,
		VideoTokenTTL:              raw.VideoTokenTTL,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		SpeechWebhookSecret:        raw.SpeechWebhookSecret,
		TranscriptTimezone:         raw.TranscriptTimezone,
		TranscriptWebhookURL:       raw.TranscriptWebhookURL,
		TranscriptWebhookAttempts:  raw.TranscriptWebhookAttempts,
		GeminiAPIKey:               raw.GeminiAPIKey,
		GeminiModel:                raw.GeminiModel,
		DiscordBotToken:            raw.DiscordBotToken,
		DiscordActivityChannelID:   raw.DiscordActivityChannelID,
		OTelEndpoint:               raw.OTelEndpoint,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
