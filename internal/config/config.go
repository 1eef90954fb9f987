package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env                        string
	HTTPAddr                   string
	PublicBaseURL              string
	CORSAllowOrigins           string
	DatabaseURL                string
	DatabaseMaxConns           int32
	JWTAccessSecret            string
	BookingTimezone            string
	ProviderTimeout            time.Duration
	StreamAPIKey               string
	StreamAPISecret            string
	StreamBaseURL              string
	VideoAppID                 string
	VideoAppCertificate        string
	VideoTokenTTL              time.Duration
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	DefaultTranscribeLanguage  string
	SpeechWebhookSecret        string
	TranscriptTimezone         string
	TranscriptWebhookURL       string
	TranscriptWebhookAttempts  int
	GeminiAPIKey               string
	GeminiModel                string
	DiscordBotToken            string
	DiscordActivityChannelID   string
	OTelEndpoint               string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout)
	}
	if c.VideoTokenTTL <= 0 {
		return fmt.Errorf("VIDEO_TOKEN_TTL must be positive, got %s", c.VideoTokenTTL)
	}
	if _, err := time.LoadLocation(c.BookingTimezone); err != nil {
		return fmt.Errorf("BOOKING_TIMEZONE is invalid: %w", err)
	}
	if _, err := time.LoadLocation(c.TranscriptTimezone); err != nil {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is invalid: %w", err)
	}
	if c.DiscordBotToken != "" && c.DiscordActivityChannelID == "" {
		return fmt.Errorf("DISCORD_ACTIVITY_CHANNEL_ID is required when DISCORD_BOT_TOKEN is set")
	}
	if c.GoogleCloudProjectID != "" && c.GoogleCloudCredentialsJSON == "" {
		return fmt.Errorf("GOOGLE_CLOUD_CREDENTIALS_JSON is required when GOOGLE_CLOUD_PROJECT_ID is set")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "JWT_ACCESS_SECRET", value: c.JWTAccessSecret},
		{name: "BOOKING_TIMEZONE", value: c.BookingTimezone},
		{name: "STREAM_API_KEY", value: c.StreamAPIKey},
		{name: "STREAM_API_SECRET", value: c.StreamAPISecret},
		{name: "VIDEO_APP_ID", value: c.VideoAppID},
		{name: "VIDEO_APP_CERTIFICATE", value: c.VideoAppCertificate},
		{name: "TRANSCRIPT_TIMEZONE", value: c.TranscriptTimezone},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// SpeechEnabled reports whether audio uploads can be sent to Cloud Speech.
func (c *Config) SpeechEnabled() bool {
	return c.GoogleCloudProjectID != ""
}

// SpeechWebhookURL is the inbound completion callback handed to the speech provider.
func (c *Config) SpeechWebhookURL() string {
	if c.PublicBaseURL == "" {
		return ""
	}
	return c.PublicBaseURL + "/api/transcripts/webhooks/speech"
}

func (c *Config) BookingLocation() *time.Location {
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) TranscriptLocation() *time.Location {
	loc, err := time.LoadLocation(c.TranscriptTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
