package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Port string

	OpenAIAPIKey          string
	OpenAIModelTranscribe string
	OpenAIModelExtract    string

	LinearAPIKey            string
	LinearTeamID            string
	LinearDefaultAssigneeID string

	CodaAPIToken string
	CodaDocID    string
	CodaTableID  string

	BaseURL     string
	ShareSecret string
	ShareTTL    time.Duration

	DataDir        string
	MaxUploadBytes int64

	MinAudioBytes      int64
	SessionTTL         time.Duration
	TranscribeFallback bool
}

func LoadConfig() (Config, error) {
	cfg := Config{}

	cfg.Port = envOrDefault("PORT", "8080")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModelTranscribe = envOrDefault("OPENAI_MODEL_TRANSCRIBE", "whisper-1")
	cfg.OpenAIModelExtract = envOrDefault("OPENAI_MODEL_EXTRACT", "gpt-4o-mini")

	cfg.LinearAPIKey = os.Getenv("LINEAR_API_KEY")
	cfg.LinearTeamID = os.Getenv("LINEAR_TEAM_ID")
	cfg.LinearDefaultAssigneeID = os.Getenv("LINEAR_DEFAULT_ASSIGNEE_ID")

	cfg.CodaAPIToken = os.Getenv("CODA_API_TOKEN")
	cfg.CodaDocID = os.Getenv("CODA_DOC_ID")
	cfg.CodaTableID = os.Getenv("CODA_TABLE_ID")

	cfg.BaseURL = envOrDefault("BASE_URL", fmt.Sprintf("http://localhost:%s", cfg.Port))
	cfg.ShareSecret = envOrDefault("SHARE_SECRET", "change-me")
	cfg.DataDir = envOrDefault("DATA_DIR", "data")

	shareTTLSeconds, err := parseIntEnv("SHARE_TTL_SECONDS", 86400)
	if err != nil {
		return Config{}, fmt.Errorf("parse SHARE_TTL_SECONDS: %w", err)
	}
	cfg.ShareTTL = time.Duration(shareTTLSeconds) * time.Second

	maxUploadMB, err := parseIntEnv("MAX_UPLOAD_MB", 50)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_UPLOAD_MB: %w", err)
	}
	cfg.MaxUploadBytes = maxUploadMB * 1024 * 1024

	minAudioBytes, err := parseIntEnv("MIN_AUDIO_BYTES", 1000)
	if err != nil {
		return Config{}, fmt.Errorf("parse MIN_AUDIO_BYTES: %w", err)
	}
	cfg.MinAudioBytes = minAudioBytes

	sessionTTLMinutes, err := parseIntEnv("SESSION_TTL_MINUTES", 60)
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL_MINUTES: %w", err)
	}
	cfg.SessionTTL = time.Duration(sessionTTLMinutes) * time.Minute

	cfg.TranscribeFallback = envOrDefault("TRANSCRIBE_FALLBACK", "true") != "false"

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

// RequireTranscription checks the credentials the realtime pipeline needs
// before any outbound call is attempted.
func (c Config) RequireTranscription() error {
	if c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is not configured")
	}
	return nil
}

func (c Config) RequireLinear() error {
	if c.LinearAPIKey == "" {
		return errors.New("LINEAR_API_KEY is not configured")
	}
	if c.LinearTeamID == "" {
		return errors.New("LINEAR_TEAM_ID is not configured")
	}
	return nil
}

func (c Config) RequireCoda() error {
	if c.CodaAPIToken == "" {
		return errors.New("CODA_API_TOKEN is not configured")
	}
	if c.CodaDocID == "" {
		return errors.New("CODA_DOC_ID is not configured")
	}
	if c.CodaTableID == "" {
		return errors.New("CODA_TABLE_ID is not configured")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int64) (int64, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}
