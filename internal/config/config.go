package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration. Values come from the environment
// with an optional .env file; audio constants default to the fixed capture
// format (16 kHz mono PCM16 in 1024-sample chunks).
type Config struct {
	Port           string  `mapstructure:"PORT"`
	Env            string  `mapstructure:"ENV"`
	OpenAIAPIKey   string  `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel    string  `mapstructure:"OPENAI_MODEL"`
	SpeechAPIKey   string  `mapstructure:"SPEECH_API_KEY"`
	DatabaseURL    string  `mapstructure:"DATABASE_URL"`
	MicrophoneIdx  int     `mapstructure:"MICROPHONE_INDEX"`
	SampleRate     int     `mapstructure:"SAMPLE_RATE"`
	ChunkSize      int     `mapstructure:"CHUNK_SIZE"`
	ListenTimeout  float64 `mapstructure:"LISTEN_TIMEOUT"`
	PhraseLimit    float64 `mapstructure:"PHRASE_LIMIT"`
	RecordingsDir  string  `mapstructure:"RECORDINGS_DIR"`
	OutputDir      string  `mapstructure:"OUTPUT_DIR"`
	StaticDir      string  `mapstructure:"STATIC_DIR"`
	RequestTimeout int     `mapstructure:"REQUEST_TIMEOUT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("MICROPHONE_INDEX", -1)
	v.SetDefault("SAMPLE_RATE", 16000)
	v.SetDefault("CHUNK_SIZE", 1024)
	v.SetDefault("LISTEN_TIMEOUT", 5.0)
	v.SetDefault("PHRASE_LIMIT", 10.0)
	v.SetDefault("RECORDINGS_DIR", "recordings")
	v.SetDefault("OUTPUT_DIR", "output")
	v.SetDefault("STATIC_DIR", "web")
	v.SetDefault("REQUEST_TIMEOUT", 120)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("OPENAI_MODEL")
	v.BindEnv("SPEECH_API_KEY")
	v.BindEnv("GOOGLE_API_KEY")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("MICROPHONE_INDEX")
	v.BindEnv("SAMPLE_RATE")
	v.BindEnv("CHUNK_SIZE")
	v.BindEnv("LISTEN_TIMEOUT")
	v.BindEnv("PHRASE_LIMIT")
	v.BindEnv("RECORDINGS_DIR")
	v.BindEnv("OUTPUT_DIR")
	v.BindEnv("STATIC_DIR")
	v.BindEnv("REQUEST_TIMEOUT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.SpeechAPIKey == "" {
		cfg.SpeechAPIKey = v.GetString("GOOGLE_API_KEY")
	}

	return cfg, nil
}

// HasAPIKey reports whether a usable model API key is configured. The
// placeholder value from the sample .env counts as missing.
func (c *Config) HasAPIKey() bool {
	return c.OpenAIAPIKey != "" && c.OpenAIAPIKey != "your_api_key_here"
}

// IsDev returns true when the server runs in development mode.
func (c *Config) IsDev() bool { return c.Env == "development" }

// ListenWindow returns the maximum wait for speech to start.
func (c *Config) ListenWindow() time.Duration {
	return time.Duration(c.ListenTimeout * float64(time.Second))
}

// PhraseWindow returns the per-phrase capture cap.
func (c *Config) PhraseWindow() time.Duration {
	return time.Duration(c.PhraseLimit * float64(time.Second))
}

// HTTPTimeout returns the model-call transport timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
