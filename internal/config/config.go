package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nikhilbhutani/affectrelay/internal/inference"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Hume     HumeConfig
	Analysis AnalysisConfig
	TTS      TTSConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RateLimitRPS   float64
	RateLimitBurst int
}

// RedisConfig with an empty Addr disables the synthesis cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type HumeConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type AnalysisConfig struct {
	TextMode          inference.Mode
	AudioMode         inference.Mode
	PollInterval      time.Duration
	PollMaxAttempts   int
	LocalAnalyzerURL  string // required when either mode is "sync"
	LocalAnalyzerWait time.Duration
}

type TTSConfig struct {
	Backend       string // "hume", "openai" or "local"
	Fallback      string // optional second backend, same names
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	LocalBinPath  string // default: "piper"
	LocalModel    string // required when backend=local
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 5001)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cacheTTL, err := getEnvDuration("TTS_CACHE_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_CACHE_TTL: %w", err)
	}

	humeTimeout, err := getEnvDuration("HUME_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid HUME_TIMEOUT: %w", err)
	}

	textMode, err := inference.ParseMode(getEnv("ANALYSIS_TEXT_MODE", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYSIS_TEXT_MODE: %w", err)
	}

	audioMode, err := inference.ParseMode(getEnv("ANALYSIS_AUDIO_MODE", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYSIS_AUDIO_MODE: %w", err)
	}

	pollInterval, err := getEnvDuration("ANALYSIS_POLL_INTERVAL", inference.DefaultPollInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYSIS_POLL_INTERVAL: %w", err)
	}

	maxAttempts, err := getEnvInt("ANALYSIS_POLL_MAX_ATTEMPTS", inference.DefaultMaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("invalid ANALYSIS_POLL_MAX_ATTEMPTS: %w", err)
	}

	analyzerTimeout, err := getEnvDuration("LOCAL_ANALYZER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCAL_ANALYZER_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			CacheTTL: cacheTTL,
		},
		Hume: HumeConfig{
			// NEXT_PUBLIC_HUME_API_KEY is what the web frontend's .env already carries.
			APIKey:  getEnv("HUME_API_KEY", getEnv("NEXT_PUBLIC_HUME_API_KEY", "")),
			BaseURL: getEnv("HUME_BASE_URL", "https://api.hume.ai"),
			Timeout: humeTimeout,
		},
		Analysis: AnalysisConfig{
			TextMode:          textMode,
			AudioMode:         audioMode,
			PollInterval:      pollInterval,
			PollMaxAttempts:   maxAttempts,
			LocalAnalyzerURL:  strings.TrimRight(getEnv("LOCAL_ANALYZER_URL", ""), "/"),
			LocalAnalyzerWait: analyzerTimeout,
		},
		TTS: TTSConfig{
			Backend:       getEnv("TTS_BACKEND", "hume"),
			Fallback:      getEnv("TTS_FALLBACK_BACKEND", ""),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("TTS_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("TTS_OPENAI_MODEL", ""),
			LocalBinPath:  getEnv("TTS_LOCAL_PIPER_BIN", "piper"),
			LocalModel:    getEnv("TTS_LOCAL_PIPER_MODEL", ""),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// UsesHume reports whether any configured path talks to Hume.
func (c *Config) UsesHume() bool {
	return c.Analysis.TextMode == inference.ModeJob ||
		c.Analysis.AudioMode == inference.ModeJob ||
		c.TTS.Backend == "hume" || c.TTS.Fallback == "hume"
}

func (c *Config) Validate() error {
	var missing []string
	if c.UsesHume() && c.Hume.APIKey == "" {
		missing = append(missing, "HUME_API_KEY")
	}
	if (c.Analysis.TextMode == inference.ModeSync || c.Analysis.AudioMode == inference.ModeSync) && c.Analysis.LocalAnalyzerURL == "" {
		missing = append(missing, "LOCAL_ANALYZER_URL")
	}
	for _, backend := range []string{c.TTS.Backend, c.TTS.Fallback} {
		switch backend {
		case "openai":
			if c.TTS.OpenAIKey == "" {
				missing = append(missing, "OPENAI_API_KEY")
			}
		case "local":
			if c.TTS.LocalModel == "" {
				missing = append(missing, "TTS_LOCAL_PIPER_MODEL")
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	switch c.TTS.Backend {
	case "hume", "openai", "local":
	default:
		return fmt.Errorf("unknown TTS_BACKEND %q", c.TTS.Backend)
	}
	switch c.TTS.Fallback {
	case "", "hume", "openai", "local":
	default:
		return fmt.Errorf("unknown TTS_FALLBACK_BACKEND %q", c.TTS.Fallback)
	}
	if c.Analysis.PollMaxAttempts <= 0 {
		return fmt.Errorf("ANALYSIS_POLL_MAX_ATTEMPTS must be positive")
	}
	if c.Analysis.PollInterval <= 0 {
		return fmt.Errorf("ANALYSIS_POLL_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
