package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is reported by the health endpoint.
const Version = "2.0.0"

// DefaultModelName is the Gemini model used when GEMINI_MODEL is unset.
const DefaultModelName = "gemini-3-flash-preview"

var defaultAllowedOrigins = []string{
	"https://finnius-ai-frontend.onrender.com",
	"https://finnius-ai-1.onrender.com",
	"https://finnius-ai.onrender.com",
}

// Config holds all process configuration. It is built once at startup and
// passed by value; nothing reads the environment after Load returns.
type Config struct {
	Server   ServerConfig
	Gemini   GeminiConfig
	Analysis AnalysisConfig
	LogLevel string
	// LogFormat is "console" or "json".
	LogFormat string
}

type ServerConfig struct {
	Port                  string
	AllowedOrigins        []string
	RateLimitPerSecond    float64
	RateLimitBurst        int
	MaxConcurrentAnalyses int
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type AnalysisConfig struct {
	MaxPDFSizeMB    int
	ImageDPI        int
	SafetyBufferPct float64
	StageTimeout    time.Duration
}

// MaxPDFBytes is the upload size cap in bytes.
func (a AnalysisConfig) MaxPDFBytes() int64 {
	return int64(a.MaxPDFSizeMB) * 1024 * 1024
}

// AIEnabled reports whether a model credential is configured.
func (c Config) AIEnabled() bool {
	return c.Gemini.APIKey != ""
}

// Default returns the configuration used when no environment is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:                  "8000",
			AllowedOrigins:        append([]string(nil), defaultAllowedOrigins...),
			RateLimitPerSecond:    5,
			RateLimitBurst:        10,
			MaxConcurrentAnalyses: 4,
		},
		Gemini: GeminiConfig{
			Model: DefaultModelName,
		},
		Analysis: AnalysisConfig{
			MaxPDFSizeMB:    20,
			ImageDPI:        150,
			SafetyBufferPct: 0.20,
			StageTimeout:    120 * time.Second,
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads a .env file when one exists, then the environment.
func Load() (Config, error) {
	// A missing .env is the normal case in production.
	if err := godotenv.Load(); err != nil {
		_ = godotenv.Load("../.env")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	d := Default()
	cfg := Config{
		Server: ServerConfig{
			Port:                  getEnv("PORT", d.Server.Port),
			AllowedOrigins:        getEnvAsList("ALLOWED_ORIGINS", d.Server.AllowedOrigins),
			RateLimitPerSecond:    getEnvAsFloat("RATE_LIMIT_PER_SECOND", d.Server.RateLimitPerSecond),
			RateLimitBurst:        getEnvAsInt("RATE_LIMIT_BURST", d.Server.RateLimitBurst),
			MaxConcurrentAnalyses: getEnvAsInt("MAX_CONCURRENT_ANALYSES", d.Server.MaxConcurrentAnalyses),
		},
		Gemini: GeminiConfig{
			APIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:  getEnv("GEMINI_MODEL", d.Gemini.Model),
		},
		Analysis: AnalysisConfig{
			MaxPDFSizeMB:    getEnvAsInt("MAX_PDF_SIZE_MB", d.Analysis.MaxPDFSizeMB),
			ImageDPI:        getEnvAsInt("IMAGE_DPI", d.Analysis.ImageDPI),
			SafetyBufferPct: getEnvAsFloat("SAFETY_BUFFER_PCT", d.Analysis.SafetyBufferPct),
			StageTimeout:    getEnvAsDuration("STAGE_TIMEOUT", d.Analysis.StageTimeout),
		},
		LogLevel:  getEnv("LOG_LEVEL", d.LogLevel),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", d.LogFormat)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Analysis.MaxPDFSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_PDF_SIZE_MB must be positive, got %d", c.Analysis.MaxPDFSizeMB))
	}
	if c.Analysis.ImageDPI <= 0 {
		errs = append(errs, fmt.Errorf("IMAGE_DPI must be positive, got %d", c.Analysis.ImageDPI))
	}
	if c.Analysis.SafetyBufferPct < 0 || c.Analysis.SafetyBufferPct >= 1 {
		errs = append(errs, fmt.Errorf("SAFETY_BUFFER_PCT must be in [0,1), got %v", c.Analysis.SafetyBufferPct))
	}
	if c.Analysis.StageTimeout <= 0 {
		errs = append(errs, errors.New("STAGE_TIMEOUT must be positive"))
	}
	if c.Server.MaxConcurrentAnalyses <= 0 {
		errs = append(errs, errors.New("MAX_CONCURRENT_ANALYSES must be positive"))
	}
	if c.Gemini.Model == "" {
		errs = append(errs, errors.New("GEMINI_MODEL must not be empty"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
