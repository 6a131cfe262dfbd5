// ABOUTME: Runtime configuration for the pipeline, scheduler and integrations
// ABOUTME: Loads optional .env files, then environment variables over defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// AppName is the directory name used under the XDG data home.
const AppName = "introengine"

type Config struct {
	DBPath   string
	CacheDir string
	LogMode  string
	// UserID pins the local account the CLI and MCP server act for.
	UserID string

	// ICPMinScore excludes companies below it from path discovery and outbound.
	ICPMinScore int
	// OutboundQuota caps new outbound opportunities per account per run.
	OutboundQuota     int
	FollowUpAfterDays int
	Parallelism       int

	CompletionTimeout time.Duration
	EnrichmentTimeout time.Duration
	// CompletionRPS bounds follow-up drafting calls per second across a run.
	CompletionRPS float64

	ScheduleInterval time.Duration
	FollowUpInterval time.Duration
	LockTTL          time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	EnrichmentURL      string
	EnrichmentCacheTTL time.Duration

	// Tracing is off unless OTEL_ENABLED is set.
	TraceEnabled     bool
	TraceEndpoint    string
	TraceInsecure    bool
	TraceSampleRatio float64
}

// Default returns a config with sensible defaults.
func Default() *Config {
	dataDir := filepath.Join(xdg.DataHome, AppName)
	return &Config{
		DBPath:             filepath.Join(dataDir, "introengine.db"),
		CacheDir:           filepath.Join(dataDir, "enrichment-cache"),
		LogMode:            "dev",
		ICPMinScore:        20,
		OutboundQuota:      10,
		FollowUpAfterDays:  7,
		Parallelism:        8,
		CompletionTimeout:  30 * time.Second,
		EnrichmentTimeout:  10 * time.Second,
		CompletionRPS:      2,
		ScheduleInterval:   6 * time.Hour,
		FollowUpInterval:   24 * time.Hour,
		LockTTL:            30 * time.Minute,
		OpenAIBaseURL:      "https://api.openai.com",
		OpenAIModel:        "gpt-4o-mini",
		EnrichmentCacheTTL: 7 * 24 * time.Hour,
	}
}

// Load reads the given .env files (missing files are skipped; existing
// environment variables win) and applies INTROENGINE_* overrides.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()
	cfg.DBPath = envString("INTROENGINE_DB_PATH", cfg.DBPath)
	cfg.CacheDir = envString("INTROENGINE_CACHE_DIR", cfg.CacheDir)
	cfg.LogMode = envString("LOG_MODE", cfg.LogMode)
	cfg.UserID = envString("INTROENGINE_USER_ID", cfg.UserID)
	cfg.ICPMinScore = envInt("INTROENGINE_ICP_MIN_SCORE", cfg.ICPMinScore)
	cfg.OutboundQuota = envInt("INTROENGINE_OUTBOUND_QUOTA", cfg.OutboundQuota)
	cfg.FollowUpAfterDays = envInt("INTROENGINE_FOLLOWUP_AFTER_DAYS", cfg.FollowUpAfterDays)
	cfg.Parallelism = envInt("INTROENGINE_PARALLELISM", cfg.Parallelism)
	cfg.CompletionTimeout = envDuration("INTROENGINE_COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	cfg.EnrichmentTimeout = envDuration("INTROENGINE_ENRICHMENT_TIMEOUT", cfg.EnrichmentTimeout)
	cfg.CompletionRPS = envFloat("INTROENGINE_COMPLETION_RPS", cfg.CompletionRPS)
	cfg.ScheduleInterval = envDuration("INTROENGINE_SCHEDULE_INTERVAL", cfg.ScheduleInterval)
	cfg.FollowUpInterval = envDuration("INTROENGINE_FOLLOWUP_INTERVAL", cfg.FollowUpInterval)
	cfg.LockTTL = envDuration("INTROENGINE_LOCK_TTL", cfg.LockTTL)
	cfg.RedisAddr = envString("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envString("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envInt("REDIS_DB", cfg.RedisDB)
	cfg.OpenAIAPIKey = envString("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = strings.TrimRight(envString("OPENAI_BASE_URL", cfg.OpenAIBaseURL), "/")
	cfg.OpenAIModel = envString("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.EnrichmentURL = strings.TrimRight(envString("ENRICHMENT_URL", cfg.EnrichmentURL), "/")
	cfg.EnrichmentCacheTTL = envDuration("INTROENGINE_ENRICHMENT_CACHE_TTL", cfg.EnrichmentCacheTTL)
	cfg.TraceEnabled = envBool("OTEL_ENABLED", cfg.TraceEnabled)
	cfg.TraceEndpoint = envString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.TraceEndpoint)
	cfg.TraceInsecure = envBool("OTEL_EXPORTER_OTLP_INSECURE", cfg.TraceInsecure)
	cfg.TraceSampleRatio = envFloat("OTEL_SAMPLER_RATIO", cfg.TraceSampleRatio)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engines cannot run with.
func (c *Config) Validate() error {
	if c.ICPMinScore < 0 || c.ICPMinScore > 100 {
		return fmt.Errorf("ICP min score must be within 0..100, got %d", c.ICPMinScore)
	}
	if c.OutboundQuota < 0 {
		return fmt.Errorf("outbound quota cannot be negative, got %d", c.OutboundQuota)
	}
	if c.FollowUpAfterDays < 1 {
		return fmt.Errorf("follow-up delay must be at least 1 day, got %d", c.FollowUpAfterDays)
	}
	if c.Parallelism < 1 {
		c.Parallelism = 1
	}
	if c.UserID != "" {
		if _, err := uuid.Parse(c.UserID); err != nil {
			return fmt.Errorf("INTROENGINE_USER_ID must be a UUID: %w", err)
		}
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("trace sample ratio must be within 0..1, got %v", c.TraceSampleRatio)
	}
	if c.CompletionRPS <= 0 {
		return fmt.Errorf("completion rate must be positive, got %v", c.CompletionRPS)
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
