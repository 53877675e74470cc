// Package config reads Lyryc's settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the CLI and server share.
type Config struct {
	DBPath     string
	TempDir    string
	SampleRate int

	LrclibURL      string
	UserAgent      string
	FetchTimeout   time.Duration
	OverallTimeout time.Duration
	LocalLyricsDir string

	CacheBackend  string // sqlite, redis or memory
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AIAlignment         bool
	ConfidenceThreshold float64

	HTTPPort       int
	AllowedOrigins []string

	LogLevel string
	LogFile  string

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return v
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("10s") or bare seconds ("10").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// Load reads .env (a missing file is fine; existing variables win) and
// then the environment.
func Load() *Config {
	loaded := godotenv.Load() == nil
	cfg := FromEnv()
	cfg.EnvFileLoaded = loaded
	return cfg
}

// FromEnv reads the environment only.
func FromEnv() *Config {
	return &Config{
		DBPath:     getEnv("LYRYC_DB_PATH", "lyryc.sqlite3"),
		TempDir:    getEnv("LYRYC_TEMP_DIR", os.TempDir()),
		SampleRate: getEnvInt("LYRYC_SAMPLE_RATE", 11025),

		LrclibURL:      getEnv("LYRYC_LRCLIB_URL", "https://lrclib.net/api"),
		UserAgent:      getEnv("LYRYC_USER_AGENT", "Lyryc/0.1.0"),
		FetchTimeout:   getEnvDuration("LYRYC_FETCH_TIMEOUT", 10*time.Second),
		OverallTimeout: getEnvDuration("LYRYC_OVERALL_TIMEOUT", 30*time.Second),
		LocalLyricsDir: getEnv("LYRYC_LOCAL_LYRICS_DIR", ""),

		CacheBackend:  strings.ToLower(getEnv("LYRYC_CACHE_BACKEND", "sqlite")),
		CacheTTL:      getEnvDuration("LYRYC_CACHE_TTL", 7*24*time.Hour),
		RedisAddr:     getEnv("LYRYC_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("LYRYC_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("LYRYC_REDIS_DB", 0),

		AIAlignment:         getEnvBool("LYRYC_AI_ALIGNMENT", false),
		ConfidenceThreshold: getEnvFloat("LYRYC_CONFIDENCE_THRESHOLD", 0.6),

		HTTPPort:       getEnvInt("LYRYC_HTTP_PORT", 8080),
		AllowedOrigins: getEnvList("LYRYC_ALLOWED_ORIGINS", []string{"*"}),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}
