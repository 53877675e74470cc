package lyryc

import (
	"os"
	"time"

	"github.com/Error0229/Lyryc-sub000/internal/clock"
	"github.com/Error0229/Lyryc-sub000/internal/dtw"
)

type Config struct {
	DBPath     string
	TempDir    string
	SampleRate int
	Logger     Logger

	Fetcher     Fetcher
	Cache       Cache
	OffsetStore OffsetStore
	AudioLoader AudioLoader
	Clock       *clock.Clock

	CacheTTL            time.Duration
	AIAlignment         bool
	ConfidenceThreshold float64
	Refiner             dtw.Config

	// used only when no Fetcher is given
	LrclibURL      string
	UserAgent      string
	FetchTimeout   time.Duration
	OverallTimeout time.Duration
	LocalLyricsDir string
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithFetcher replaces the default local + lrclib chain.
func WithFetcher(f Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

func WithCache(cache Cache) Option {
	return func(c *Config) {
		c.Cache = cache
	}
}

func WithOffsetStore(store OffsetStore) Option {
	return func(c *Config) {
		c.OffsetStore = store
	}
}

func WithAudioLoader(l AudioLoader) Option {
	return func(c *Config) {
		c.AudioLoader = l
	}
}

func WithClock(clk *clock.Clock) Option {
	return func(c *Config) {
		c.Clock = clk
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.CacheTTL = ttl
	}
}

func WithAIAlignment(enabled bool) Option {
	return func(c *Config) {
		c.AIAlignment = enabled
	}
}

func WithConfidenceThreshold(v float64) Option {
	return func(c *Config) {
		c.ConfidenceThreshold = v
	}
}

// WithDTWBand limits the warping path to a diagonal band of the given
// half-width in audio frames. Zero means the full matrix.
func WithDTWBand(band int) Option {
	return func(c *Config) {
		c.Refiner.Band = band
	}
}

func WithLrclib(baseURL, userAgent string) Option {
	return func(c *Config) {
		c.LrclibURL = baseURL
		c.UserAgent = userAgent
	}
}

func WithTimeouts(perRequest, overall time.Duration) Option {
	return func(c *Config) {
		c.FetchTimeout = perRequest
		c.OverallTimeout = overall
	}
}

func WithLocalLyricsDir(dir string) Option {
	return func(c *Config) {
		c.LocalLyricsDir = dir
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:              "lyryc.sqlite3",
		TempDir:             os.TempDir(),
		SampleRate:          11025,
		CacheTTL:            7 * 24 * time.Hour,
		ConfidenceThreshold: 0.6,
		Refiner:             dtw.DefaultConfig(),
		FetchTimeout:        10 * time.Second,
		OverallTimeout:      30 * time.Second,
	}
}
