package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

const (
	DefaultBaseURL   = "https://lrclib.net/api"
	DefaultUserAgent = "Lyryc/0.1.0"
)

// Record is one lrclib track entry.
type Record struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Data converts the record into the payload the rest of the module uses.
func (r Record) Data() *models.LyricsData {
	return &models.LyricsData{
		TrackName:    r.TrackName,
		ArtistName:   r.ArtistName,
		AlbumName:    r.AlbumName,
		DurationSec:  r.Duration,
		Instrumental: r.Instrumental,
		PlainLyrics:  r.PlainLyrics,
		SyncedLyrics: r.SyncedLyrics,
		Source:       "lrclib",
	}
}

// SearchParams selects lrclib's search mode: Q for free text, otherwise
// the field search on TrackName/ArtistName/AlbumName.
type SearchParams struct {
	Q          string
	TrackName  string
	ArtistName string
	AlbumName  string
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	if p.Q != "" {
		v.Set("q", p.Q)
		return v
	}
	v.Set("track_name", p.TrackName)
	if p.ArtistName != "" {
		v.Set("artist_name", p.ArtistName)
	}
	if p.AlbumName != "" {
		v.Set("album_name", p.AlbumName)
	}
	return v
}

// statusError is a non-2xx, non-404 response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("lrclib returned status %d", e.code)
}

func (e *statusError) Unwrap() error { return ErrNetwork }

// ClientConfig configures an lrclib Client.
type ClientConfig struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds a single request.
	Timeout time.Duration
}

// Client talks to the lrclib HTTP API.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	http      *http.Client
}

// NewClient creates a Client; zero config fields take defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		http:      &http.Client{},
	}
}

// Search runs /search. No hits is an empty slice, not an error.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]Record, error) {
	var out []Record
	found, err := c.get(ctx, "/search", p.values(), &out)
	if err != nil || !found {
		return nil, err
	}
	return out, nil
}

// Get runs /get, lrclib's exact lookup. A 404 returns (nil, nil).
func (c *Client) Get(ctx context.Context, q Query) (*Record, error) {
	v := url.Values{}
	v.Set("track_name", q.Title)
	v.Set("artist_name", q.Artist)
	if q.Album != "" {
		v.Set("album_name", q.Album)
	}
	if q.DurationSec > 0 {
		v.Set("duration", strconv.Itoa(int(q.DurationSec+0.5)))
	}

	var rec Record
	found, err := c.get(ctx, "/get", v, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("creating lrclib request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, &statusError{code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return false, classifyTransport(ctx, err)
		}
		return false, fmt.Errorf("decoding lrclib response: %w", err)
	}
	return true, nil
}

// classifyTransport maps a failed round trip onto the error taxonomy.
// Cancellation of the caller's context is passed through untouched.
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrNetworkTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return errors.Is(err, ErrNetwork)
}
