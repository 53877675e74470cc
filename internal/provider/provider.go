// Package provider fetches raw lyrics for a track from lrclib and from a
// local directory of .lrc/.txt files.
package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

var (
	// ErrNoDataFound means every strategy ran and none produced lyrics.
	ErrNoDataFound = errors.New("no lyrics found")
	// ErrNetwork is a transport or server failure that survived retries.
	ErrNetwork = errors.New("lyrics network error")
	// ErrNetworkTimeout is ErrNetwork caused by a deadline.
	ErrNetworkTimeout = fmt.Errorf("%w: timeout", ErrNetwork)
)

// Query identifies the track to fetch lyrics for.
type Query struct {
	Title       string
	Artist      string
	Album       string
	DurationSec float64
}

// Fetcher returns the raw lyrics payload for a track. A nil error with
// an empty payload is a valid "nothing to show" outcome (instrumental).
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (*models.LyricsData, error)
	Name() string
}

// Logger is the subset of pkg/logger used here.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}

// Chain asks each fetcher in turn and returns the first hit. Fetchers
// that report ErrNoDataFound are skipped; the last other error is kept.
type Chain []Fetcher

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, f := range c {
		names[i] = f.Name()
	}
	return strings.Join(names, "+")
}

func (c Chain) Fetch(ctx context.Context, q Query) (*models.LyricsData, error) {
	var lastErr error
	for _, f := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := f.Fetch(ctx, q)
		if err == nil {
			if data == nil {
				data = &models.LyricsData{}
			}
			if data.Source == "" {
				data.Source = f.Name()
			}
			return data, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		if !errors.Is(err, ErrNoDataFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoDataFound
}

var (
	fold       = cases.Fold()
	keyNoiseRe = regexp.MustCompile(`\s*[\(\[](?:feat|ft|featuring)\.?\s[^\)\]]*[\)\]]`)
	keyPunctRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	keySpaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeKey builds the cache key for an (artist, title) pair: case
// folded, featuring credits and punctuation dropped, spaces collapsed.
func NormalizeKey(artist, title string) string {
	return normalizePart(artist) + "|" + normalizePart(title)
}

func normalizePart(s string) string {
	s = fold.String(s)
	s = keyNoiseRe.ReplaceAllString(s, "")
	s = keyPunctRe.ReplaceAllString(s, " ")
	s = keySpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
