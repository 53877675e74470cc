package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Error0229/Lyryc-sub000/internal/trackname"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// Mode is the lrclib endpoint a strategy uses.
type Mode int

const (
	ModeGet Mode = iota
	ModeSearch
	ModeQuery
)

// Strategy is one attempt in the search matrix.
type Strategy struct {
	Name   string
	Mode   Mode
	Params SearchParams
	// Retries on network errors, waiting Backoff, 2*Backoff, ...
	Retries int
	Backoff time.Duration
}

// Strategies builds the ordered search matrix for q. Variants that
// collapse onto an earlier one are dropped.
func Strategies(q Query) []Strategy {
	title := strings.TrimSpace(q.Title)
	artist := strings.TrimSpace(q.Artist)
	if title == "" {
		return nil
	}

	withoutArtist := trackname.RemoveArtist(title, artist)
	cleaned := trackname.Clean(title)
	cleanedWithoutArtist := trackname.RemoveArtist(trackname.Clean(withoutArtist), artist)

	var out []Strategy
	seen := make(map[string]bool)
	add := func(s Strategy) {
		key := fmt.Sprintf("%d|%s|%s|%s", s.Mode, s.Params.Q, s.Params.TrackName, s.Params.ArtistName)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}
	field := func(name, track, artist string, retries int, backoff time.Duration) {
		if track == "" {
			return
		}
		add(Strategy{Name: name, Mode: ModeSearch, Params: SearchParams{TrackName: track, ArtistName: artist, AlbumName: q.Album}, Retries: retries, Backoff: backoff})
	}
	query := func(name, text string) {
		if text = strings.TrimSpace(text); text == "" {
			return
		}
		add(Strategy{Name: name, Mode: ModeQuery, Params: SearchParams{Q: text}, Retries: 1, Backoff: time.Second})
	}

	if artist != "" {
		add(Strategy{Name: "exact", Mode: ModeGet, Params: SearchParams{TrackName: title, ArtistName: artist, AlbumName: q.Album}, Retries: 2, Backoff: 500 * time.Millisecond})
	} else {
		field("exact", title, "", 2, 500*time.Millisecond)
	}
	if artist != "" {
		field("exact-without-artist", withoutArtist, artist, 1, 500*time.Millisecond)
	}
	field("cleaned", cleaned, artist, 1, 500*time.Millisecond)
	if artist != "" {
		field("cleaned-without-artist", cleanedWithoutArtist, artist, 1, 500*time.Millisecond)
		field("swapped", artist, title, 0, 0)
		query("wildcard", title+" "+artist)
		query("wildcard-cleaned", cleaned+" "+artist)
	}
	query("wildcard-title", title)
	return out
}

// SearcherConfig configures a Searcher.
type SearcherConfig struct {
	// Overall bounds the whole strategy matrix.
	Overall time.Duration
}

// Searcher is the lrclib Fetcher. It walks the strategy matrix in order
// and returns the first non-empty best hit.
type Searcher struct {
	client  *Client
	overall time.Duration
	log     Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewSearcher wraps client.
func NewSearcher(client *Client, cfg SearcherConfig, log Logger) *Searcher {
	if cfg.Overall == 0 {
		cfg.Overall = 30 * time.Second
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Searcher{client: client, overall: cfg.Overall, log: log, sleep: sleepCtx}
}

func (s *Searcher) Name() string { return "lrclib" }

// Fetch implements Fetcher.
func (s *Searcher) Fetch(ctx context.Context, q Query) (*models.LyricsData, error) {
	strategies := Strategies(q)
	if len(strategies) == 0 {
		return nil, fmt.Errorf("%w: empty title", ErrNoDataFound)
	}

	ctx, cancel := context.WithTimeout(ctx, s.overall)
	defer cancel()

	var lastErr error
	answered := false
	for _, st := range strategies {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			break
		}

		hits, err := s.attempt(ctx, st)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			s.log.Debugf("lrclib strategy %s failed: %v", st.Name, err)
			lastErr = err
			continue
		}
		answered = true

		best := Best(hits, q)
		if best == nil {
			continue
		}
		s.log.Infof("lyrics found with strategy %s for %q by %q", st.Name, q.Title, q.Artist)
		return best.Data(), nil
	}

	if !answered && lastErr != nil {
		return nil, lastErr
	}
	if ctx.Err() != nil && !answered {
		return nil, fmt.Errorf("%w: overall budget spent", ErrNetworkTimeout)
	}
	return nil, ErrNoDataFound
}

// attempt runs one strategy with its retries.
func (s *Searcher) attempt(ctx context.Context, st Strategy) ([]Record, error) {
	var err error
	for try := 0; try <= st.Retries; try++ {
		if try > 0 {
			wait := st.Backoff << (try - 1)
			if serr := s.sleep(ctx, wait); serr != nil {
				return nil, serr
			}
		}

		var hits []Record
		hits, err = s.run(ctx, st)
		if err == nil {
			return hits, nil
		}
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, err
}

func (s *Searcher) run(ctx context.Context, st Strategy) ([]Record, error) {
	if st.Mode == ModeGet {
		rec, err := s.client.Get(ctx, Query{Title: st.Params.TrackName, Artist: st.Params.ArtistName, Album: st.Params.AlbumName})
		if err != nil || rec == nil {
			return nil, err
		}
		return []Record{*rec}, nil
	}
	return s.client.Search(ctx, st.Params)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FetchRaw returns lrclib's best record for title/artist: the field search
// first and the free-text search when that has no hits.
func (s *Searcher) FetchRaw(ctx context.Context, title, artist string) (*models.LyricsData, error) {
	hits, err := s.client.Search(ctx, SearchParams{TrackName: title, ArtistName: artist})
	if err != nil && errors.Is(err, context.Canceled) {
		return nil, err
	}
	if len(hits) == 0 {
		hits, err = s.client.Search(ctx, SearchParams{Q: strings.TrimSpace(title + " " + artist)})
		if err != nil {
			return nil, err
		}
	}
	if len(hits) == 0 {
		return nil, ErrNoDataFound
	}

	chosen := hits[0]
	for _, h := range hits {
		if strings.TrimSpace(h.SyncedLyrics) != "" {
			chosen = h
			break
		}
	}
	return chosen.Data(), nil
}
