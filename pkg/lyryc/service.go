// Package lyryc loads lyrics for the track that is playing, times them
// line by line and word by word, and keeps a playback clock in step with
// the player that reports the position.
package lyryc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Error0229/Lyryc-sub000/internal/align"
	"github.com/Error0229/Lyryc-sub000/internal/audio"
	"github.com/Error0229/Lyryc-sub000/internal/dtw"
	"github.com/Error0229/Lyryc-sub000/internal/features"
	"github.com/Error0229/Lyryc-sub000/internal/lang"
	"github.com/Error0229/Lyryc-sub000/internal/lrc"
	"github.com/Error0229/Lyryc-sub000/internal/offset"
	"github.com/Error0229/Lyryc-sub000/internal/provider"
	"github.com/Error0229/Lyryc-sub000/internal/storage"
	"github.com/Error0229/Lyryc-sub000/pkg/logger"
	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// Service runs the lyrics pipeline: cache, fetch, parse or align, optional
// audio refinement, word timing and language post-processing.
type Service struct {
	cfg     *Config
	log     Logger
	fetcher Fetcher
	raw     RawFetcher
	cache   Cache
	offsets *offset.Model
	loader  AudioLoader
	refiner *dtw.Refiner
	local   *provider.Local
	closers []io.Closer
	now     func() time.Time

	seq      atomic.Uint64
	mu       sync.Mutex
	inflight map[uint64]context.CancelFunc
	latest   *Result
}

// NewService builds a Service. Missing collaborators get defaults: a
// SQLite database at DBPath for the cache and offsets, a local directory
// (when configured) chained before lrclib, and the ffmpeg audio loader.
func NewService(opts ...Option) (*Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	s := &Service{
		cfg:      cfg,
		log:      cfg.Logger,
		now:      time.Now,
		inflight: make(map[uint64]context.CancelFunc),
		refiner:  dtw.NewRefiner(cfg.Refiner),
	}

	if cfg.Cache == nil || cfg.OffsetStore == nil {
		db, err := storage.NewDBClientWithPath(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.closers = append(s.closers, db)
		if cfg.Cache == nil {
			cfg.Cache = db
		}
		if cfg.OffsetStore == nil {
			cfg.OffsetStore = db
		}
	}
	s.cache = cfg.Cache
	s.offsets = offset.NewModel(cfg.OffsetStore)

	if cfg.Fetcher == nil {
		chain, err := s.defaultFetcher()
		if err != nil {
			s.Close()
			return nil, err
		}
		cfg.Fetcher = chain
	}
	s.fetcher = cfg.Fetcher
	if raw, ok := cfg.Fetcher.(RawFetcher); ok {
		s.raw = raw
	}

	if cfg.AudioLoader == nil {
		cfg.AudioLoader = audio.NewLoader(audio.LoaderConfig{
			TempDir:    cfg.TempDir,
			SampleRate: cfg.SampleRate,
			UserAgent:  cfg.UserAgent,
		}, cfg.Logger)
	}
	s.loader = cfg.AudioLoader

	return s, nil
}

func (s *Service) defaultFetcher() (Fetcher, error) {
	client := provider.NewClient(provider.ClientConfig{
		BaseURL:   s.cfg.LrclibURL,
		UserAgent: s.cfg.UserAgent,
		Timeout:   s.cfg.FetchTimeout,
	})
	searcher := provider.NewSearcher(client, provider.SearcherConfig{Overall: s.cfg.OverallTimeout}, s.log)
	s.raw = searcher

	if s.cfg.LocalLyricsDir == "" {
		return searcher, nil
	}
	local, err := provider.NewLocal(s.cfg.LocalLyricsDir, s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to index local lyrics: %w", err)
	}
	if err := local.Watch(context.Background()); err != nil {
		s.log.Warnf("Not watching %s for changes: %v", s.cfg.LocalLyricsDir, err)
	}
	s.local = local
	s.closers = append(s.closers, local)
	return provider.Chain{local, searcher}, nil
}

// Offsets exposes the manual offset model.
func (s *Service) Offsets() *offset.Model {
	return s.offsets
}

// ProcessTrackLyrics runs the whole pipeline for one track. A track with
// no lyrics anywhere is an empty Result, not an error. A cancelled ctx
// yields an error wrapping ErrCancelled.
func (s *Service) ProcessTrackLyrics(ctx context.Context, req Request) (*Result, error) {
	started := s.now()
	req.Title = strings.TrimSpace(req.Title)
	req.Artist = strings.TrimSpace(req.Artist)
	if req.Title == "" {
		return nil, fmt.Errorf("%w: empty title", ErrNoDataFound)
	}

	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	// 1. raw payload
	data, err := s.lyricsData(ctx, req)
	if err != nil {
		if errors.Is(err, ErrNoDataFound) {
			s.log.Infof("No lyrics found for %q by %q", req.Title, req.Artist)
			return s.finish(&Result{Lyrics: []models.LyricLine{}, Method: MethodFallback, Track: req}, started), nil
		}
		return nil, err
	}
	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	// 2. parse or align
	res := &Result{Track: req, Source: data.Source}
	var reference []models.AlignedLine
	var synced []models.LyricLine
	if data.HasSynced() {
		synced = lrc.Parse(data.SyncedLyrics)
	}
	switch {
	case len(synced) > 0:
		res.Lyrics = synced
		res.Method = MethodOriginal
		res.Confidence = OriginalConfidence
		reference = models.ToAligned(res.Lyrics)
	case data.HasPlain():
		total := s.plainDuration(ctx, req, data)
		aligned, err := align.AlignPlainText(data.PlainLyrics, align.DefaultOptions(total))
		if err != nil {
			return nil, fmt.Errorf("aligning plain lyrics: %w", err)
		}
		res.Lyrics = models.FromAligned(aligned)
		res.Method = MethodFallback
		res.Confidence = FallbackConfidence
	default:
		res.Lyrics = []models.LyricLine{}
		res.Method = MethodFallback
		return s.finish(res, started), nil
	}

	var text strings.Builder
	for _, l := range res.Lyrics {
		text.WriteString(l.Text)
		text.WriteByte('\n')
	}
	res.Language = lang.Detect(text.String(), req.Title, req.Artist)

	// 3. refinement
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	if s.cfg.AIAlignment && req.AudioURL != "" {
		refined, err := s.refine(ctx, req.AudioURL, res.Lyrics, res.Language, reference)
		switch {
		case err == nil:
			if refined.Confidence >= s.cfg.ConfidenceThreshold {
				res.Lyrics = refined.Lines
				res.Method = MethodAIAligned
				res.Confidence = refined.Confidence
			} else {
				s.log.Debugf("Refinement confidence %.2f below %.2f, keeping %s timings", refined.Confidence, s.cfg.ConfidenceThreshold, res.Method)
			}
		case ctx.Err() != nil:
			return nil, cancelled(ctx)
		default:
			s.log.Warnf("Refinement unavailable for %q: %v", req.Title, err)
		}
	}

	// 4. word timings
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	for i := range res.Lyrics {
		line := &res.Lyrics[i]
		if line.HasWords() {
			align.CloseOpenWords(line)
			continue
		}
		line.Words = align.GenerateWordTimings(*line)
	}

	// 5. language rules
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	lang.PostProcess(res.Lyrics, res.Language)

	return s.finish(res, started), nil
}

func (s *Service) finish(res *Result, started time.Time) *Result {
	for _, l := range res.Lyrics {
		if l.HasWords() {
			res.HasWordTimings = true
			break
		}
	}
	res.ProcessingTime = s.now().Sub(started)
	return res
}

// lyricsData reads the cache, then the fetcher, caching what it finds.
func (s *Service) lyricsData(ctx context.Context, req Request) (*models.LyricsData, error) {
	key := provider.NormalizeKey(req.Artist, req.Title)

	data, err := s.cache.GetLyrics(ctx, key)
	switch {
	case err == nil:
		s.log.Debugf("Cache hit for %s", key)
		return data, nil
	case !errors.Is(err, storage.ErrNotFound):
		s.log.Warnf("Cache read failed for %s: %v", key, err)
	}

	data, err = s.fetcher.Fetch(ctx, req.query())
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return nil, err
	}
	if data == nil || (data.IsEmpty() && !data.Instrumental) {
		return nil, ErrNoDataFound
	}

	if err := s.cache.SetLyrics(ctx, key, data, s.cfg.CacheTTL); err != nil {
		s.log.Warnf("Cache write failed for %s: %v", key, err)
	}
	return data, nil
}

// plainDuration picks the total to spread plain lyrics over: the caller's
// duration, the payload's, a probe of a local audio file, or a per-line
// estimate.
func (s *Service) plainDuration(ctx context.Context, req Request, data *models.LyricsData) float64 {
	if req.DurationSec > 0 {
		return req.DurationSec
	}
	if data.DurationSec > 0 {
		return data.DurationSec
	}
	if req.AudioURL != "" && audio.Classify(req.AudioURL) == audio.SourceFile {
		if meta, err := audio.Probe(ctx, strings.TrimPrefix(req.AudioURL, "file://")); err == nil && meta.DurationSec > 0 {
			return meta.DurationSec
		}
	}
	return PlainLineSeconds * float64(len(align.SplitLines(data.PlainLyrics)))
}

func (s *Service) refine(ctx context.Context, source string, lines []models.LyricLine, language string, reference []models.AlignedLine) (*dtw.Result, error) {
	buf, err := s.loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: loading audio: %w", ErrRefinementUnavailable, err)
	}
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	feats, err := features.Extract(ctx, buf.Samples, buf.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: extracting features: %w", ErrRefinementUnavailable, err)
	}
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	return s.refiner.Refine(ctx, feats, lines, language, reference)
}

// Submit runs ProcessTrackLyrics as the newest request. Any request still
// in flight is cancelled, and a request that finishes after a newer one
// has started is discarded with ErrCancelled, so Latest only ever moves
// forward.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	id := s.seq.Add(1)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	for prev, c := range s.inflight {
		c()
		delete(s.inflight, prev)
	}
	s.inflight[id] = cancel
	s.mu.Unlock()

	res, err := s.ProcessTrackLyrics(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
	if id != s.seq.Load() {
		s.log.Debugf("Request %d for %q superseded", id, req.Title)
		return nil, fmt.Errorf("%w: superseded", ErrCancelled)
	}
	if err != nil {
		return nil, err
	}
	res.RequestID = id
	s.latest = res
	return res.clone(), nil
}

// Latest returns a copy of the last result accepted by Submit.
func (s *Service) Latest() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest.clone()
}

// FetchRaw returns the raw record for a title and artist without any
// processing. Fetchers without a raw mode fall back to a normal fetch.
func (s *Service) FetchRaw(ctx context.Context, title, artist string) (*models.LyricsData, error) {
	if s.raw != nil {
		return s.raw.FetchRaw(ctx, title, artist)
	}
	return s.fetcher.Fetch(ctx, Query{Title: title, Artist: artist})
}

// Close cancels in-flight requests and releases owned resources.
func (s *Service) Close() error {
	s.mu.Lock()
	for id, c := range s.inflight {
		c()
		delete(s.inflight, id)
	}
	s.mu.Unlock()

	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
