package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kkdai/youtube/v2"
	"github.com/lrstanley/go-ytdlp"

	"github.com/Error0229/Lyryc-sub000/pkg/utils"
)

// SourceKind classifies where audio comes from.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceFile
	SourceHTTP
	SourceYouTube
)

func (k SourceKind) String() string {
	switch k {
	case SourceFile:
		return "file"
	case SourceHTTP:
		return "http"
	case SourceYouTube:
		return "youtube"
	default:
		return "unknown"
	}
}

var ErrUnsupportedSource = errors.New("unsupported audio source")

// Classify tells a local path from an http URL and a YouTube URL.
func Classify(source string) SourceKind {
	source = strings.TrimSpace(source)
	if source == "" {
		return SourceUnknown
	}
	if strings.HasPrefix(source, "file://") {
		return SourceFile
	}
	u, err := url.Parse(source)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if utils.IsYouTubeURL(source) {
			return SourceYouTube
		}
		return SourceHTTP
	}
	return SourceFile
}

// Logger is the subset of pkg/logger the loader needs.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	TempDir          string
	SampleRate       int
	HTTPTimeout      time.Duration
	MaxDownloadBytes int64
	UserAgent        string
}

// Loader fetches audio from a source and decodes it into a mono Buffer.
type Loader struct {
	cfg    LoaderConfig
	http   *http.Client
	yt     *youtube.Client
	log    Logger
	ytdlp  func(ctx context.Context, rawURL, dir, id string) (string, error)
	stream func(ctx context.Context, rawURL, dir, id string) (string, error)
}

// NewLoader creates a Loader; zero config fields take defaults.
func NewLoader(cfg LoaderConfig, log Logger) *Loader {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 2 * time.Minute
	}
	if cfg.MaxDownloadBytes == 0 {
		cfg.MaxDownloadBytes = 200 << 20
	}
	if log == nil {
		log = nopLogger{}
	}
	l := &Loader{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.HTTPTimeout},
		yt:   &youtube.Client{},
		log:  log,
	}
	l.stream = l.downloadYouTubeStream
	l.ytdlp = downloadWithYtdlp
	return l
}

// Load resolves source, converts it to mono WAV at the configured sample
// rate and decodes it. Downloaded and converted files are removed before
// returning.
func (l *Loader) Load(ctx context.Context, source string) (*Buffer, error) {
	kind := Classify(source)
	if kind == SourceUnknown {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, source)
	}

	workDir, cleanup, err := utils.WorkDir(l.cfg.TempDir, "lyryc-audio")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// Step 1: get a local file
	var path string
	switch kind {
	case SourceFile:
		path = strings.TrimPrefix(source, "file://")
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("audio file: %w", err)
		}
	case SourceHTTP:
		path, err = l.download(ctx, source, workDir)
	case SourceYouTube:
		path, err = l.downloadYouTube(ctx, source, workDir)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 2: normalise to mono PCM and decode
	return l.decode(ctx, path, workDir)
}

func (l *Loader) decode(ctx context.Context, path, workDir string) (*Buffer, error) {
	if FFmpegAvailable() {
		wavPath, err := ConvertToMonoWAV(ctx, path, filepath.Join(workDir, "wav"), ConvertWAVConfig{SampleRate: l.cfg.SampleRate})
		if err != nil {
			return nil, err
		}
		samples, sr, err := ReadWavAsFloat64(wavPath)
		if err != nil {
			return nil, err
		}
		return &Buffer{Samples: samples, SampleRate: sr}, nil
	}

	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return nil, fmt.Errorf("%w: cannot decode %s", ErrFFmpegMissing, filepath.Ext(path))
	}
	l.log.Debugf("ffmpeg missing, decoding %s directly", filepath.Base(path))
	samples, sr, err := ReadWavAsFloat64(path)
	if err != nil {
		return nil, err
	}
	return &Buffer{Samples: samples, SampleRate: sr}, nil
}

func (l *Loader) download(ctx context.Context, rawURL, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if l.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", l.cfg.UserAgent)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading audio: unexpected status %s", resp.Status)
	}

	ext := extensionFor(resp.Header.Get("Content-Type"), rawURL)
	path := filepath.Join(dir, "download"+ext)
	n, err := copyLimited(path, resp.Body, l.cfg.MaxDownloadBytes)
	if err != nil {
		return "", err
	}
	l.log.Debugf("downloaded %s of audio from %s", humanize.Bytes(uint64(n)), rawURL)
	return path, nil
}

func (l *Loader) downloadYouTube(ctx context.Context, rawURL, dir string) (string, error) {
	id, err := utils.ExtractYouTubeID(rawURL)
	if err != nil {
		return "", err
	}

	path, err := l.stream(ctx, rawURL, dir, id)
	if err == nil {
		return path, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	l.log.Warnf("youtube stream for %s failed, falling back to yt-dlp: %v", id, err)

	return l.ytdlp(ctx, rawURL, dir, id)
}

// downloadYouTubeStream fetches the best audio-only format in process.
func (l *Loader) downloadYouTubeStream(ctx context.Context, rawURL, dir, id string) (string, error) {
	video, err := l.yt.GetVideoContext(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("youtube metadata: %w", err)
	}

	formats := video.Formats.WithAudioChannels().Select(func(f youtube.Format) bool {
		return strings.HasPrefix(f.MimeType, "audio/")
	})
	if len(formats) == 0 {
		return "", fmt.Errorf("no audio formats for video %s", id)
	}
	formats.Sort()
	format := &formats[0]

	stream, _, err := l.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("youtube stream: %w", err)
	}
	defer stream.Close()

	path := filepath.Join(dir, id+extensionFor(format.MimeType, ""))
	n, err := copyLimited(path, stream, l.cfg.MaxDownloadBytes)
	if err != nil {
		return "", err
	}
	l.log.Debugf("streamed %s of audio for %s (itag %d)", humanize.Bytes(uint64(n)), id, format.ItagNo)
	return path, nil
}

// downloadWithYtdlp shells out to yt-dlp for the best audio stream.
func downloadWithYtdlp(ctx context.Context, rawURL, dir, id string) (string, error) {
	tmpl := filepath.Join(dir, id+".%(ext)s")
	_, err := ytdlp.New().
		Format("ba").
		NoPlaylist().
		NoWarnings().
		Output(tmpl).
		Run(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp download failed: %w", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, id+".*"))
	if len(matches) == 0 {
		return "", fmt.Errorf("downloaded audio file not found for video %s", id)
	}
	return matches[0], nil
}

func copyLimited(path string, r io.Reader, limit int64) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if n > limit {
		return n, fmt.Errorf("audio larger than %s", humanize.Bytes(uint64(limit)))
	}
	return n, nil
}

func extensionFor(contentType, rawURL string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return ".mp3"
	case strings.Contains(ct, "mp4"), strings.Contains(ct, "m4a"):
		return ".m4a"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "ogg"), strings.Contains(ct, "opus"):
		return ".ogg"
	case strings.Contains(ct, "flac"):
		return ".flac"
	}
	if u, err := url.Parse(rawURL); err == nil {
		if ext := filepath.Ext(u.Path); ext != "" && len(ext) <= 5 {
			return strings.ToLower(ext)
		}
	}
	return ".audio"
}
