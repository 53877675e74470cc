package audio

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
)

func writeTestWAV(t *testing.T, samples []float64, sampleRate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteMonoWAV(path, samples, sampleRate); err != nil {
		t.Fatalf("WriteMonoWAV failed: %v", err)
	}
	return path
}

func tone(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/8000)
	}
	return out
}

func TestConvertMonoToFloat64(t *testing.T) {
	out := convertMonoToFloat64([]int{0, 16384, -32768}, 1.0/32768.0)
	want := []float64{0, 0.5, -1}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestDownmix(t *testing.T) {
	// two stereo frames
	out := downmix([]int{16384, 0, -32768, 32768}, 2, 1.0/32768.0)
	if len(out) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(out))
	}
	if out[0] != 0.25 || out[1] != 0 {
		t.Errorf("unexpected downmix: %v", out)
	}
}

func TestConvertToMonoFloat64(t *testing.T) {
	buf := &goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: 1, SampleRate: 8000}, Data: []int{128, 255, 0}}
	out, err := convertToMonoFloat64(buf, 8)
	if err != nil {
		t.Fatalf("convertToMonoFloat64 failed: %v", err)
	}
	if out[0] != 0 || out[2] != -1 {
		t.Errorf("8-bit samples should be unsigned: %v", out)
	}

	if _, err := convertToMonoFloat64(buf, 12); !errors.Is(err, ErrUnsupportedDepth) {
		t.Errorf("Expected ErrUnsupportedDepth, got %v", err)
	}
	buf.Format.NumChannels = 0
	if _, err := convertToMonoFloat64(buf, 16); err == nil {
		t.Error("Expected error for zero channels")
	}
}

func TestReadWavAsFloat64RoundTrip(t *testing.T) {
	in := tone(8000)
	path := writeTestWAV(t, in, 8000)

	samples, sr, err := ReadWavAsFloat64(path)
	if err != nil {
		t.Fatalf("ReadWavAsFloat64 failed: %v", err)
	}
	if sr != 8000 {
		t.Errorf("sample rate = %d, want 8000", sr)
	}
	if len(samples) != len(in) {
		t.Fatalf("Expected %d samples, got %d", len(in), len(samples))
	}
	for i := 0; i < len(in); i += 97 {
		if math.Abs(samples[i]-in[i]) > 1e-3 {
			t.Fatalf("sample %d = %v, want ~%v", i, samples[i], in[i])
		}
	}
}

func TestReadWavAsFloat64NonExistent(t *testing.T) {
	if _, _, err := ReadWavAsFloat64(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	_, err := DecodeWAV(bytes.NewReader([]byte("INVALID HEADER DATA")))
	if !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("Expected ErrInvalidWAV, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want SourceKind
	}{
		{"", SourceUnknown},
		{"/music/song.mp3", SourceFile},
		{"file:///music/song.mp3", SourceFile},
		{"https://example.com/song.mp3", SourceHTTP},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", SourceYouTube},
		{"https://youtu.be/dQw4w9WgXcQ", SourceYouTube},
		{"https://music.youtube.com/watch?v=abc", SourceYouTube},
	}
	for _, tt := range tests {
		if got := Classify(tt.in); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		ct, url, want string
	}{
		{"audio/wav", "", ".wav"},
		{"audio/x-wav", "", ".wav"},
		{"audio/mpeg", "", ".mp3"},
		{`audio/mp4; codecs="mp4a.40.2"`, "", ".m4a"},
		{`audio/webm; codecs="opus"`, "", ".webm"},
		{"application/octet-stream", "https://x.test/a/b.FLAC?x=1", ".flac"},
		{"", "https://x.test/stream", ".audio"},
	}
	for _, tt := range tests {
		if got := extensionFor(tt.ct, tt.url); got != tt.want {
			t.Errorf("extensionFor(%q, %q) = %q, want %q", tt.ct, tt.url, got, tt.want)
		}
	}
}

func TestLoaderHTTP(t *testing.T) {
	path := writeTestWAV(t, tone(4000), 8000)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(data)
	}))
	defer srv.Close()

	l := NewLoader(LoaderConfig{TempDir: t.TempDir(), SampleRate: 8000}, nil)
	buf, err := l.Load(context.Background(), srv.URL+"/tone.wav")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if buf.SampleRate != 8000 {
		t.Errorf("sample rate = %d, want 8000", buf.SampleRate)
	}
	if math.Abs(buf.Duration()-0.5) > 0.01 {
		t.Errorf("duration = %v, want ~0.5s", buf.Duration())
	}
}

func TestLoaderHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	l := NewLoader(LoaderConfig{TempDir: t.TempDir()}, nil)
	if _, err := l.Load(context.Background(), srv.URL+"/missing.mp3"); err == nil {
		t.Error("Expected error for 404")
	}
	if _, err := l.Load(context.Background(), ""); !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("Expected ErrUnsupportedSource, got %v", err)
	}
	if _, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("Expected error for missing local file")
	}
}

func TestLoaderDownloadLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	l := NewLoader(LoaderConfig{TempDir: t.TempDir(), MaxDownloadBytes: 1024}, nil)
	if _, err := l.download(context.Background(), srv.URL, t.TempDir()); err == nil {
		t.Error("Expected error for oversized download")
	}
}

func TestLoaderYouTubeFallsBackToYtdlp(t *testing.T) {
	wavPath := writeTestWAV(t, tone(2000), 8000)

	l := NewLoader(LoaderConfig{TempDir: t.TempDir(), SampleRate: 8000}, nil)
	streamCalled, ytdlpCalled := false, false
	l.stream = func(ctx context.Context, rawURL, dir, id string) (string, error) {
		streamCalled = true
		return "", errors.New("signature extraction failed")
	}
	l.ytdlp = func(ctx context.Context, rawURL, dir, id string) (string, error) {
		ytdlpCalled = true
		if id != "dQw4w9WgXcQ" {
			t.Errorf("unexpected id %q", id)
		}
		return wavPath, nil
	}

	buf, err := l.Load(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !streamCalled || !ytdlpCalled {
		t.Errorf("expected both sources to be tried: stream=%v ytdlp=%v", streamCalled, ytdlpCalled)
	}
	if len(buf.Samples) == 0 {
		t.Error("expected samples")
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{"format":{"filename":"/x/song.m4a","duration":"201.5","format_name":"mov,mp4","tags":{"title":"Song","artist":"Band"}},
		"streams":[{"codec_type":"video"},{"codec_type":"audio","sample_rate":"44100","channels":2}]}`)
	meta, err := parseProbe("/x/song.m4a", out)
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}
	if meta.DurationSec != 201.5 || meta.SampleRate != 44100 || meta.Channels != 2 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Title != "Song" || meta.Artist != "Band" || meta.Filename != "song.m4a" {
		t.Errorf("unexpected tags: %+v", meta)
	}

	if _, err := parseProbe("x", []byte(`{"streams":[{"codec_type":"video"}]}`)); err == nil {
		t.Error("Expected error without audio stream")
	}
}
