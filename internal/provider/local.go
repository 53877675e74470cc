package provider

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

var lrcTagRe = regexp.MustCompile(`(?m)^\s*\[\d{1,3}:\d{1,2}(?:[.:]\d{1,3})?\]`)

// Local serves lyrics from files named "Artist - Title.lrc" (or .txt)
// under a directory tree. Files named just "Title.lrc" match any artist.
type Local struct {
	dir string
	log Logger

	mu    sync.RWMutex
	index map[string]string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewLocal indexes dir. A leading "~/" is expanded.
func NewLocal(dir string, log Logger) (*Local, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, dir[2:])
	}
	if log == nil {
		log = nopLogger{}
	}
	l := &Local{dir: dir, log: log}
	if err := l.Reindex(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Local) Name() string { return "local" }

// Reindex rebuilds the filename index.
func (l *Local) Reindex() error {
	index := make(map[string]string)
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ".lrc" && ext != ".txt" {
			return nil
		}
		artist, title := splitName(strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())))
		key := NormalizeKey(artist, title)
		// .lrc wins over .txt for the same track
		if prev, ok := index[key]; ok && strings.EqualFold(filepath.Ext(prev), ".lrc") {
			return nil
		}
		index[key] = path
		return nil
	})
	if err != nil {
		return fmt.Errorf("indexing lyrics dir %s: %w", l.dir, err)
	}

	l.mu.Lock()
	l.index = index
	l.mu.Unlock()
	l.log.Debugf("indexed %d local lyrics files in %s", len(index), l.dir)
	return nil
}

// Len returns the number of indexed files.
func (l *Local) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.index)
}

func splitName(name string) (artist, title string) {
	if i := strings.Index(name, " - "); i >= 0 {
		return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+3:])
	}
	return "", strings.TrimSpace(name)
}

// Fetch implements Fetcher.
func (l *Local) Fetch(ctx context.Context, q Query) (*models.LyricsData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	path, ok := l.index[NormalizeKey(q.Artist, q.Title)]
	if !ok {
		path, ok = l.index[NormalizeKey("", q.Title)]
	}
	l.mu.RUnlock()
	if !ok {
		return nil, ErrNoDataFound
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	text := string(raw)

	data := &models.LyricsData{
		TrackName:  q.Title,
		ArtistName: q.Artist,
		Source:     "local",
	}
	if strings.EqualFold(filepath.Ext(path), ".lrc") && lrcTagRe.MatchString(text) {
		data.SyncedLyrics = text
	} else {
		data.PlainLyrics = text
	}
	if data.IsEmpty() {
		return nil, ErrNoDataFound
	}
	l.log.Debugf("local lyrics hit %s", path)
	return data, nil
}

// Watch re-indexes whenever a file under the root directory changes,
// until ctx is done or Close is called.
func (l *Local) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", l.dir, err)
	}

	l.mu.Lock()
	l.watcher = watcher
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				watcher.Close()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if err := l.Reindex(); err != nil {
					l.log.Warnf("reindex after %s failed: %v", event, err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.log.Warnf("lyrics dir watcher: %v", err)
			}
		}
	}()
	return nil
}

// Close stops the watcher started by Watch.
func (l *Local) Close() error {
	l.mu.Lock()
	w, done := l.watcher, l.done
	l.watcher = nil
	l.mu.Unlock()
	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}
