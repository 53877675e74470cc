package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLocalFetch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Daft Punk - Get Lucky.lrc", "[ar:Daft Punk]\n[00:01.00]Like the legend of the phoenix\n")
	writeFile(t, dir, "Daft Punk - Get Lucky.txt", "Like the legend of the phoenix\n")
	writeFile(t, dir, "Intro.txt", "la la la\n")
	writeFile(t, dir, "Empty - Song.txt", "   \n")
	writeFile(t, dir, "cover.jpg", "not lyrics")

	l, err := NewLocal(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Len())

	data, err := l.Fetch(context.Background(), Query{Artist: "daft punk", Title: "GET LUCKY"})
	require.NoError(t, err)
	assert.True(t, data.HasSynced())
	assert.Equal(t, "local", data.Source)

	data, err = l.Fetch(context.Background(), Query{Artist: "Anyone", Title: "Intro"})
	require.NoError(t, err)
	assert.Equal(t, "la la la\n", data.PlainLyrics)
	assert.False(t, data.HasSynced())

	_, err = l.Fetch(context.Background(), Query{Artist: "Empty", Title: "Song"})
	assert.ErrorIs(t, err, ErrNoDataFound)
	_, err = l.Fetch(context.Background(), Query{Artist: "Nobody", Title: "Missing"})
	assert.ErrorIs(t, err, ErrNoDataFound)
}

func TestLocalPlainLrc(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Band - Song.lrc", "no timestamps here\n")

	l, err := NewLocal(dir, nil)
	require.NoError(t, err)
	data, err := l.Fetch(context.Background(), Query{Artist: "Band", Title: "Song"})
	require.NoError(t, err)
	assert.False(t, data.HasSynced())
	assert.True(t, data.HasPlain())
}

func TestLocalMissingDir(t *testing.T) {
	_, err := NewLocal(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestLocalWatch(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, l.Watch(ctx))
	defer l.Close()

	writeFile(t, dir, "Band - New Song.lrc", "[00:02.00]fresh\n")
	assert.Eventually(t, func() bool {
		_, err := l.Fetch(context.Background(), Query{Artist: "Band", Title: "New Song"})
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "Band - New Song.lrc")))
	assert.Eventually(t, func() bool { return l.Len() == 0 }, 2*time.Second, 20*time.Millisecond)
}
