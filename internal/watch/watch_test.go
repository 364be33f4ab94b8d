package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyOrdersBySettleTime(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"c.jpg": now.Add(-300 * time.Millisecond),
		"a.jpg": now.Add(-500 * time.Millisecond),
		"b.jpg": now.Add(-500 * time.Millisecond),
		"new":   now.Add(-10 * time.Millisecond),
	}
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, ready(pending, now, 200*time.Millisecond))
	assert.Empty(t, ready(pending, now, time.Second))
}

func TestWatcherDeliversExistingAndNewFrames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame01.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame00.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	got := make(chan string, 8)
	w := New(dir, 20*time.Millisecond)
	w.OnFrame(func(path string) error {
		got <- filepath.Base(path)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	recv := func() string {
		select {
		case name := <-got:
			return name
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for frame")
			return ""
		}
	}

	assert.Equal(t, "frame00.png", recv())
	assert.Equal(t, "frame01.png", recv())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame02.jpg"), []byte("x"), 0o644))
	assert.Equal(t, "frame02.jpg", recv())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not stop")
	}
	assert.Empty(t, got)
}

func TestWatcherReportsHandlerErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.bmp"), []byte("x"), 0o644))

	failures := make(chan string, 1)
	w := New(dir, 10*time.Millisecond)
	w.OnFrame(func(string) error { return errors.New("decode failed") })
	w.OnError(func(path string, err error) {
		failures <- filepath.Base(path) + ": " + err.Error()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	select {
	case msg := <-failures:
		assert.Equal(t, "bad.bmp: decode failed", msg)
	case <-ctx.Done():
		t.Fatalf("no error reported")
	}
}

func TestWatcherMissingDir(t *testing.T) {
	err := New(filepath.Join(t.TempDir(), "nope"), time.Millisecond).Run(context.Background())
	assert.Error(t, err)
}
