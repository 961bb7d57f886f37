package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextPath(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "watcher closed")
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
	}
	return ""
}

// waitFor reads events until want shows up. Write bursts may repeat a path.
func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	for {
		if nextPath(t, ch) == want {
			return
		}
	}
}

func TestWatch_InitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "old.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cache", "hidden.png"), []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events, _, err := Watch(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    20 * time.Millisecond,
	}, logger)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "old.pdf"), nextPath(t, events))

	fresh := filepath.Join(root, "scan.JPG")
	require.NoError(t, os.WriteFile(fresh, []byte("jpeg"), 0o644))
	waitFor(t, events, fresh)

	sub := filepath.Join(root, "batch")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	time.Sleep(50 * time.Millisecond)
	nested := filepath.Join(sub, "page.png")
	require.NoError(t, os.WriteFile(nested, []byte("png"), 0o644))
	waitFor(t, events, nested)

	cancel()
	for range events {
	}
}

func TestWatch_RequiresRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
