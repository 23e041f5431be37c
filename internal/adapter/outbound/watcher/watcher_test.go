package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))

	_, err := New(Config{Dir: filepath.Join(dir, "missing")}, nil)
	assert.True(t, os.IsNotExist(err))

	_, err = New(Config{Dir: file}, nil)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func mustGlob(t *testing.T, pattern string) glob.Glob {
	t.Helper()
	g, err := glob.Compile(pattern)
	require.NoError(t, err)
	return g
}

func TestRelevant(t *testing.T) {
	w := &Watcher{match: mustGlob(t, DefaultPattern)}

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{name: "artifact write", ev: fsnotify.Event{Name: "/x/scriptdex_catalog_v2.json", Op: fsnotify.Write}, want: true},
		{name: "sqlite rename", ev: fsnotify.Event{Name: "/x/scriptdex_catalog_v2.sqlite", Op: fsnotify.Create}, want: true},
		{name: "temp file", ev: fsnotify.Event{Name: "/x/.scriptdex_catalog_v2.json.tmp-123", Op: fsnotify.Write}, want: false},
		{name: "sqlite temp", ev: fsnotify.Event{Name: "/x/scriptdex_catalog_v2.sqlite.tmp", Op: fsnotify.Create}, want: false},
		{name: "chmod only", ev: fsnotify.Event{Name: "/x/scriptdex_catalog_v2.json", Op: fsnotify.Chmod}, want: false},
		{name: "other file", ev: fsnotify.Event{Name: "/x/notes.json", Op: fsnotify.Write}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.ev))
		})
	}
}

func TestRun_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w, err := New(Config{Dir: dir, Debounce: 50 * time.Millisecond}, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	for _, name := range []string{"scriptdex_catalog_v2.json", "scriptdex_i18n_v1.json", "scriptdex_catalog_v2.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, w.Reloads())

	cancel()
	<-done
}
