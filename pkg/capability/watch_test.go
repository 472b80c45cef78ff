package capability

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReducedMotion(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"reduce", true, false},
		{" Reduce\n", true, false},
		{"no-preference", false, false},
		{"", false, false},
		{"true", true, false},
		{"0", false, false},
		{"sometimes", false, true},
	}
	for _, tt := range tests {
		got, err := ParseReducedMotion(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestReadReducedMotion_Missing(t *testing.T) {
	got, err := ReadReducedMotion(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestWatchReducedMotion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "motion")
	require.NoError(t, os.WriteFile(path, []byte("no-preference"), 0o644))

	changes := make(chan bool, 4)
	stop, err := WatchReducedMotion(context.Background(), path, nil, func(v bool) { changes <- v })
	require.NoError(t, err)
	defer stop()

	// Unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other"), []byte("reduce"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("reduce"), 0o644))

	select {
	case v := <-changes:
		assert.True(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("preference change was not delivered")
	}

	stop()
	stop()

	require.NoError(t, os.WriteFile(path, []byte("no-preference"), 0o644))
	select {
	case v := <-changes:
		t.Fatalf("change %v delivered after stop", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatchReducedMotion_WriteRightAfterStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motion")
	require.NoError(t, os.WriteFile(path, []byte("no-preference"), 0o644))

	changes := make(chan bool, 1)
	stop, err := WatchReducedMotion(context.Background(), path, nil, func(v bool) { changes <- v })
	require.NoError(t, err)
	defer stop()
	require.NoError(t, os.WriteFile(path, []byte("reduce"), 0o644))

	select {
	case v := <-changes:
		assert.True(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("write made right after the watch started was lost")
	}
}

func TestWatchReducedMotion_MissingDirectory(t *testing.T) {
	_, err := WatchReducedMotion(context.Background(), filepath.Join(t.TempDir(), "nope", "motion"), nil, func(bool) {})
	assert.Error(t, err)
}
