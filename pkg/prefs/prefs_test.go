package prefs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_DefaultsToSystem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := Open(path, true, nil)
	require.NoError(t, err)
	assert.True(t, s.ReduceMotion())
	assert.False(t, s.Explicit())

	s.SetSystemDefault(false)
	assert.False(t, s.ReduceMotion())
}

func TestSetReduceMotion_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")

	s, err := Open(path, false, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetReduceMotion(true))
	assert.True(t, s.ReduceMotion())

	reopened, err := Open(path, false, nil)
	require.NoError(t, err)
	assert.True(t, reopened.ReduceMotion())
	assert.True(t, reopened.Explicit())

	// An explicit choice wins over later system changes
	reopened.SetSystemDefault(false)
	assert.True(t, reopened.ReduceMotion())
}

func TestToggleAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	s, err := Open(path, true, nil)
	require.NoError(t, err)

	v, err := s.Toggle()
	require.NoError(t, err)
	assert.False(t, v)
	assert.False(t, s.ReduceMotion())

	require.NoError(t, s.Reset())
	assert.True(t, s.ReduceMotion())
	assert.False(t, s.Explicit())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestSubscribe(t *testing.T) {
	s, err := Open("", false, nil)
	require.NoError(t, err)

	var got []bool
	unsub := s.Subscribe(func(v bool) { got = append(got, v) })

	require.NoError(t, s.SetReduceMotion(true))
	require.NoError(t, s.SetReduceMotion(true))
	s.SetSystemDefault(true)
	require.NoError(t, s.SetReduceMotion(false))
	unsub()
	require.NoError(t, s.SetReduceMotion(true))

	assert.Equal(t, []bool{true, false}, got)
}

func TestConcurrentSetters_StateMatchesStore(t *testing.T) {
	s, err := Open("", false, nil)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		last *bool
	)
	unsub := s.Subscribe(func(v bool) {
		mu.Lock()
		last = &v
		mu.Unlock()
	})
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch (i + j) % 3 {
				case 0:
					assert.NoError(t, s.SetReduceMotion(j%2 == 0))
				case 1:
					s.SetSystemDefault(j%2 == 1)
				default:
					assert.NoError(t, s.Reset())
				}
			}
		}(i)
	}
	wg.Wait()

	s.mu.Lock()
	want := s.effective()
	s.mu.Unlock()

	assert.Equal(t, want, s.ReduceMotion())
	mu.Lock()
	defer mu.Unlock()
	if last != nil {
		assert.Equal(t, want, *last, "last notification must carry the final value")
	}
}

func TestOpen_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path, false, nil)
	assert.Error(t, err)
}

func TestOpen_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := Open(path, true, nil)
	require.NoError(t, err)
	assert.True(t, s.ReduceMotion())
}

func TestWatch_ExternalEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	s, err := Open(path, false, nil)
	require.NoError(t, err)

	changed := make(chan bool, 4)
	s.Subscribe(func(v bool) { changed <- v })

	stop, err := s.Watch(context.Background())
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"reduceMotion": true}`), 0o644))

	select {
	case v := <-changed:
		assert.True(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("external edit was not picked up")
	}
	stop()
}
