package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Watcher_Run(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	watched := filepath.Join(dir, "add.okl")
	other := filepath.Join(dir, "other.okl")
	require.NoError(t, os.WriteFile(watched, []byte("v1"), 0644))
	require.NoError(t, os.WriteFile(other, []byte("v1"), 0644))

	wt, err := New([]string{watched}, 100*time.Millisecond)
	require.NoError(t, err)
	defer wt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- wt.Run(ctx, func(path string) { changes <- path })
	}()

	require.NoError(t, os.WriteFile(other, []byte("v2"), 0644))
	require.NoError(t, os.WriteFile(watched, []byte("v2"), 0644))
	require.NoError(t, os.WriteFile(watched, []byte("v3"), 0644))

	expect, err := filepath.Abs(watched)
	require.NoError(t, err)

	select {
	case p := <-changes:
		assert.Equal(expect, p)
	case <-time.After(5 * time.Second):
		assert.Fail("no change reported")
	}

	// both writes fall within one debounce period
	select {
	case p := <-changes:
		assert.Fail("unexpected second change", p)
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(err)
	case <-time.After(5 * time.Second):
		assert.Fail("Run did not return after cancel")
	}
}

func Test_New_missingDir(t *testing.T) {
	assert := assert.New(t)

	_, err := New([]string{filepath.Join(t.TempDir(), "nope", "k.okl")}, 0)
	assert.Error(err)
}
