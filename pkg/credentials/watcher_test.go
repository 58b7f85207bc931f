package credentials

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exportwins/winsmi/pkg/observability"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0600))

	creds, err := LoadFile(path)
	require.NoError(t, err)
	store, err := NewStore(creds)
	require.NoError(t, err)

	w := NewWatcher(path, store, observability.NewLogger(observability.ErrorLevel, io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	<-w.Ready()

	updated := "credentials:\n  - id: rotated\n    key: new-secret\n    scopes: [data-hub]\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0600))

	assert.Eventually(t, func() bool {
		return store.HasScope("rotated", ScopeDataHub)
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, store.Len())

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_BadFileKeepsPreviousSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0600))

	creds, err := LoadFile(path)
	require.NoError(t, err)
	store, err := NewStore(creds)
	require.NoError(t, err)

	w := NewWatcher(path, store, observability.NewLogger(observability.ErrorLevel, io.Discard))
	var reloadErr error
	w.OnReload(func(err error) { reloadErr = err })

	require.NoError(t, os.WriteFile(path, []byte("credentials: ["), 0600))
	assert.Error(t, w.Reload())
	assert.Error(t, reloadErr)
	assert.Equal(t, 3, store.Len())
}
