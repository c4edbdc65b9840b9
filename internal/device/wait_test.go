package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForPath_Exists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event3")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	assert.NoError(t, WaitForPath(context.Background(), path))
}

func TestWaitForPath_Created(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event3")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, nil, 0o600)
	}()

	assert.NoError(t, WaitForPath(ctx, path))
}

func TestWaitForPath_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event3")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := WaitForPath(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForPath_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "by-id", "usb-kbd-event-kbd")

	err := WaitForPath(context.Background(), path)
	assert.Error(t, err)
}
