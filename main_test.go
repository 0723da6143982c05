package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareScratchDirOnlyCleansItsOwnDirectory(t *testing.T) {
	base := t.TempDir()
	unrelated := filepath.Join(base, "someone-elses-file")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0600))

	stale := filepath.Join(base, scratchDirName, "stale.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0700))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0600))

	dir, err := prepareScratchDir(base, slog.Default())

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, scratchDirName), dir)
	assert.DirExists(t, dir)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, unrelated)

	cleanupTmpDir(dir, slog.Default())
	assert.FileExists(t, unrelated)
}

func TestPrepareScratchDirCreatesBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "not", "yet")

	dir, err := prepareScratchDir(base, slog.Default())

	require.NoError(t, err)
	assert.DirExists(t, dir)
}
