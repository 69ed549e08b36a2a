//go:build !windows

package mfind_test

import (
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BusterWarn/mfind"
)

func mkfifo(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, syscall.Mkfifo(path, 0o600), "mkfifo %s", path)
}

func Test_Search_Classifies_Fifo_As_Other_When_Matching_Any(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeDir(t, root, "pipes")
	mkfifo(t, filepath.Join(root, "pipes", "needle"))

	matches, _, err := mfind.Find(t.Context(), []string{root}, mustTarget(t, "needle", mfind.TypeAny))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, filepath.Join(root, "pipes", "needle"), matches[0].Path)
	assert.Equal(t, mfind.TypeOther, matches[0].Type)

	for _, typ := range []mfind.EntryType{mfind.TypeFile, mfind.TypeDir, mfind.TypeLink} {
		matches, _, err := mfind.Find(t.Context(), []string{root}, mustTarget(t, "needle", typ))
		require.NoError(t, err)
		assert.Empty(t, matches, "type %s", typ)
	}
}
