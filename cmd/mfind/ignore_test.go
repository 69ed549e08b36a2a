package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BusterWarn/mfind"
)

func Test_NewExcluder_Returns_Nil_When_No_Pattern_Is_Given(t *testing.T) {
	t.Parallel()

	ex, err := newExcluder([]string{"/src"}, nil, "")
	require.NoError(t, err)
	assert.Nil(t, ex)
}

func Test_Excluder_Matches_Relative_To_Closest_Root_When_Roots_Nest(t *testing.T) {
	t.Parallel()

	outer := filepath.Join("/", "src")
	inner := filepath.Join(outer, "vendor")

	ex, err := newExcluder([]string{outer, inner + string(filepath.Separator)}, []string{"/lib", "*.tmp", "out/"}, "")
	require.NoError(t, err)
	require.NotNil(t, ex)

	tests := []struct {
		path string
		typ  mfind.EntryType
		want bool
	}{
		// "/lib" is anchored to whichever root contains the entry.
		{path: filepath.Join(outer, "lib"), typ: mfind.TypeDir, want: true},
		{path: filepath.Join(inner, "lib"), typ: mfind.TypeDir, want: true},
		{path: filepath.Join(outer, "pkg", "lib"), typ: mfind.TypeDir, want: false},
		{path: filepath.Join(outer, "a", "b.tmp"), typ: mfind.TypeFile, want: true},
		{path: filepath.Join(outer, "a", "b.go"), typ: mfind.TypeFile, want: false},
		// Directory-only pattern.
		{path: filepath.Join(outer, "x", "out"), typ: mfind.TypeDir, want: true},
		{path: filepath.Join(outer, "x", "out"), typ: mfind.TypeFile, want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ex.skip(tt.path, tt.typ), "%s (%s)", tt.path, tt.typ)
	}
}

func Test_NewExcluder_Fails_When_Pattern_File_Is_Missing(t *testing.T) {
	t.Parallel()

	_, err := newExcluder([]string{"/src"}, nil, filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load exclude file")
}
