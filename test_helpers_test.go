package mfind_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BusterWarn/mfind"
)

const (
	windowsOS = "windows"
	openOp    = "open"
	lstatOp   = "lstat"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()

	fullPath := filepath.Join(root, rel)
	parent := filepath.Dir(fullPath)

	require.NoError(t, os.MkdirAll(parent, 0o750), "mkdir %s", parent)
	require.NoError(t, os.WriteFile(fullPath, []byte("x"), 0o600), "write %s", fullPath)
}

func writeDir(t *testing.T, root, rel string) {
	t.Helper()

	fullPath := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(fullPath, 0o750), "mkdir %s", fullPath)
}

func writeSymlink(t *testing.T, root, targetRel, linkRel string) {
	t.Helper()

	target := filepath.Join(root, targetRel)
	link := filepath.Join(root, linkRel)

	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0o750))
	require.NoError(t, os.Symlink(target, link), "symlink %s -> %s", link, target)
}

func makeUnreadable(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.Chmod(path, 0), "chmod %s", path)

	t.Cleanup(func() {
		_ = os.Chmod(path, 0o750)
	})
}

// skipIfPermissionsIgnored skips tests that rely on chmod 000 being enforced.
func skipIfPermissionsIgnored(t *testing.T) {
	t.Helper()

	if runtime.GOOS == windowsOS {
		t.Skip("chmod 000 unsupported on windows")
	}

	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
}

// syntheticTree describes a tree written by writeSyntheticTree.
type syntheticTree struct {
	// dirs counts every directory including the root.
	dirs int
	// targets lists every path (root-prefixed) named "needle".
	targets []string
}

// writeSyntheticTree builds a tree of the given depth where each directory
// holds fanout subdirectories and two files, one of them named "needle"
// in every third directory.
func writeSyntheticTree(t *testing.T, root string, depth, fanout int) syntheticTree {
	t.Helper()

	tree := syntheticTree{}

	var build func(dir string, level int)

	build = func(dir string, level int) {
		tree.dirs++

		writeFile(t, dir, "plain.txt")

		if tree.dirs%3 == 0 {
			writeFile(t, dir, "needle")
			tree.targets = append(tree.targets, filepath.Join(dir, "needle"))
		}

		if level == depth {
			return
		}

		for i := range fanout {
			sub := filepath.Join(dir, fmt.Sprintf("d%02d", i))
			writeDir(t, sub, "")
			build(sub, level+1)
		}
	}

	build(root, 0)

	sort.Strings(tree.targets)

	return tree
}

func mustTarget(t *testing.T, name string, typ mfind.EntryType) mfind.Target {
	t.Helper()

	target, err := mfind.NewTarget(name, typ)
	require.NoError(t, err)

	return target
}

func matchPaths(matches []mfind.Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Path)
	}

	sort.Strings(out)

	return out
}

// errorCollector records IOErrors passed to WithOnError.
type errorCollector struct {
	mu   sync.Mutex
	errs []error
}

func (c *errorCollector) option() mfind.Option {
	return mfind.WithOnError(func(err error, _ int) {
		c.mu.Lock()
		c.errs = append(c.errs, err)
		c.mu.Unlock()
	})
}

func (c *errorCollector) all() []error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]error(nil), c.errs...)
}

func requireIOError(t *testing.T, err error, wantPath, wantOp string) {
	t.Helper()

	var ioErr *mfind.IOError
	require.True(t, errors.As(err, &ioErr), "expected IOError, got %T", err)
	require.Equal(t, wantPath, ioErr.Path)
	require.Equal(t, wantOp, ioErr.Op)
}
