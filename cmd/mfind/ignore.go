package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/BusterWarn/mfind"
)

// excluder prunes entries matching gitignore-style patterns. Patterns are
// evaluated against the path relative to the start path that contains it,
// so "build/" and "docs/*.tmp" behave as they would in a .gitignore placed
// at each start path.
type excluder struct {
	matcher *gitignore.GitIgnore
	roots   []string
}

// newExcluder returns nil when there is nothing to exclude.
func newExcluder(roots, patterns []string, file string) (*excluder, error) {
	if len(patterns) == 0 && file == "" {
		return nil, nil
	}

	var matcher *gitignore.GitIgnore

	if file != "" {
		m, err := gitignore.CompileIgnoreFileAndLines(file, patterns...)
		if err != nil {
			return nil, fmt.Errorf("load exclude file: %w", err)
		}

		matcher = m
	} else {
		matcher = gitignore.CompileIgnoreLines(patterns...)
	}

	prefixes := make([]string, 0, len(roots))
	for _, r := range roots {
		if !strings.HasSuffix(r, string(filepath.Separator)) && !strings.HasSuffix(r, "/") {
			r += string(filepath.Separator)
		}

		prefixes = append(prefixes, r)
	}

	// Longest first, so nested start paths resolve to the closest one.
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	return &excluder{matcher: matcher, roots: prefixes}, nil
}

// skip satisfies mfind.SkipFunc.
func (e *excluder) skip(path string, typ mfind.EntryType) bool {
	rel := path

	for _, r := range e.roots {
		if strings.HasPrefix(path, r) {
			rel = path[len(r):]

			break
		}
	}

	rel = filepath.ToSlash(rel)
	if typ == mfind.TypeDir {
		rel += "/"
	}

	return e.matcher.MatchesPath(rel)
}
