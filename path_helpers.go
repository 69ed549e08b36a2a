package mfind

import "os"

// ============================================================================
// Path helpers
// ============================================================================

func isSep(c byte) bool {
	return c == '/' || c == os.PathSeparator
}

// joinPath appends name to dir with exactly one separator between them.
// dir may already end with a separator (tasks always do).
func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}

	if isSep(dir[len(dir)-1]) {
		return dir + name
	}

	return dir + string(os.PathSeparator) + name
}

// withTrailingSep returns p normalized to end with a separator. Queued tasks
// always carry one so children can be joined without a length check.
func withTrailingSep(p string) string {
	if p != "" && isSep(p[len(p)-1]) {
		return p
	}

	return p + string(os.PathSeparator)
}

// displayPath drops one trailing separator for printing. A bare root stays
// as is.
func displayPath(p string) string {
	if len(p) > 1 && isSep(p[len(p)-1]) {
		return p[:len(p)-1]
	}

	return p
}

// nameLen returns the length of the filename excluding a trailing NUL, if present.
func nameLen(name []byte) int {
	if len(name) == 0 {
		return 0
	}

	if name[len(name)-1] == 0 {
		return len(name) - 1
	}

	return len(name)
}
