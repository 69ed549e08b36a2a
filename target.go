package mfind

import "fmt"

// EntryType classifies a filesystem entry for matching.
type EntryType uint8

const (
	// TypeAny matches every entry type. Only meaningful on a [Target].
	TypeAny EntryType = iota
	// TypeFile is a regular file.
	TypeFile
	// TypeDir is a directory.
	TypeDir
	// TypeLink is a symbolic link (never followed).
	TypeLink
	// TypeOther is a FIFO, socket, device or anything else. It only matches
	// a target of [TypeAny].
	TypeOther
)

// String returns the single-letter form used on the command line ("f", "d",
// "l"), "any" for [TypeAny] and "other" for [TypeOther].
func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "f"
	case TypeDir:
		return "d"
	case TypeLink:
		return "l"
	case TypeOther:
		return "other"
	default:
		return "any"
	}
}

// ParseEntryType parses a -t value. The empty string and "any" yield
// [TypeAny]; otherwise exactly one of "d", "f" or "l" is accepted.
func ParseEntryType(s string) (EntryType, error) {
	switch s {
	case "", "any":
		return TypeAny, nil
	case "f":
		return TypeFile, nil
	case "d":
		return TypeDir, nil
	case "l":
		return TypeLink, nil
	}

	if len(s) > 1 && (s[0] == 'd' || s[0] == 'f' || s[0] == 'l') {
		return TypeAny, fmt.Errorf("%w: %q takes exactly one letter", ErrInvalidType, s)
	}

	return TypeAny, fmt.Errorf("%w: %q must be d, f or l", ErrInvalidType, s)
}

// Target is what a search looks for. Name may contain separators; only its
// tail component takes part in matching.
type Target struct {
	Name string
	Type EntryType

	tail string
}

// NewTarget builds a Target and precomputes its tail component.
func NewTarget(name string, typ EntryType) (Target, error) {
	if name == "" {
		return Target{}, ErrNoTarget
	}

	if typ > TypeLink {
		return Target{}, fmt.Errorf("%w: %s cannot be searched for", ErrInvalidType, typ)
	}

	return Target{Name: name, Type: typ, tail: tailComponent(name)}, nil
}

// Matches reports whether an entry called name with type typ satisfies t.
//
// Types must be equal unless t.Type is [TypeAny]. Names are compared by tail
// component, byte for byte; a trailing separator on either side is ignored.
func (t Target) Matches(name string, typ EntryType) bool {
	if t.Type != TypeAny && t.Type != typ {
		return false
	}

	tail := t.tail
	if tail == "" {
		tail = tailComponent(t.Name)
	}

	return tail == tailComponent(name)
}

// tailComponent returns the substring after the last separator, ignoring
// trailing separators. A path made only of separators yields a single one so
// that "/" still matches "/".
func tailComponent(p string) string {
	end := len(p)
	for end > 0 && isSep(p[end-1]) {
		end--
	}

	if end == 0 {
		if p == "" {
			return ""
		}

		return p[:1]
	}

	start := end
	for start > 0 && !isSep(p[start-1]) {
		start--
	}

	return p[start:end]
}
