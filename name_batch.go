package mfind

// ============================================================================
// nameBatch: arena storage for directory entry names
// ============================================================================
//
// A scan reads a directory in chunks. Instead of allocating a string per entry
// name, each chunk packs its names into one contiguous byte buffer (storage)
// and keeps slice headers that point into it (names):
//
//	storage: | a . t x t \0 | s u b \0 | b . t x t \0 |
//	names:     names[0]       names[1]   names[2]
//
// Every name keeps its trailing NUL so it can be handed to fstatat without
// copying. The batch is reset and reused for the next chunk, so a worker
// allocates its arena once and reuses it for every directory it scans.
//
// Names are only valid until the next reset. Anything retained past that
// point (match paths, queued tasks) is copied into an owned string.

// nulTermName is a directory entry name that includes its trailing NUL byte.
type nulTermName []byte

// String returns the name without its NUL terminator.
func (n nulTermName) String() string {
	return string(n[:nameLen(n)])
}

// isHidden reports whether the name starts with a dot.
func (n nulTermName) isHidden() bool {
	return len(n) > 1 && n[0] == '.'
}

type nameBatch struct {
	storage []byte
	names   []nulTermName
}

// reset empties the batch while keeping its backing arrays. storageCap is a
// sizing hint; names is presized assuming roughly 20 bytes per name.
func (b *nameBatch) reset(storageCap int) {
	if storageCap > 0 && cap(b.storage) < storageCap {
		b.storage = make([]byte, 0, storageCap)
	} else {
		b.storage = b.storage[:0]
	}

	namesCap := storageCap / 20
	if namesCap > 0 && cap(b.names) < namesCap {
		b.names = make([]nulTermName, 0, namesCap)
	} else {
		clear(b.names)
		b.names = b.names[:0]
	}
}

// appendName appends a raw name (no NUL) and terminates it. Backends hand
// over either the dirent bytes or a string from Readdirnames.
func appendName[S ~string | ~[]byte](b *nameBatch, name S) {
	start := len(b.storage)
	b.storage = append(b.storage, name...)
	b.storage = append(b.storage, 0)
	b.names = append(b.names, b.storage[start:len(b.storage):len(b.storage)])
}
