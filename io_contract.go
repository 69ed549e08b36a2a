package mfind

// ============================================================================
// Internal I/O backend contract
// ============================================================================
//
// The scanner is written against a small set of unexported, platform-specific
// functions and types. Implementations live in build-tagged files:
//   - Linux (getdents64 + fstatat):                 io_linux.go
//   - macOS and BSDs (Readdirnames + fstatat):      io_unix.go
//   - everything else (Readdirnames + os.Lstat):    io_other.go
//
// Semantics expected by the scanner:
//
//   - openDir follows a symlink given as the directory path itself. Children
//     are classified with lstat semantics, so a symlinked subdirectory is
//     reported as a link and never queued.
//
//   - readDirBatch fills the batch with every entry name except "." and "..",
//     NUL-terminated, and returns io.EOF once the directory is exhausted.
//     A call may return names together with io.EOF or another error; the
//     scanner processes the names before looking at the error.
//
//   - lstatEntry never follows symlinks. Entries that are not regular files,
//     directories or symlinks are reported as TypeOther.
//
// readDirBatch and statEntry are the scanner's entry points; in test builds
// (mfind_testhooks) statEntry can be diverted to inject failures.

// Function signatures required by the scanner.
var (
	_ func(string) (dirHandle, error)                         = openDir
	_ func(dirHandle, []byte, *nameBatch) error               = readDirBatch
	_ func(dirHandle, string, nulTermName) (EntryType, error) = statEntry
)

// Method set required by the scanner. Only used for compile-time checking.
type ioDirHandle interface {
	closeHandle() error
	lstatEntry(name nulTermName) (EntryType, error)
}

var _ ioDirHandle = dirHandle{}

// dirBufSize is the per-worker directory read buffer. On Linux it holds raw
// dirent64 records; elsewhere it only sizes batches.
const dirBufSize = 32 * 1024

func readDirBatch(dh dirHandle, buf []byte, batch *nameBatch) error {
	return readDirBatchImpl(dh, buf, batch)
}
