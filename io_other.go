//go:build !(linux && !android) && !((darwin && !ios) || freebsd || openbsd || netbsd || dragonfly)

package mfind

// io_other.go implements the internal I/O backend contract (see io_contract.go)
// with portable os APIs for every platform without a syscall-level backend
// (Windows, Android, iOS, Solaris, illumos, AIX, Plan 9, js/wasm).

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// readDirBatchSize bounds how many names one Readdirnames call returns.
const readDirBatchSize = 4096

var errNotDir = errors.New("not a directory")

// dirHandle wraps an open directory.
type dirHandle struct {
	f    *os.File
	path string
}

// openDir opens path for enumeration, following a symlink at path itself.
func openDir(path string) (dirHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return dirHandle{}, unwrapPathError(err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return dirHandle{}, unwrapPathError(err)
	}

	if !info.IsDir() {
		_ = f.Close()

		return dirHandle{}, errNotDir
	}

	return dirHandle{f: f, path: path}, nil
}

func (d dirHandle) closeHandle() error {
	if d.f == nil {
		return nil
	}

	err := d.f.Close()
	if err != nil {
		return fmt.Errorf("close dir: %w", err)
	}

	return nil
}

// readDirBatchImpl enumerates names with (*os.File).Readdirnames. The raw
// buffer is unused by this backend.
func readDirBatchImpl(d dirHandle, _ []byte, batch *nameBatch) error {
	names, err := d.f.Readdirnames(readDirBatchSize)
	for _, name := range names {
		if name == "" || name == "." || name == ".." {
			continue
		}

		appendName(batch, name)
	}

	if err == nil && len(names) == 0 {
		return io.EOF
	}

	return err
}

func (d dirHandle) lstatEntry(name nulTermName) (EntryType, error) {
	if len(name) <= 1 {
		return TypeOther, fs.ErrNotExist
	}

	info, err := os.Lstat(joinPath(d.path, name.String()))
	if err != nil {
		return TypeOther, unwrapPathError(err)
	}

	mode := info.Mode()

	switch {
	case mode&fs.ModeSymlink != 0:
		return TypeLink, nil
	case mode.IsDir():
		return TypeDir, nil
	case mode.IsRegular():
		return TypeFile, nil
	default:
		return TypeOther, nil
	}
}

// unwrapPathError strips *fs.PathError so IOError carries the path once.
func unwrapPathError(err error) error {
	if pe, ok := err.(*fs.PathError); ok {
		return pe.Err
	}

	return err
}
