//go:build (darwin && !ios) || freebsd || openbsd || netbsd || dragonfly

package mfind

// io_unix.go implements the internal I/O backend contract (see io_contract.go)
// for macOS and the BSD family. Names come from (*os.File).Readdirnames on
// the open directory; entries are classified with fstatat relative to its fd,
// so no full path is resolved per entry.

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// readDirBatchSize bounds how many names one Readdirnames call returns.
const readDirBatchSize = 4096

// dirHandle keeps both views of one open directory: fd for fstatat and f
// for enumeration. Closing f closes fd.
type dirHandle struct {
	fd int
	f  *os.File
}

// openDir opens path for enumeration. A symlink naming a directory is
// followed; O_DIRECTORY rejects everything that does not resolve to one.
func openDir(path string) (dirHandle, error) {
	for {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		if err != nil {
			return dirHandle{fd: -1}, err
		}

		return dirHandle{fd: fd, f: os.NewFile(uintptr(fd), path)}, nil
	}
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

// lstatEntry classifies name with fstatat(AT_SYMLINK_NOFOLLOW).
func (d dirHandle) lstatEntry(name nulTermName) (EntryType, error) {
	if len(name) <= 1 {
		return TypeOther, unix.ENOENT
	}

	nameStr := name.String()

	var st unix.Stat_t
	for {
		err := unix.Fstatat(d.fd, nameStr, &st, unix.AT_SYMLINK_NOFOLLOW)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		if err != nil {
			return TypeOther, err
		}

		break
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return TypeFile, nil
	case unix.S_IFDIR:
		return TypeDir, nil
	case unix.S_IFLNK:
		return TypeLink, nil
	default:
		return TypeOther, nil
	}
}
