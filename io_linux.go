//go:build linux && !android

package mfind

// io_linux.go implements the internal I/O backend contract (see io_contract.go)
// for Linux. Directory enumeration parses raw dirent64 records returned by
// getdents64; entries are classified with fstatat relative to the open
// directory fd, so no full path is built per entry.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// linux_dirent64 offsets (from linux/dirent.h):
//
//	struct linux_dirent64 {
//	    ino64_t        d_ino;    // 8 bytes  (offset 0)
//	    off64_t        d_off;    // 8 bytes  (offset 8)
//	    unsigned short d_reclen; // 2 bytes  (offset 16)
//	    unsigned char  d_type;   // 1 byte   (offset 18)
//	    char           d_name[]; // variable (offset 19)
//	};
const (
	direntReclenOffset = 16
	direntNameOffset   = 19
	direntMinSize      = direntNameOffset
)

var errInvalidDirent = errors.New("invalid dirent")

// dirHandle wraps an open directory fd.
type dirHandle struct {
	fd int
}

// openDir opens path for enumeration. A symlink naming a directory is
// followed; O_DIRECTORY rejects everything that does not resolve to one.
func openDir(path string) (dirHandle, error) {
	for {
		fd, err := unix.Openat(unix.AT_FDCWD, path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC|unix.O_LARGEFILE, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		if err != nil {
			return dirHandle{fd: -1}, err
		}

		return dirHandle{fd: fd}, nil
	}
}

func (d dirHandle) closeHandle() error {
	if d.fd < 0 {
		return nil
	}

	// close(2) is not retried on EINTR.
	err := unix.Close(d.fd)
	if err != nil {
		return fmt.Errorf("close dir: %w", err)
	}

	return nil
}

// readDirBatchImpl reads one getdents64 chunk into batch.
func readDirBatchImpl(d dirHandle, buf []byte, batch *nameBatch) error {
	var (
		read int
		err  error
	)
	for {
		read, err = unix.ReadDirent(d.fd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		break
	}

	if err != nil {
		return fmt.Errorf("readdirent: %w", err)
	}

	if read <= 0 {
		return io.EOF
	}

	data := buf[:read]
	for len(data) > 0 {
		if len(data) < direntMinSize {
			return errInvalidDirent
		}

		reclen := int(binary.NativeEndian.Uint16(data[direntReclenOffset:]))
		if reclen < direntMinSize || reclen > len(data) {
			return errInvalidDirent
		}

		entry := data[:reclen]
		data = data[reclen:]

		name := entry[direntNameOffset:reclen]
		for i, b := range name {
			if b == 0 {
				name = name[:i]

				break
			}
		}

		if len(name) == 0 || isDotEntry(name) {
			continue
		}

		appendName(batch, name)
	}

	return nil
}

func isDotEntry(name []byte) bool {
	if len(name) == 1 && name[0] == '.' {
		return true
	}

	return len(name) == 2 && name[0] == '.' && name[1] == '.'
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
