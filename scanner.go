package mfind

import (
	"errors"
	"io"
)

// scan expands one directory task. It returns 1 if the directory was opened
// and 0 otherwise. The active count taken by the claim in runState.next is
// released on every path out.
//
// For each entry (dot-entries excluded unless hidden is set) the metadata is
// resolved without following symlinks, the entry is matched against the
// target, and directories are queued for another worker to expand.
func (w *worker) scan(t task) int {
	defer w.state.finish()

	dh, err := openDir(t.path)
	if err != nil {
		w.ioErr(&IOError{Path: displayPath(t.path), Op: "open", Err: err})

		return 0
	}

	defer func() {
		_ = dh.closeHandle()
	}()

	for {
		w.batch.reset(len(w.buf) * 2)

		readErr := readDirBatch(dh, w.buf, &w.batch)

		for _, name := range w.batch.names {
			w.visit(dh, t.path, name)
		}

		if readErr == nil {
			continue
		}

		if !errors.Is(readErr, io.EOF) {
			w.ioErr(&IOError{Path: displayPath(t.path), Op: "readdir", Err: readErr})
		}

		break
	}

	return 1
}

// visit handles one directory entry. dir ends with a separator.
func (w *worker) visit(dh dirHandle, dir string, name nulTermName) {
	if !w.hidden && name.isHidden() {
		return
	}

	entryName := name.String()
	fullPath := dir + entryName

	typ, err := statEntry(dh, fullPath, name)
	if err != nil {
		w.ioErr(&IOError{Path: fullPath, Op: "lstat", Err: err})

		return
	}

	if w.skip != nil && w.skip(fullPath, typ) {
		return
	}

	if w.target.Matches(entryName, typ) {
		w.stats.Matches++
		w.report(Match{Path: fullPath, Type: typ})
	}

	if typ == TypeDir {
		w.state.push(task{path: withTrailingSep(fullPath)})
	}
}

func (w *worker) ioErr(err *IOError) {
	w.stats.Errors++
	w.notifier.ioErr(err)
}
