//go:build !mfind_testhooks

package mfind

func statEntry(dh dirHandle, _ string, name nulTermName) (EntryType, error) {
	return dh.lstatEntry(name)
}
