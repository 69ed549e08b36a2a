//go:build mfind_testhooks

package mfind

import "sync/atomic"

// Test-only fault injection for per-entry metadata lookups.
//
// Enabled with: go test -tags mfind_testhooks ./...
// Normal builds use iohooks_stub.go, which calls the backend directly.
//
// The hook is global to the test binary. Tests that install it must not run
// in parallel with other hook users.

// lstatHookFn receives the full entry path. A non-nil error replaces the
// backend result.
type lstatHookFn func(path string) error

var lstatHook atomic.Pointer[lstatHookFn]

// setLstatHook installs a hook and returns a restore function.
// Passing nil removes any previously installed hook.
func setLstatHook(hook lstatHookFn) func() {
	if hook == nil {
		lstatHook.Store(nil)

		return func() {}
	}

	ptr := new(lstatHookFn)
	*ptr = hook
	lstatHook.Store(ptr)

	return func() {
		lstatHook.Store(nil)
	}
}

func statEntry(dh dirHandle, fullPath string, name nulTermName) (EntryType, error) {
	if hook := lstatHook.Load(); hook != nil {
		if err := (*hook)(fullPath); err != nil {
			return TypeOther, err
		}
	}

	return dh.lstatEntry(name)
}
