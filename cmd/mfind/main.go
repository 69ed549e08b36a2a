// Command mfind searches directory trees for entries with a given name using
// a fixed pool of concurrent workers.
//
// Usage:
//
//	mfind [-t type] [-p nrthr] start1 [start2 ...] target
//
// Matches are printed on stdout, one per line. Diagnostics for unreadable
// directories go to stderr as "path: reason" and do not change the exit
// code. Invalid arguments or configuration exit with status 1.
package main

import (
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	_, _ = maxprocs.Set()

	a := &app{stdout: os.Stdout, stderr: os.Stderr, lookupEnv: os.LookupEnv}
	os.Exit(a.run(os.Args[1:]))
}
