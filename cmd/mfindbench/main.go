// Mfindbench benchmarks mfind across worker counts.
//
// It searches a tree written by treegen once per worker count (repeated
// -repeat times), checks the match and directory counts against the
// dataset's meta.json entry, and prints one line per worker count.
//
//	go run ./cmd/mfindbench -dir .data/fanout_d4_f20 -workers 1,2,4,8,16
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/BusterWarn/mfind"
)

// datasetMeta is the structure of entries in meta.json written by treegen.
type datasetMeta struct {
	Target  string `json:"target"`
	Dirs    int    `json:"dirs"`
	Matches int    `json:"matches"`
}

// allDatasetMeta maps dataset directory name to its metadata.
type allDatasetMeta map[string]datasetMeta

type benchResult struct {
	Timestamp time.Time `json:"ts"`

	Case  string `json:"case,omitempty"`
	Notes string `json:"notes,omitempty"`

	Dir    string `json:"dir"`
	Target string `json:"target"`
	Type   string `json:"type"`

	Workers   int `json:"workers"`
	Repeat    int `json:"repeat"`
	GCPercent int `json:"gc"`

	DirsRead    int           `json:"dirs_read"`
	Matches     int           `json:"matches"`
	Duration    time.Duration `json:"duration"`
	DirsPerSec  float64       `json:"dirs_per_sec"`
	MaxDirsRead int           `json:"max_worker_dirs_read"`
	MinDirsRead int           `json:"min_worker_dirs_read"`

	GoVersion   string `json:"go"`
	GOOS        string `json:"goos"`
	GOARCH      string `json:"goarch"`
	GOMAXPROCS  int    `json:"gomaxprocs"`
	NumCPU      int    `json:"numcpu"`
	VCSRevision string `json:"vcs_revision,omitempty"`
	VCSTime     string `json:"vcs_time,omitempty"`
	VCSModified bool   `json:"vcs_modified,omitempty"`
}

type benchFlags struct {
	dir        string
	target     string
	typ        string
	workers    string
	repeat     int
	gcPercent  int
	quiet      bool
	caseName   string
	notes      string
	out        string
	cpuProfile string
	memProfile string
}

func parseFlags(fs *flag.FlagSet) *benchFlags {
	flags := &benchFlags{}

	fs.StringVar(&flags.dir, "dir", "", "directory to search")
	fs.StringVar(&flags.target, "target", "", "name to search for (default: target from meta.json, else needle)")
	fs.StringVar(&flags.typ, "type", "", "entry type: d | f | l (empty = any)")
	fs.StringVar(&flags.workers, "workers", "1", "comma separated worker counts, one run each")
	fs.IntVar(&flags.repeat, "repeat", 1, "repeat each search N times")
	fs.IntVar(&flags.gcPercent, "gc", -1, "if >=0, call debug.SetGCPercent(gc)")
	fs.BoolVar(&flags.quiet, "q", false, "quiet: print only dirs/sec per worker count")
	fs.StringVar(&flags.caseName, "case", "", "optional short case name to store in JSON output")
	fs.StringVar(&flags.notes, "notes", "", "optional freeform notes to store in JSON output")
	fs.StringVar(&flags.out, "out", "", "optional JSONL output file to append one result per run")
	fs.StringVar(&flags.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	fs.StringVar(&flags.memProfile, "memprofile", "", "write memory profile to file")

	return flags
}

func main() {
	fs := flag.NewFlagSet("mfindbench", flag.ExitOnError)
	flags := parseFlags(fs)

	_ = fs.Parse(os.Args[1:])

	os.Exit(run(flags, os.Stdout, os.Stderr))
}

func run(flags *benchFlags, stdout, stderr io.Writer) int {
	if flags.dir == "" {
		fmt.Fprintln(stderr, "-dir is required")

		return 2
	}

	if flags.repeat <= 0 {
		fmt.Fprintln(stderr, "-repeat must be >= 1")

		return 2
	}

	counts, err := parseWorkerCounts(flags.workers)
	if err != nil {
		fmt.Fprintln(stderr, err)

		return 2
	}

	typ, err := mfind.ParseEntryType(flags.typ)
	if err != nil {
		fmt.Fprintln(stderr, err)

		return 2
	}

	// Expectations only hold for the target treegen planted.
	meta, metaErr := loadDatasetMeta(flags.dir)
	if metaErr != nil {
		fmt.Fprintf(stderr, "warning: %v\n", metaErr)
	}

	if flags.target == "" {
		flags.target = "needle"
		if meta != nil && meta.Target != "" {
			flags.target = meta.Target
		}
	}

	if meta != nil && (meta.Target != flags.target || (typ != mfind.TypeAny && typ != mfind.TypeFile)) {
		meta = nil
	}

	target, err := mfind.NewTarget(flags.target, typ)
	if err != nil {
		fmt.Fprintln(stderr, err)

		return 2
	}

	if flags.gcPercent >= 0 {
		debug.SetGCPercent(flags.gcPercent)
	}

	if flags.cpuProfile != "" {
		cpuFile, err := os.Create(flags.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "error creating cpuprofile: %v\n", err)

			return 1
		}

		err = pprof.StartCPUProfile(cpuFile)
		if err != nil {
			_ = cpuFile.Close()

			fmt.Fprintf(stderr, "error starting cpuprofile: %v\n", err)

			return 1
		}

		defer func() {
			pprof.StopCPUProfile()

			_ = cpuFile.Close()
		}()
	}

	for _, workers := range counts {
		res, err := bench(flags, target, workers, meta)
		if err != nil {
			fmt.Fprintf(stderr, "workers=%d: %v\n", workers, err)

			return 1
		}

		if flags.out != "" {
			err := appendJSONL(flags.out, &res)
			if err != nil {
				fmt.Fprintf(stderr, "error writing -out: %v\n", err)

				return 1
			}
		}

		if flags.quiet {
			fmt.Fprintf(stdout, "%d %.0f\n", workers, res.DirsPerSec)

			continue
		}

		fmt.Fprintf(stdout, "workers=%d dirs=%d matches=%d repeat=%d duration=%v dirs/sec=%.0f worker_dirs=%d..%d\n",
			workers, res.DirsRead, res.Matches, flags.repeat, res.Duration, res.DirsPerSec, res.MinDirsRead, res.MaxDirsRead)
	}

	if flags.memProfile != "" {
		err := writeHeapProfile(flags.memProfile)
		if err != nil {
			fmt.Fprintln(stderr, err)

			return 1
		}
	}

	return 0
}

// bench runs the search repeat times with a fixed worker count.
func bench(flags *benchFlags, target mfind.Target, workers int, meta *datasetMeta) (benchResult, error) {
	res := benchResult{
		Timestamp:   time.Now(),
		Case:        flags.caseName,
		Notes:       flags.notes,
		Dir:         flags.dir,
		Target:      target.Name,
		Type:        target.Type.String(),
		Workers:     workers,
		Repeat:      flags.repeat,
		GCPercent:   flags.gcPercent,
		MinDirsRead: -1,
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		GOMAXPROCS:  runtime.GOMAXPROCS(0),
		NumCPU:      runtime.NumCPU(),
	}

	fillBuildInfo(&res)

	for range flags.repeat {
		// No reporter: printing would dominate the measurement and the
		// summary already counts matches.
		summary, err := mfind.Search(context.Background(), []string{flags.dir}, target, nil, mfind.WithWorkers(workers))
		if err != nil {
			return res, err
		}

		if summary.Errors > 0 {
			return res, fmt.Errorf("%d io errors", summary.Errors)
		}

		if meta != nil && (summary.DirsRead != meta.Dirs || summary.Matches != meta.Matches) {
			return res, fmt.Errorf("expected dirs=%d matches=%d, got dirs=%d matches=%d",
				meta.Dirs, meta.Matches, summary.DirsRead, summary.Matches)
		}

		res.DirsRead += summary.DirsRead
		res.Matches += summary.Matches
		res.Duration += summary.Duration

		for _, ws := range summary.Workers {
			res.MaxDirsRead = max(res.MaxDirsRead, ws.DirsRead)
			if res.MinDirsRead < 0 || ws.DirsRead < res.MinDirsRead {
				res.MinDirsRead = ws.DirsRead
			}
		}
	}

	if res.Duration > 0 {
		res.DirsPerSec = float64(res.DirsRead) / res.Duration.Seconds()
	}

	return res, nil
}

func parseWorkerCounts(s string) ([]int, error) {
	var counts []int

	for field := range strings.SplitSeq(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		n, err := strconv.Atoi(field)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid -workers entry %q (expected positive integers)", field)
		}

		counts = append(counts, n)
	}

	if len(counts) == 0 {
		return nil, errors.New("-workers is empty")
	}

	return counts, nil
}

func fillBuildInfo(res *benchResult) {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return
	}

	res.GoVersion = bi.GoVersion

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			res.VCSRevision = setting.Value
		case "vcs.time":
			res.VCSTime = setting.Value
		case "vcs.modified":
			res.VCSModified = setting.Value == "true"
		}
	}
}

// loadDatasetMeta loads metadata for a dataset from parent's meta.json.
func loadDatasetMeta(dir string) (*datasetMeta, error) {
	parentDir := filepath.Dir(filepath.Clean(dir))
	datasetName := filepath.Base(filepath.Clean(dir))
	metaPath := filepath.Join(parentDir, "meta.json")

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", metaPath, err)
	}

	var allMeta allDatasetMeta

	unmarshalErr := json.Unmarshal(data, &allMeta)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("parse %s: %w", metaPath, unmarshalErr)
	}

	meta, ok := allMeta[datasetName]
	if !ok {
		return nil, fmt.Errorf("dataset %q not found in %s", datasetName, metaPath)
	}

	return &meta, nil
}

func writeHeapProfile(path string) error {
	memFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating memprofile: %w", err)
	}

	err = pprof.WriteHeapProfile(memFile)
	if err != nil {
		_ = memFile.Close()

		return fmt.Errorf("error writing memprofile: %w", err)
	}

	err = memFile.Close()
	if err != nil {
		return fmt.Errorf("error closing memprofile: %w", err)
	}

	return nil
}

func appendJSONL(path string, res *benchResult) error {
	outFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	defer func() { _ = outFile.Close() }()

	writer := bufio.NewWriter(outFile)
	enc := json.NewEncoder(writer)
	enc.SetEscapeHTML(false)

	err = enc.Encode(res)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	err = writer.Flush()
	if err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
