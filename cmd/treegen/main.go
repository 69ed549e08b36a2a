// Package main generates directory trees for benchmarking mfind.
//
// Examples:
//
//	go run ./cmd/treegen --out .data/fanout_d4_f20 --depth 4 --fanout 20
//	go run ./cmd/treegen --out .data/chain_500 --layout chain --depth 500
//	go run ./cmd/treegen --out .data/wide --depth 1 --fanout 100k --files 0
//
// Notes:
//   - Every directory holds --files plain files; roughly one in --needle-every
//     directories also holds a file named --target.
//   - Generation is deterministic for a given set of flags.
//   - The parent of --out gets a meta.json entry with the expected directory
//     and match counts, which mfindbench uses to verify its runs.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/spf13/pflag"
)

type Layout string

const (
	LayoutFanout Layout = "fanout"
	LayoutChain  Layout = "chain"
)

type Args struct {
	Out         string
	Layout      Layout
	Depth       int
	Fanout      uint64
	Files       uint64
	NeedleEvery uint64
	Target      string
	Threads     int
}

// datasetMeta is one entry of meta.json, keyed by the dataset directory name.
type datasetMeta struct {
	Layout  Layout `json:"layout"`
	Depth   int    `json:"depth"`
	Fanout  uint64 `json:"fanout"`
	Target  string `json:"target"`
	Dirs    uint64 `json:"dirs"`
	Files   uint64 `json:"files"`
	Matches uint64 `json:"matches"`
}

type counters struct {
	dirs    atomic.Uint64
	files   atomic.Uint64
	matches atomic.Uint64
}

func main() {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}

		os.Exit(2)
	}

	runErr := run(args)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

func run(args *Args) error {
	if args.Depth < 1 {
		return errors.New("--depth must be >= 1")
	}

	if args.Layout == LayoutFanout && args.Fanout == 0 {
		return errors.New("--fanout must be > 0")
	}

	if args.NeedleEvery == 0 {
		return errors.New("--needle-every must be > 0")
	}

	if args.Threads <= 0 {
		return errors.New("--threads must be > 0")
	}

	if args.Target == "" || strings.ContainsRune(args.Target, os.PathSeparator) {
		return fmt.Errorf("invalid --target %q", args.Target)
	}

	start := time.Now()

	mkdirErr := os.MkdirAll(args.Out, 0o750)
	if mkdirErr != nil {
		return fmt.Errorf("mkdir --out %s: %w", args.Out, mkdirErr)
	}

	var c counters

	// The root gets the index 0 stream; subtrees seed from their top index.
	err := fillDir(args, args.Out, NewXorShift64(seedForIndex(0)), &c)
	if err != nil {
		return err
	}

	if args.Depth > 1 {
		err = generateSubtrees(args, &c)
		if err != nil {
			return err
		}
	}

	meta := datasetMeta{
		Layout:  args.Layout,
		Depth:   args.Depth,
		Fanout:  args.Fanout,
		Target:  args.Target,
		Dirs:    c.dirs.Load(),
		Files:   c.files.Load(),
		Matches: c.matches.Load(),
	}

	err = writeMeta(args.Out, meta)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Fprintf(os.Stderr, "done: dirs=%d files=%d matches=%d elapsed=%v\n", meta.Dirs, meta.Files, meta.Matches, elapsed)

	return nil
}

// generateSubtrees splits the root's children across threads. Each child
// subtree is generated by exactly one goroutine.
func generateSubtrees(args *Args, c *counters) error {
	children := args.childCount()
	threads := min(uint64(args.Threads), children)

	var waitGroup sync.WaitGroup

	errCh := make(chan error, threads)

	for threadID := range threads {
		startIdx, endIdx := splitRange(children, threads, threadID)

		waitGroup.Go(func() {
			for idx := startIdx; idx < endIdx; idx++ {
				rng := NewXorShift64(seedForIndex(idx + 1))

				err := generate(args, filepath.Join(args.Out, childName(idx)), 2, rng, c)
				if err != nil {
					errCh <- err

					return
				}
			}
		})
	}

	waitGroup.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}

	return nil
}

// generate writes dir at level and everything below it. Descent is iterative
// so deep chains do not grow the goroutine stack.
func generate(args *Args, dir string, level int, rng *XorShift64, c *counters) error {
	type pending struct {
		dir   string
		level int
	}

	stack := []pending{{dir: dir, level: level}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		err := os.Mkdir(p.dir, 0o750)
		if err != nil {
			return fmt.Errorf("mkdir %s: %w", p.dir, err)
		}

		err = fillDir(args, p.dir, rng, c)
		if err != nil {
			return err
		}

		if p.level >= args.Depth {
			continue
		}

		for idx := range args.childCount() {
			stack = append(stack, pending{dir: filepath.Join(p.dir, childName(idx)), level: p.level + 1})
		}
	}

	return nil
}

// fillDir writes the plain files of dir and, on the dice roll, the target.
func fillDir(args *Args, dir string, rng *XorShift64, c *counters) error {
	c.dirs.Add(1)

	for i := range args.Files {
		filePath := filepath.Join(dir, fmt.Sprintf("f%05d.txt", i))

		writeErr := os.WriteFile(filePath, nil, 0o600)
		if writeErr != nil {
			return fmt.Errorf("write %s: %w", filePath, writeErr)
		}
	}

	c.files.Add(args.Files)

	if rng.Next()%args.NeedleEvery == 0 {
		filePath := filepath.Join(dir, args.Target)

		writeErr := os.WriteFile(filePath, nil, 0o600)
		if writeErr != nil {
			return fmt.Errorf("write %s: %w", filePath, writeErr)
		}

		c.files.Add(1)
		c.matches.Add(1)
	}

	return nil
}

func (a *Args) childCount() uint64 {
	if a.Layout == LayoutChain {
		return 1
	}

	return a.Fanout
}

func childName(idx uint64) string {
	return fmt.Sprintf("d%03d", idx)
}

// writeMeta merges the dataset entry into meta.json next to out.
func writeMeta(out string, meta datasetMeta) error {
	metaPath := filepath.Join(filepath.Dir(filepath.Clean(out)), "meta.json")
	all := make(map[string]datasetMeta)

	data, err := os.ReadFile(metaPath)
	if err == nil {
		unmarshalErr := json.Unmarshal(data, &all)
		if unmarshalErr != nil {
			return fmt.Errorf("parse %s: %w", metaPath, unmarshalErr)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", metaPath, err)
	}

	all[filepath.Base(filepath.Clean(out))] = meta

	data, err = json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	err = os.WriteFile(metaPath, append(data, '\n'), 0o600)
	if err != nil {
		return fmt.Errorf("write %s: %w", metaPath, err)
	}

	return nil
}

func splitRange(total, threads, threadID uint64) (uint64, uint64) {
	start := (total * threadID) / threads
	end := (total * (threadID + 1)) / threads

	return start, end
}

func seedForIndex(idx uint64) uint64 {
	seed := idx ^ (idx * 0x9E3779B97F4A7C15) ^ 0xD1B54A32D192ED03
	if seed == 0 {
		seed = 0x123456789abcdef0
	}

	return seed
}

// XorShift64 is a fast PRNG.
type XorShift64 struct {
	state uint64
}

func NewXorShift64(seed uint64) *XorShift64 {
	state := seed
	if state == 0 {
		state = 0x123456789abcdef0
	}

	return &XorShift64{state: state}
}

func (rng *XorShift64) Next() uint64 {
	state := rng.state
	state ^= state >> 12
	state ^= state << 25
	state ^= state >> 27
	rng.state = state

	return state * 0x2545F4914F6CDD1D
}

// humanCount is a pflag.Value accepting numbers like 10k, 1m or 16ki.
type humanCount uint64

func (h *humanCount) String() string { return strconv.FormatUint(uint64(*h), 10) }

func (h *humanCount) Type() string { return "count" }

func (h *humanCount) Set(s string) error {
	v, err := parseHumanU64(s)
	if err != nil {
		return err
	}

	*h = humanCount(v)

	return nil
}

func parseArgs(argv []string) (*Args, error) {
	fs := pflag.NewFlagSet("treegen", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: treegen --out <dir> [options]\n\nNumbers can be human-friendly: 10k, 1m, 16ki.\n\nOptions:")
		fs.PrintDefaults()
	}

	var (
		out         string
		layout      string
		depth       int
		target      string
		threads     int
		fanout      = humanCount(10)
		files       = humanCount(4)
		needleEvery = humanCount(3)
	)

	fs.StringVar(&out, "out", "", "output directory (required)")
	fs.StringVar(&layout, "layout", string(LayoutFanout), "fanout | chain")
	fs.IntVar(&depth, "depth", 3, "levels including the root")
	fs.Var(&fanout, "fanout", "subdirectories per directory (layout=fanout)")
	fs.Var(&files, "files", "plain files per directory")
	fs.Var(&needleEvery, "needle-every", "place the target in about one of N directories")
	fs.StringVar(&target, "target", "needle", "name of the file to plant")
	fs.IntVar(&threads, "threads", runtime.NumCPU(), "generator goroutines")

	err := fs.Parse(argv)
	if err != nil {
		return nil, err
	}

	if out == "" {
		return nil, errors.New("missing --out")
	}

	switch Layout(layout) {
	case LayoutFanout, LayoutChain:
	default:
		return nil, fmt.Errorf("invalid --layout %q", layout)
	}

	return &Args{
		Out:         out,
		Layout:      Layout(layout),
		Depth:       depth,
		Fanout:      uint64(fanout),
		Files:       uint64(files),
		NeedleEvery: uint64(needleEvery),
		Target:      target,
		Threads:     threads,
	}, nil
}

// parseHumanU64 parses human-friendly numbers like: 10k, 100k, 1m, 2.5m, 16ki.
//
// Suffixes:
// - Decimal: k, m, g (and kb/mb/gb)
// - Binary:  ki, mi, gi (and kib/mib/gib).
func parseHumanU64(input string) (uint64, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))

	normalized = strings.ReplaceAll(normalized, "_", "")
	if normalized == "" {
		return 0, errors.New("empty number")
	}

	split := 0

	for i, ch := range normalized {
		if unicode.IsDigit(ch) || ch == '.' {
			split = i + 1

			continue
		}

		break
	}

	if split == 0 {
		return 0, fmt.Errorf("invalid number: %s", input)
	}

	num, err := strconv.ParseFloat(normalized[:split], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}

	var mult float64

	switch normalized[split:] {
	case "":
		mult = 1.0
	case "k", "kb":
		mult = 1_000.0
	case "m", "mb":
		mult = 1_000_000.0
	case "g", "gb":
		mult = 1_000_000_000.0
	case "ki", "kib":
		mult = 1024.0
	case "mi", "mib":
		mult = 1024.0 * 1024.0
	case "gi", "gib":
		mult = 1024.0 * 1024.0 * 1024.0
	default:
		return 0, fmt.Errorf("invalid suffix in number: %s", input)
	}

	val := num * mult
	if val < 0 || val > float64(^uint64(0)) {
		return 0, fmt.Errorf("number out of range: %s", input)
	}

	return uint64(val + 0.5), nil
}
