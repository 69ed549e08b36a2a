package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/BusterWarn/mfind"
)

// printer serializes output from concurrent workers. Matches go to stdout,
// one whole line each; per-entry failures go to stderr as "path: reason".
type printer struct {
	mu     sync.Mutex
	out    *bufio.Writer
	errOut io.Writer
	logger *slog.Logger
	err    error

	// styled is false when output is plain; paths are then written verbatim.
	styled bool
	dir    lipgloss.Style
	link   lipgloss.Style
}

func newPrinter(stdout, stderr io.Writer, color string, logger *slog.Logger) *printer {
	renderer := lipgloss.NewRenderer(stdout)

	styled := false

	switch color {
	case colorAlways:
		renderer.SetColorProfile(termenv.ANSI)

		styled = true
	case colorNever:
		renderer.SetColorProfile(termenv.Ascii)
	default:
		styled = isTerminal(stdout)
		if !styled {
			renderer.SetColorProfile(termenv.Ascii)
		}
	}

	return &printer{
		out:    bufio.NewWriter(stdout),
		errOut: stderr,
		logger: logger,
		styled: styled,
		dir:    renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		link:   renderer.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// match writes one match line. Safe for concurrent use.
func (p *printer) match(m mfind.Match) {
	line := m.Path

	switch {
	case !p.styled:
	case m.Type == mfind.TypeDir:
		line = p.dir.Render(m.Path)
	case m.Type == mfind.TypeLink:
		line = p.link.Render(m.Path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintln(p.out, line)
}

// ioError reports a per-task or per-entry failure. The engine already
// serializes calls.
func (p *printer) ioError(err error, count int) {
	var ioErr *mfind.IOError
	if errors.As(err, &ioErr) {
		_, _ = fmt.Fprintf(p.errOut, "%s: %v\n", ioErr.Path, ioErr.Err)
		p.logger.Warn("io error", "op", ioErr.Op, "path", ioErr.Path, "err", ioErr.Err, "count", count)

		return
	}

	_, _ = fmt.Fprintln(p.errOut, err)
	p.logger.Warn("io error", "err", err, "count", count)
}

// stats writes one line per worker after all matches.
func (p *printer) stats(summary mfind.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ws := range summary.Workers {
		if p.err != nil {
			return
		}

		_, p.err = fmt.Fprintf(p.out, "Thread: %d Reads: %d\n", ws.ID, ws.DirsRead)
	}
}

// flush writes buffered output and returns the first write error.
func (p *printer) flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return fmt.Errorf("write output: %w", p.err)
	}

	err := p.out.Flush()
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}
