package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/BusterWarn/mfind"
)

const usage = "mfind [-t type] [-p nrthr] start1 [start2 ...] target"

// app holds the process streams so tests can run the CLI in-process.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv lookupFunc
}

// run executes the CLI and returns the process exit code.
func (a *app) run(args []string) int {
	cmd := a.newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		_, _ = fmt.Fprintf(a.stderr, "mfind: %v\n", err)

		return 1
	}

	return 0
}

func (a *app) newRootCommand() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   usage,
		Short: "Find entries by name with a pool of concurrent workers",
		Long: `mfind walks every start path breadth-first with a fixed pool of workers
and prints each entry whose last path component equals target.

Symlinks met during the walk are reported as links and never followed.
Unreadable directories are reported on stderr and the walk continues.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			switch len(args) {
			case 0:
				return fmt.Errorf("%w (usage: %s)", mfind.ErrNoTarget, usage)
			case 1:
				return fmt.Errorf("%w (usage: %s)", mfind.ErrNoRoots, usage)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), &flags, a.lookupEnv)
			if err != nil {
				return err
			}

			return a.search(cmd.Context(), cfg, args[:len(args)-1], args[len(args)-1])
		},
	}

	registerFlags(cmd.Flags(), &flags)

	return cmd
}

func (a *app) search(ctx context.Context, cfg Config, roots []string, name string) (err error) {
	typ, err := mfind.ParseEntryType(cfg.Type)
	if err != nil {
		return err
	}

	target, err := mfind.NewTarget(name, typ)
	if err != nil {
		return err
	}

	logger, err := newLogger(a.stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	out := newPrinter(a.stdout, a.stderr, cfg.Color, logger)

	opts := []mfind.Option{
		mfind.WithWorkers(cfg.Workers),
		mfind.WithLogger(logger),
		mfind.WithHidden(cfg.Hidden),
		mfind.WithOnError(out.ioError),
	}

	ex, err := newExcluder(roots, cfg.Exclude, cfg.ExcludeFrom)
	if err != nil {
		return err
	}

	if ex != nil {
		opts = append(opts, mfind.WithSkip(ex.skip))
	}

	if cfg.Trace {
		tracer, shutdown, terr := newTracer(a.stderr)
		if terr != nil {
			return terr
		}

		defer func() {
			serr := shutdown(context.WithoutCancel(ctx))
			if err == nil && serr != nil {
				err = fmt.Errorf("flush traces: %w", serr)
			}
		}()

		var span trace.Span

		ctx, span = tracer.Start(ctx, "mfind.run", trace.WithAttributes(attribute.String("mfind.run_id", runID)))
		defer span.End()

		opts = append(opts, mfind.WithTracer(tracer))
	}

	summary, err := mfind.Search(ctx, roots, target, out.match, opts...)
	if err != nil {
		return err
	}

	if cfg.Stats {
		out.stats(summary)
	}

	err = out.flush()
	if err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		m := newRunMetrics()
		m.observe(summary)

		err = m.write(cfg.MetricsFile)
		if err != nil {
			return err
		}
	}

	return nil
}
