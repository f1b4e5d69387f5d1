package workload

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"interpcore/pkg/interpreter"
	"interpcore/pkg/thread"
)

// Options shapes a run.
type Options struct {
	Workers    int // concurrent pinned goroutines
	Iterations int // loop count per worker
	Churn      int // iterations between command redefinitions, 0 disables
}

// Result summarizes a finished run.
type Result struct {
	Workers  int
	Calls    int64         // successful command invocations
	Unknown  int64         // invocations resolved by the unknown handler
	Counter  int64         // final value of ::counter
	Churned  int64         // redefinitions, renames and handler swaps
	Elapsed  time.Duration // wall time
	Contexts int           // contexts left after every worker released its thread
}

// Runner drives concurrent evaluation against one interpreter, periodically
// redefining and renaming commands so the command cache keeps invalidating.
type Runner struct {
	interp *interpreter.Interpreter
	opts   Options
	logger *log.Logger

	calls   atomic.Int64
	unknown atomic.Int64
	churned atomic.Int64
}

// New creates a Runner over interp. The interpreter is not disposed by the
// Runner.
func New(interp *interpreter.Interpreter, opts Options, logger *log.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		interp: interp,
		opts:   opts,
		logger: logger.With("component", "workload"),
	}
}

// Run defines the workload commands, runs every worker to completion and
// returns the summary. The first worker error cancels the others.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.setup(); err != nil {
		return nil, fmt.Errorf("workload setup failed: %w", err)
	}

	r.logger.Info("starting workload", "workers", r.opts.Workers, "iterations", r.opts.Iterations, "churn", r.opts.Churn)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < r.opts.Workers; w++ {
		w := w
		g.Go(func() error {
			return r.worker(gctx, w)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Workers:  r.opts.Workers,
		Calls:    r.calls.Load(),
		Unknown:  r.unknown.Load(),
		Churned:  r.churned.Load(),
		Elapsed:  time.Since(start),
		Contexts: r.interp.ContextCount(),
	}
	if v, ok := r.interp.GlobalFrame().Get("counter"); ok {
		res.Counter, _ = v.AsInt64()
	}

	r.logger.Info("workload finished", "calls", res.Calls, "elapsed", res.Elapsed)
	return res, nil
}

func (r *Runner) setup() error {
	err := r.interp.DefineProc("bump", []string{"n"}, func(inv *interpreter.Invocation) (interpreter.Value, error) {
		n, err := inv.GetVar("n")
		if err != nil {
			return interpreter.Value{}, err
		}
		return inv.Invoke("incr", interpreter.String("::counter"), n)
	})
	if err != nil {
		return err
	}

	for w := 0; w < r.opts.Workers; w++ {
		if err := r.interp.DefineFunc(squareName(w), square); err != nil {
			return err
		}
	}

	return r.interp.SetUnknown(r.unknownHandler())
}

func (r *Runner) unknownHandler() interpreter.CommandFunc {
	return func(inv *interpreter.Invocation, args []interpreter.Value) (interpreter.Value, error) {
		r.unknown.Add(1)
		return interpreter.Value{}, nil
	}
}

func square(inv *interpreter.Invocation, args []interpreter.Value) (interpreter.Value, error) {
	if len(args) != 1 {
		return interpreter.Value{}, fmt.Errorf("%s: %w", inv.Name, interpreter.ErrWrongArgs)
	}

	n, err := args[0].AsInt64()
	if err != nil {
		return interpreter.Value{}, err
	}
	return interpreter.Int(n * n), nil
}

func squareName(w int) string {
	return fmt.Sprintf("square%d", w)
}

// worker runs on its own OS thread so it keeps one execution context for the
// whole loop, and releases that context when done.
func (r *Runner) worker(ctx context.Context, w int) error {
	unpin := thread.Pin()
	defer unpin()
	defer r.interp.ReleaseThread()

	logger := r.logger.With("worker", w, "thread", thread.CurrentID())
	logger.Debug("worker started")

	sq := squareName(w)
	local := fmt.Sprintf("w%d", w)
	probe := fmt.Sprintf("probe%d", w)

	for i := 0; i < r.opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := r.call("set", interpreter.String(local), interpreter.Int(int64(i))); err != nil {
			return err
		}
		if _, err := r.call("bump", interpreter.Int(1)); err != nil {
			return err
		}
		v, err := r.call(sq, interpreter.Int(int64(i)))
		if err != nil {
			return err
		}
		if v.I64 != int64(i)*int64(i) {
			return fmt.Errorf("worker %d: %s %d = %v", w, sq, i, v)
		}
		if _, err := r.call(probe); err != nil {
			return err
		}

		if r.opts.Churn > 0 && i%r.opts.Churn == r.opts.Churn-1 {
			if err := r.churn(w, sq); err != nil {
				return err
			}
			logger.Debug("commands churned", "iteration", i)
		}
	}

	logger.Debug("worker done")
	return nil
}

func (r *Runner) call(name string, args ...interpreter.Value) (interpreter.Value, error) {
	v, err := r.interp.Invoke(name, args...)
	if err != nil {
		var se *interpreter.ScriptError
		if errors.As(err, &se) {
			return v, fmt.Errorf("script error in %s: %w", name, err)
		}
		return v, err
	}

	r.calls.Add(1)
	return v, nil
}

// churn redefines the worker's command, renames it away and back, and the
// first worker also replaces the unknown handler, which clears the cache.
func (r *Runner) churn(w int, sq string) error {
	if err := r.interp.DefineFunc(sq, square); err != nil {
		return err
	}

	tmp := sq + "_tmp"
	if err := r.interp.Rename(sq, tmp); err != nil {
		return err
	}
	if err := r.interp.Rename(tmp, sq); err != nil {
		return err
	}
	r.churned.Add(3)

	if w == 0 {
		if err := r.interp.SetUnknown(r.unknownHandler()); err != nil {
			return err
		}
		r.churned.Add(1)
	}

	return nil
}
