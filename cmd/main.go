package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"interpcore/internal/config"
	"interpcore/internal/logger"
	"interpcore/internal/workload"
	"interpcore/pkg/color"
	"interpcore/pkg/execctx"
	"interpcore/pkg/interpreter"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "interpcore",
		Short:         "Command cache and execution context core of an embeddable interpreter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.toml or .yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVarP(&noColor, "no-color", "n", false, "no color")

	root.AddCommand(runCmd(), configCmd())
	return root
}

// loadConfig reads the config, initializes logging and fixes the disposed
// policy before any interpreter exists.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.Log.Level = "debug"
	}
	if noColor {
		cfg.Log.NoColor = true
	}
	logger.Init(cfg.Log.Level, cfg.Log.NoColor)

	if err := execctx.SetPolicy(cfg.Policy()); err != nil {
		return nil, err
	}

	return cfg, nil
}

func runCmd() *cobra.Command {
	var workers, iterations int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a concurrent workload against one interpreter and report cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fail(cmd, err)
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workload.Workers = workers
			}
			if cmd.Flags().Changed("iterations") {
				cfg.Workload.Iterations = iterations
			}
			if err := cfg.Validate(); err != nil {
				return fail(cmd, err)
			}

			opts := []interpreter.Option{
				interpreter.WithWriter(cmd.OutOrStdout()),
				interpreter.WithLogger(log.Default()),
				interpreter.WithMaxDepth(cfg.Interpreter.MaxDepth),
			}
			if cfg.Cache.Statistics {
				opts = append(opts, interpreter.WithStatistics())
			}
			it := interpreter.New(opts...)
			defer it.Dispose()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			res, err := workload.New(it, workload.Options{
				Workers:    cfg.Workload.Workers,
				Iterations: cfg.Workload.Iterations,
				Churn:      cfg.Workload.Churn,
			}, log.Default()).Run(ctx)
			if err != nil {
				return fail(cmd, err)
			}

			p := color.NewPalette(cmd.OutOrStdout(), cfg.Log.NoColor)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, p.Title.Render("workload"))
			fmt.Fprintln(out, p.Row("workers", res.Workers))
			fmt.Fprintln(out, p.Row("calls", res.Calls))
			fmt.Fprintln(out, p.Row("unknown", res.Unknown))
			fmt.Fprintln(out, p.Row("churned", res.Churned))
			fmt.Fprintln(out, p.Row("counter", res.Counter))
			fmt.Fprintln(out, p.Row("elapsed", res.Elapsed.Round(time.Microsecond)))
			fmt.Fprintln(out)
			if it.HaveCacheCounts() {
				fmt.Fprintln(out, p.CacheReport(it.CacheCount(), it.CacheStatistics(), false))
			} else {
				fmt.Fprintln(out, p.Muted.Render("command cache unused"))
			}
			fmt.Fprintln(out)
			if res.Contexts > 0 {
				fmt.Fprintln(out, p.Warningf("%d execution contexts still held after the run", res.Contexts))
			}
			fmt.Fprintln(out, p.Successf("policy %s, interpreter %s", execctx.CurrentPolicy(), it.ID()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "override workload.workers")
	cmd.Flags().IntVarP(&iterations, "iterations", "i", 0, "override workload.iterations")
	return cmd
}

func configCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fail(cmd, err)
			}

			f, err := config.ParseFormat(format)
			if err != nil {
				return fail(cmd, err)
			}

			return cfg.Encode(cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "toml", "output format (toml or yaml)")
	return cmd
}

func fail(cmd *cobra.Command, err error) error {
	p := color.NewPalette(cmd.ErrOrStderr(), noColor)
	fmt.Fprintln(cmd.ErrOrStderr(), p.Errorf("%v", err))
	return err
}
