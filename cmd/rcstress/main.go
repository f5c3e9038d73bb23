package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/refcount"
)

func main() {
	var (
		workers     = flag.Int("workers", 8, "Concurrent goroutines per workload")
		iterations  = flag.Int("n", 1000, "Iterations per workload")
		names       = flag.String("workload", "all", "Workloads to run (comma-separated): churn,upgrade,unique,table,host")
		leaks       = flag.Bool("leaks", false, "Report handles that are garbage collected while bound")
		verbose     = flag.Bool("v", false, "Development logging at debug level")
		list        = flag.Bool("list", false, "List workloads and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *list {
		for _, w := range workloads {
			fmt.Printf("  %-8s %s\n", w.name, w.desc)
		}
		return
	}

	if *workers < 1 || *iterations < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rcstress [-workers N] [-n N] [-workload churn,upgrade,...] [-leaks] [-v] [-i]")
		os.Exit(1)
	}

	selected, err := selectWorkloads(splitList(*names))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	refcount.Configure(refcount.Config{Logger: logger, LeakDetection: *leaks})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := options{workers: *workers, iterations: *iterations}

	if *interactive && term.IsTerminal(int(os.Stdout.Fd())) {
		if err := runInteractive(ctx, selected, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !run(ctx, selected, opts, logger) {
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// run executes the workloads in order and prints a plain report. It returns
// false if any workload failed.
func run(ctx context.Context, selected []workload, opts options, logger *zap.Logger) bool {
	ok := true
	for _, w := range selected {
		var done atomic.Int64
		res := execute(ctx, w, opts, &done)
		fmt.Println(formatResult(res))
		if res.err != nil {
			logger.Error("workload failed", zap.String("workload", res.name), zap.Error(res.err))
			ok = false
		}
	}
	return ok
}

func formatResult(r result) string {
	status := "ok"
	if r.err != nil {
		status = "FAIL: " + r.err.Error()
	}
	return fmt.Sprintf("%-8s %8d ops %10s  created=%d destroyed=%d upgrade_failed=%d  %s",
		r.name, r.ops, r.elapsed.Round(time.Microsecond), r.stats.Created, r.stats.Destroyed, r.stats.UpgradeFailed, status)
}
