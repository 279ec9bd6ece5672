package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

// addLogLevelFlag registers -log-level on a command and returns a function
// that applies it.
func addLogLevelFlag(fs *flag.FlagSet) func() error {
	level := fs.String("log-level", "info", "Logging level: error, info or debug")
	return func() error {
		switch *level {
		case "error":
			log.SetLevel(log.Error)
		case "info":
			log.SetLevel(log.Info)
		case "debug":
			log.SetLevel(log.Debug)
		default:
			return fmt.Errorf("unknown -log-level %q", *level)
		}
		return nil
	}
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
// Work in progress is expected to finish the current run before stopping.
func signalContext() (context.Context, context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := cancelOnSignal(vcontext.Background(), sigs)
	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}

// cancelOnSignal cancels the returned context when a value arrives on sigs.
// The returned stop function cancels the context without logging and waits
// for the watcher to exit.
func cancelOnSignal(parent context.Context, sigs <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-sigs:
			log.Printf("quit_when_safe_enabled: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		cancel()
		<-done
	}
}

func newCmdScan() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "scan",
		Short: "Collect QC outputs of every finished run, repeatedly",
		Long: `Scan the analysis directory every scan_interval_seconds and collect
the outputs of runs that are not collected yet. SIGINT and SIGTERM stop the
loop after the run in progress.`,
	}
	configPath := cmd.Flags.String("config", "", "Path of the YAML or JSON config file")
	once := cmd.Flags.Bool("once", false, "Run a single scan and exit")
	applyLogLevel := addLogLevelFlag(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("scan takes no arguments, but got %v", argv)
		}
		if *configPath == "" {
			return fmt.Errorf("-config is required")
		}
		if err := applyLogLevel(); err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()
		return scan(ctx, *configPath, *once)
	})
	return cmd
}

func newCmdCollect() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "collect",
		Short: "Collect the QC outputs of one run",
	}
	configPath := cmd.Flags.String("config", "", "Path of the YAML or JSON config file")
	runID := cmd.Flags.String("run", "", "Sequencing run id")
	applyLogLevel := addLogLevelFlag(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if *configPath == "" || *runID == "" {
			return fmt.Errorf("-config and -run are required")
		}
		if err := applyLogLevel(); err != nil {
			return err
		}
		return collectRun(vcontext.Background(), *configPath, *runID, env.Stdout)
	})
	return cmd
}

func newCmdListRuns() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "list-runs",
		Short: "Print the manifest of completed runs as JSON",
	}
	configPath := cmd.Flags.String("config", "", "Path of the YAML or JSON config file")
	applyLogLevel := addLogLevelFlag(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if *configPath == "" {
			return fmt.Errorf("-config is required")
		}
		if err := applyLogLevel(); err != nil {
			return err
		}
		return listRuns(vcontext.Background(), *configPath, env.Stdout)
	})
	return cmd
}

func newCmdDeleteRun() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "delete-run",
		Short: "Delete every collected output of a run",
		Long: `Delete every collected output of a run, so that the next scan collects
it again from scratch.`,
	}
	runID := cmd.Flags.String("run", "", "Sequencing run id")
	dataDir := cmd.Flags.String("data-dir", "", "Output root directory (output_dir in the config)")
	applyLogLevel := addLogLevelFlag(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if *runID == "" || *dataDir == "" {
			return fmt.Errorf("-run and -data-dir are required")
		}
		if err := applyLogLevel(); err != nil {
			return err
		}
		return deleteRun(vcontext.Background(), *runID, *dataDir, env.Stdout)
	})
	return cmd
}

// Run is the entry point of qc-collector.
func Run() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "qc-collector",
			Short:    "Collect routine sequence QC outputs into a single output tree",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdScan(),
				newCmdCollect(),
				newCmdListRuns(),
				newCmdDeleteRun(),
			},
		})
}
