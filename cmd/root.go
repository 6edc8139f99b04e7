package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tint/internal/cli"
	"tint/internal/colorize"
	"tint/internal/config"
	"tint/internal/processor"
	"tint/internal/report"
	"tint/internal/tui"
	"tint/pkg/imgutil"
)

// environment is what a run needs from the outside world.
type environment struct {
	stdout      io.Writer
	stderr      io.Writer
	interactive bool // stdout is a terminal
	engine      func(colorize.Settings) (colorize.Engine, error)
	reclaim     func()
	viewStarted func(*tea.Program) // called after the progress view is started
}

func newRootCmd(env environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tint <input>... [output] [flags]",
		Short: "tint - batch-colorize grayscale images",
		Long: "tint colorizes grayscale and monochrome images, one file at a time.\n\n" +
			"Each input is written next to itself (or to --output-dir) as <name>-colorized.<ext>;\n" +
			"existing files are never overwritten. With exactly one input, a second path that\n" +
			"does not exist yet is taken as the output file.",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.run(cmd, args)
		},
	}
	cmd.SetOut(env.stdout)
	cmd.SetErr(env.stderr)

	// Tokens are parsed by cli.Parse; these only document the flags.
	flags := cmd.Flags()
	flags.StringP("output-dir", "o", "", "directory for colorized files (alias: --output)")
	flags.BoolP("quiet", "q", false, "print one line per file and no summary")
	flags.BoolP("json", "j", false, "print the batch result as a single JSON object (implies --quiet)")
	flags.String("status", "", "keep the current processing status in this file")
	flags.BoolP("help", "h", false, "show this help")

	return cmd
}

func Execute() {
	fd := os.Stdout.Fd()
	env := environment{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
	os.Exit(env.execute(os.Args[1:]))
}

func (env environment) execute(args []string) int {
	if args == nil {
		args = []string{}
	}
	cmd := newRootCmd(env)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintln(env.stderr, exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintln(env.stderr, err)
	return 1
}

func (env environment) run(cmd *cobra.Command, args []string) error {
	inv, err := cli.Parse(args)
	if errors.Is(err, cli.ErrHelp) {
		return cmd.Help()
	}
	if err != nil {
		return env.fail(cmd, inv.Options, err)
	}

	settings, err := config.Load()
	if err != nil {
		return env.fail(cmd, inv.Options, &cli.SetupError{Message: err.Error(), Err: err})
	}
	logger := newLogger(env.stderr, settings.LogLevel)

	newEngine := env.engine
	if newEngine == nil {
		newEngine = colorize.New
	}
	engine, err := newEngine(colorize.Settings{
		Kind:      settings.Engine.Kind,
		Command:   settings.Engine.Command,
		Args:      settings.Engine.Args,
		Palette:   settings.Engine.Palette,
		MaxPixels: settings.MaxPixels,
	})
	if err != nil {
		return env.fail(cmd, inv.Options, &cli.SetupError{Message: err.Error(), Err: err})
	}

	codec := imgutil.NewCodec(settings.MaxPixels, settings.JPEGQuality, "tint")
	runCfg := processor.Config{
		ProgressStep: settings.ProgressStep,
		MinDimension: settings.MinDimension,
		MaxDimension: settings.MaxDimension,
		Reclaim:      env.reclaim,
	}
	logger.Debug("starting batch", "jobs", len(inv.Jobs), "engine", settings.Engine.Kind)

	var summary processor.Summary
	run := func(listener processor.Listener) {
		runner := processor.NewRunner(codec, engine, runCfg, listener, logger)
		summary = runner.Run(context.Background(), inv.Jobs, inv.Options)
	}

	switch {
	case inv.Options.JSON:
		run(processor.NopListener{})
	case inv.Options.Quiet:
		run(tui.NewQuietListener(env.stdout, env.stderr))
	case env.useTUI(settings.Interactive):
		env.withProgressView(logger, run)
	default:
		run(tui.NewLineListener(env.stdout, env.stderr))
	}

	if err := report.Render(env.stdout, summary, inv.Options); err != nil {
		return err
	}
	if summary.ExitCode() != 0 {
		return &cli.ExitError{Code: summary.ExitCode()}
	}
	return nil
}

// withProgressView runs the batch behind the interactive progress view. The
// view does not handle signals, so an interrupt ends the process. If the view
// exits on its own, the batch carries on without it.
func (env environment) withProgressView(logger *log.Logger, run func(processor.Listener)) {
	updates := make(chan tui.Update, 64)
	program := tea.NewProgram(tui.NewModel(updates),
		tea.WithInput(nil),
		tea.WithOutput(env.stdout),
		tea.WithoutSignalHandler(),
	)

	uiDone := make(chan struct{})
	go func() {
		if _, err := program.Run(); err != nil {
			logger.Warn("progress view stopped", "err", err)
		}
		close(uiDone)
	}()
	if env.viewStarted != nil {
		env.viewStarted(program)
	}

	run(tui.NewChannelListener(updates, uiDone))
	close(updates)
	<-uiDone
}

// fail reports a usage or setup error in the mode the user asked for.
func (env environment) fail(cmd *cobra.Command, opts processor.Options, err error) error {
	if opts.JSON {
		if rerr := report.Error(env.stdout, err.Error()); rerr != nil {
			return rerr
		}
	}

	var usage *cli.UsageError
	if errors.As(err, &usage) {
		fmt.Fprintf(env.stderr, "Error: %s\n\n%s", usage.Message, cmd.UsageString())
		return &cli.ExitError{Code: 1}
	}
	if opts.JSON {
		return &cli.ExitError{Code: 1}
	}
	return &cli.ExitError{Code: 1, Message: "Error: " + err.Error()}
}

func (env environment) useTUI(mode string) bool {
	switch strings.ToLower(mode) {
	case "on":
		return true
	case "off":
		return false
	default:
		return env.interactive
	}
}

func newLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.WarnLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "tint",
		ReportTimestamp: true,
	})
	return logger.With("run", uuid.NewString())
}
