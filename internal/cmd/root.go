// Package cmd implements the webquery command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"regexp"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/grafana/webquery/common"
	"github.com/grafana/webquery/errext"
	"github.com/grafana/webquery/errext/exitcodes"
	"github.com/grafana/webquery/log"
	"github.com/grafana/webquery/trace"
)

const tracerShutdownTimeout = 5 * time.Second

// errAlreadyReported is returned by commands that have already told the
// user why they failed and only need the exit code to propagate.
var errAlreadyReported = errors.New("already reported")

// Execute runs the root command in the process environment. It is called
// by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	newRootCommand(newGlobalState(ctx)).execute()
}

// This is to keep all fields needed for the main/root webquery command
type rootCommand struct {
	gs  *globalState
	cmd *cobra.Command

	logger         *log.Logger
	stdlogWriter   io.Closer
	logFile        *log.FileHook
	tracerProvider *trace.TracerProvider
	tracer         *trace.Tracer
}

func newRootCommand(gs *globalState) *rootCommand {
	c := &rootCommand{gs: gs}

	rootCmd := &cobra.Command{
		Use:               "webquery",
		Short:             "Query and drive elements of in-process and remote browser documents",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
		Version:           fullVersion(),
	}
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "v%s\n" .Version}}`)

	rootCmd.PersistentFlags().AddFlagSet(rootCmdPersistentFlagSet(gs))
	rootCmd.SetArgs(gs.CmdArgs[1:])
	rootCmd.SetOut(gs.Stdout)
	rootCmd.SetErr(gs.Stderr)

	rootCmd.AddCommand(
		getCmdFind(c),
		getCmdExists(c),
		getCmdFire(c),
		getCmdVersion(gs),
	)

	c.cmd = rootCmd
	return c
}

func (c *rootCommand) persistentPreRunE(_ *cobra.Command, _ []string) error {
	if err := c.setupLoggers(); err != nil {
		return err
	}
	c.gs.Logger.Debugf("webquery version: v%s", fullVersion())

	tp, err := trace.TracerProviderFromConfigLine(c.gs.Ctx, c.gs.Flags.TracesOutput)
	if err != nil {
		return errext.WithExitCodeIfNone(fmt.Errorf("setting up traces output: %w", err), exitcodes.InvalidConfig)
	}
	c.tracerProvider = tp
	c.tracer = trace.NewTracer(tp, map[string]string{"webquery.version": version})
	return nil
}

func (c *rootCommand) execute() {
	parent := c.gs.Ctx
	ctx, cancel := context.WithCancel(parent)
	c.gs.Ctx = ctx

	exitCode := -1
	defer func() {
		cancel()
		c.shutdownTracer()
		if c.stdlogWriter != nil {
			_ = c.stdlogWriter.Close()
		}
		if c.logFile != nil {
			if err := c.logFile.Close(); err != nil {
				fprintf(c.gs.Stderr, "closing log file: %v\n", err)
			}
		}
		c.gs.OSExit(exitCode)
	}()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("unexpected webquery panic: %s\n%s", r, debug.Stack())
			c.gs.Logger.Error(err)
		}
	}()

	err := c.cmd.Execute()
	if err == nil {
		exitCode = 0
		return
	}
	if parent.Err() != nil && !errext.IsInterruptError(err) {
		err = fmt.Errorf("%w: %w", &errext.InterruptError{Reason: errext.AbortQuery}, err)
	}

	var ecerr errext.HasExitCode
	if errors.As(err, &ecerr) {
		exitCode = int(ecerr.ExitCode())
	}
	if errors.Is(err, errAlreadyReported) {
		return
	}

	errText, fields := errext.Format(err)
	c.gs.Logger.WithFields(fields).Error(errText)
}

func (c *rootCommand) shutdownTracer() {
	if c.tracerProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
	defer cancel()
	if err := c.tracerProvider.Shutdown(ctx); err != nil {
		c.gs.Logger.WithError(err).Warn("Couldn't flush the traces output")
	}
}

func rootCmdPersistentFlagSet(gs *globalState) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	// The destinations are also the defaults since they may have been set
	// from the environment already. DefValue is reset so the help output
	// shows the real defaults.
	flags.StringVar(&gs.Flags.LogLevel, "log-level", gs.Flags.LogLevel,
		"log level, one of trace, debug, info, warn, error")
	flags.Lookup("log-level").DefValue = gs.DefaultFlags.LogLevel

	flags.StringVar(&gs.Flags.LogOutput, "log-output", gs.Flags.LogOutput,
		"change the output for webquery logs, possible values are 'stderr', 'stdout', 'none', 'file=./path[,level=info]'")
	flags.Lookup("log-output").DefValue = gs.DefaultFlags.LogOutput

	flags.StringVar(&gs.Flags.LogFormat, "log-format", gs.Flags.LogFormat, "log output format: text, json or raw")
	flags.StringVar(&gs.Flags.LogCategoryFilter, "log-category-filter", gs.Flags.LogCategoryFilter,
		"only log categories matching this regular expression, e.g. 'remote:.*'")

	flags.BoolVar(&gs.Flags.NoColor, "no-color", gs.Flags.NoColor, "disable colored output")
	flags.Lookup("no-color").DefValue = "false"

	flags.StringVar(&gs.Flags.TracesOutput, "traces-output", gs.Flags.TracesOutput,
		"export traces, e.g. 'otel=127.0.0.1:4317,proto=grpc'")

	flags.StringVarP(&gs.Flags.ConfigFilePath, "config", "c", gs.Flags.ConfigFilePath, "JSON config file")
	flags.Lookup("config").DefValue = gs.DefaultFlags.ConfigFilePath
	must(cobra.MarkFlagFilename(flags, "config"))

	return flags
}

// RawFormatter it does nothing with the message just prints it
type RawFormatter struct{}

// Format renders a single log entry
func (f RawFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

func (c *rootCommand) setupLoggers() error {
	gs := c.gs

	level, err := logrus.ParseLevel(gs.Flags.LogLevel)
	if err != nil {
		return errext.WithExitCodeIfNone(fmt.Errorf("unknown log level %q", gs.Flags.LogLevel), exitcodes.InvalidConfig)
	}
	gs.Logger.SetLevel(level)

	if gs.Flags.NoColor {
		gs.Stdout.Writer = colorable.NewNonColorable(gs.Stdout.Writer)
		gs.Stderr.Writer = colorable.NewNonColorable(gs.Stderr.Writer)
	}

	forceColors := false
	switch line := gs.Flags.LogOutput; {
	case line == "stderr":
		forceColors = !gs.Flags.NoColor && gs.Stderr.IsTTY
		gs.Logger.SetOutput(gs.Stderr)
	case line == "stdout":
		forceColors = !gs.Flags.NoColor && gs.Stdout.IsTTY
		gs.Logger.SetOutput(gs.Stdout)
	case line == "none":
		gs.Logger.SetOutput(io.Discard)
	case strings.HasPrefix(line, "file"):
		hook, err := log.FileHookFromConfigLine(gs.FS, line)
		if err != nil {
			return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
		}
		c.logFile = hook
		gs.Logger.AddHook(hook)
		gs.Logger.SetOutput(io.Discard)
	default:
		return errext.WithExitCodeIfNone(fmt.Errorf("unsupported log output %q", line), exitcodes.InvalidConfig)
	}

	switch gs.Flags.LogFormat {
	case "raw":
		gs.Logger.SetFormatter(&RawFormatter{})
		gs.Logger.Debug("Logger format: RAW")
	case "json":
		gs.Logger.SetFormatter(&logrus.JSONFormatter{})
		gs.Logger.Debug("Logger format: JSON")
	case "", "text":
		gs.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors: forceColors, DisableColors: gs.Flags.NoColor || c.logFile != nil,
		})
		gs.Logger.Debug("Logger format: TEXT")
	default:
		return errext.WithExitCodeIfNone(
			fmt.Errorf("unsupported log format %q", gs.Flags.LogFormat), exitcodes.InvalidConfig)
	}

	var filter *regexp.Regexp
	if gs.Flags.LogCategoryFilter != "" {
		if filter, err = regexp.Compile(gs.Flags.LogCategoryFilter); err != nil {
			return errext.WithExitCodeIfNone(
				fmt.Errorf("invalid log category filter: %w", err), exitcodes.InvalidConfig)
		}
	}
	c.logger = log.New(gs.Logger, false, filter)

	// Sometimes the Go runtime uses the standard log output to
	// log some messages directly.
	w := gs.Logger.Writer()
	stdlog.SetOutput(w)
	c.stdlogWriter = w
	return nil
}

// settings consolidates the defaults, the JSON config file and the
// environment into the settings element operations use.
func (c *rootCommand) settings() (common.Settings, error) {
	var raw []byte
	if path := c.gs.Flags.ConfigFilePath; path != "" {
		data, err := afero.ReadFile(c.gs.FS, path)
		if err != nil {
			return common.Settings{}, errext.WithExitCodeIfNone(
				fmt.Errorf("reading config file: %w", err), exitcodes.InvalidConfig)
		}
		raw = data
	}
	conf, err := common.GetConsolidatedConfig(raw, c.gs.Env)
	if err != nil {
		return common.Settings{}, errext.WithExitCodeIfNone(
			fmt.Errorf("invalid config: %w", err), exitcodes.InvalidConfig)
	}
	return conf.Settings(), nil
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// fprintf panics when there's an error writing to the supplied io.Writer.
func fprintf(w io.Writer, format string, a ...interface{}) {
	if _, err := fmt.Fprintf(w, format, a...); err != nil {
		panic(err.Error())
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
