package cmd

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/grafana/webquery/api"
	"github.com/grafana/webquery/chromium"
	"github.com/grafana/webquery/log"
)

// consoleWriter serializes writes from the goroutines querying different
// endpoints.
type consoleWriter struct {
	io.Writer
	IsTTY bool
	Mutex *sync.Mutex
}

func (w *consoleWriter) Write(p []byte) (int, error) {
	w.Mutex.Lock()
	defer w.Mutex.Unlock()
	return w.Writer.Write(p)
}

// globalFlags contains the values of the flags every sub-command accepts.
type globalFlags struct {
	ConfigFilePath    string
	LogLevel          string
	LogOutput         string
	LogFormat         string
	LogCategoryFilter string
	NoColor           bool
	TracesOutput      string
}

func defaultGlobalFlags() globalFlags {
	return globalFlags{LogLevel: "info", LogOutput: "stderr"}
}

func consolidateGlobalFlags(defaultFlags globalFlags, env map[string]string) globalFlags {
	result := defaultFlags

	if val, ok := env["WEBQUERY_CONFIG"]; ok {
		result.ConfigFilePath = val
	}
	if val, ok := env["WEBQUERY_LOG_LEVEL"]; ok {
		result.LogLevel = val
	}
	if val, ok := env["WEBQUERY_LOG_OUTPUT"]; ok {
		result.LogOutput = val
	}
	if val, ok := env["WEBQUERY_LOG_FORMAT"]; ok {
		result.LogFormat = val
	}
	if val, ok := env["WEBQUERY_LOG_CATEGORY_FILTER"]; ok {
		result.LogCategoryFilter = val
	}
	if val, ok := env["WEBQUERY_TRACES_OUTPUT"]; ok {
		result.TracesOutput = val
	}
	// Support https://no-color.org/, even an empty value disables colors.
	if _, ok := env["NO_COLOR"]; ok {
		result.NoColor = true
	}
	return result
}

// globalState holds everything a command touches outside of its own flags,
// so tests can run commands without the real process environment.
type globalState struct {
	Ctx context.Context

	CmdArgs []string
	Env     map[string]string

	DefaultFlags, Flags globalFlags

	FS             afero.Fs
	Stdout, Stderr *consoleWriter

	Logger *logrus.Logger
	// Dial opens a transport to a browser endpoint. It receives the
	// category logger set up for the current invocation.
	Dial func(logger *log.Logger) func(ctx context.Context, url string) (api.Transport, error)

	OSExit func(int)
}

func newGlobalState(ctx context.Context) *globalState {
	isDumbTerm := os.Getenv("TERM") == "dumb"
	stdoutTTY := !isDumbTerm && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	stderrTTY := !isDumbTerm && (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	outMutex := &sync.Mutex{}
	stdout := &consoleWriter{colorable.NewColorableStdout(), stdoutTTY, outMutex}
	stderr := &consoleWriter{colorable.NewColorableStderr(), stderrTTY, outMutex}

	env := buildEnvMap(os.Environ())
	defaultFlags := defaultGlobalFlags()

	logger := &logrus.Logger{
		Out:       stderr,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}

	return &globalState{
		Ctx:          ctx,
		CmdArgs:      os.Args,
		Env:          env,
		DefaultFlags: defaultFlags,
		Flags:        consolidateGlobalFlags(defaultFlags, env),
		FS:           afero.NewOsFs(),
		Stdout:       stdout,
		Stderr:       stderr,
		Logger:       logger,
		Dial: func(l *log.Logger) func(context.Context, string) (api.Transport, error) {
			return chromium.NewDialer(nil, l)
		},
		OSExit: os.Exit,
	}
}

func buildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return env
}
